package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

// Store is an in-memory implementation of app.Store and app.AnalyticsRepository.
// Transactions are serialized and roll back by restoring a snapshot. Writes outside a
// transaction wait for the running one, so a rollback never discards them.
type Store struct {
	mu   *sync.RWMutex
	txMu *sync.Mutex
	st   *state
	inTx bool
}

var (
	_ app.Store               = (*Store)(nil)
	_ app.AnalyticsRepository = (*Store)(nil)
)

type idSet map[int64]struct{}

type state struct {
	nextID int64

	users          map[int64]domain.User
	companies      map[int64]domain.Company
	members        map[int64]idSet // company -> users
	administrators map[int64]idSet // company -> users
	invitations    map[int64]domain.Invitation
	quizzes        map[int64]domain.Quiz
	questions      map[int64]domain.Question
	answers        map[int64]domain.Answer
	attempts       map[int64]domain.QuizAttempt
	userAnswers    map[int64]domain.UserAnswer
	results        map[int64]domain.QuizResult
	notifications  map[int64]domain.Notification
}

func newState() *state {
	return &state{
		users:          make(map[int64]domain.User),
		companies:      make(map[int64]domain.Company),
		members:        make(map[int64]idSet),
		administrators: make(map[int64]idSet),
		invitations:    make(map[int64]domain.Invitation),
		quizzes:        make(map[int64]domain.Quiz),
		questions:      make(map[int64]domain.Question),
		answers:        make(map[int64]domain.Answer),
		attempts:       make(map[int64]domain.QuizAttempt),
		userAnswers:    make(map[int64]domain.UserAnswer),
		results:        make(map[int64]domain.QuizResult),
		notifications:  make(map[int64]domain.Notification),
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:         s.nextID,
		users:          maps.Clone(s.users),
		companies:      maps.Clone(s.companies),
		members:        cloneSets(s.members),
		administrators: cloneSets(s.administrators),
		invitations:    maps.Clone(s.invitations),
		quizzes:        maps.Clone(s.quizzes),
		questions:      maps.Clone(s.questions),
		answers:        maps.Clone(s.answers),
		attempts:       maps.Clone(s.attempts),
		userAnswers:    maps.Clone(s.userAnswers),
		results:        maps.Clone(s.results),
		notifications:  maps.Clone(s.notifications),
	}
}

func cloneSets(in map[int64]idSet) map[int64]idSet {
	out := make(map[int64]idSet, len(in))
	for k, v := range in {
		out[k] = maps.Clone(v)
	}
	return out
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func NewStore() *Store {
	return &Store{mu: &sync.RWMutex{}, txMu: &sync.Mutex{}, st: newState()}
}

func (s *Store) Users() app.UserRepository { return userRepo{s} }
func (s *Store) Companies() app.CompanyRepository { return companyRepo{s} }
func (s *Store) Invitations() app.InvitationRepository { return invitationRepo{s} }
func (s *Store) Quizzes() app.QuizRepository { return quizRepo{s} }
func (s *Store) Attempts() app.AttemptRepository { return attemptRepo{s} }
func (s *Store) Notifications() app.NotificationRepository { return notificationRepo{s} }

// InTx runs fn with rollback on error. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx app.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	tx := &Store{mu: s.mu, txMu: s.txMu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		*s.st = *snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock takes the write lock. Outside a transaction it first waits on txMu.
func (s *Store) lock() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
}

func (s *Store) unlock() {
	s.mu.Unlock()
	if !s.inTx {
		s.txMu.Unlock()
	}
}

func sortedIDs(set idSet) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// byID returns the map values ordered by ascending id.
func byID[T any](m map[int64]T, keep func(T) bool) []T {
	ids := make([]int64, 0, len(m))
	for id, v := range m {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func paginate[T any](items []T, page domain.Page) []T {
	if page.Offset < 0 || page.Offset >= len(items) {
		return []T{}
	}
	items = items[page.Offset:]
	if page.Limit > 0 && page.Limit < len(items) {
		items = items[:page.Limit]
	}
	return items
}

func (s *state) deleteUser(id int64) {
	for cid, c := range s.companies {
		if c.OwnerID == id {
			s.deleteCompany(cid)
		}
	}
	for _, set := range s.members {
		delete(set, id)
	}
	for _, set := range s.administrators {
		delete(set, id)
	}
	for iid, inv := range s.invitations {
		if inv.UserID == id {
			delete(s.invitations, iid)
		}
	}
	for aid, a := range s.attempts {
		if a.UserID == id {
			s.deleteAttempt(aid)
		}
	}
	for nid, n := range s.notifications {
		if n.UserID == id {
			delete(s.notifications, nid)
		}
	}
	delete(s.users, id)
}

func (s *state) deleteCompany(id int64) {
	for qid, q := range s.quizzes {
		if q.CompanyID == id {
			s.deleteQuiz(qid)
		}
	}
	for iid, inv := range s.invitations {
		if inv.CompanyID == id {
			delete(s.invitations, iid)
		}
	}
	for rid, r := range s.results {
		if r.CompanyID == id {
			delete(s.results, rid)
		}
	}
	delete(s.members, id)
	delete(s.administrators, id)
	delete(s.companies, id)
}

func (s *state) deleteQuiz(id int64) {
	for qid, q := range s.questions {
		if q.QuizID == id {
			s.deleteQuestion(qid)
		}
	}
	for aid, a := range s.attempts {
		if a.QuizID == id {
			s.deleteAttempt(aid)
		}
	}
	delete(s.quizzes, id)
}

func (s *state) deleteQuestion(id int64) {
	for aid, a := range s.answers {
		if a.QuestionID == id {
			delete(s.answers, aid)
		}
	}
	for uid, ua := range s.userAnswers {
		if ua.QuestionID == id {
			delete(s.userAnswers, uid)
		}
	}
	delete(s.questions, id)
}

func (s *state) deleteAttempt(id int64) {
	for uid, ua := range s.userAnswers {
		if ua.QuizAttemptID == id {
			delete(s.userAnswers, uid)
		}
	}
	for rid, r := range s.results {
		if r.QuizAttemptID == id {
			delete(s.results, rid)
		}
	}
	delete(s.attempts, id)
}

func (s *state) isMember(companyID, userID int64) bool {
	_, ok := s.members[companyID][userID]
	return ok
}

func (s *state) addTo(sets map[int64]idSet, companyID, userID int64) {
	set, ok := sets[companyID]
	if !ok {
		set = make(idSet)
		sets[companyID] = set
	}
	set[userID] = struct{}{}
}
