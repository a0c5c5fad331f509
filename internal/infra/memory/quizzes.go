package memory

import (
	"context"
	"sort"
	"time"

	"company-quiz-service/internal/domain"
)

type quizRepo struct{ s *Store }

func (r quizRepo) Create(_ context.Context, quiz *domain.Quiz) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.companies[quiz.CompanyID]; !ok {
		return domain.ErrCompanyNotFound
	}
	quiz.ID = r.s.st.id()
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.ID = r.s.st.id()
		q.QuizID = quiz.ID
		for j := range q.Answers {
			a := &q.Answers[j]
			a.ID = r.s.st.id()
			a.QuestionID = q.ID
			r.s.st.answers[a.ID] = *a
		}
		stored := *q
		stored.Answers = nil
		r.s.st.questions[q.ID] = stored
	}
	stored := *quiz
	stored.Questions = nil
	r.s.st.quizzes[quiz.ID] = stored
	return nil
}

func (r quizRepo) Get(_ context.Context, id int64) (domain.Quiz, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	quiz, ok := r.s.st.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return r.hydrate(quiz), nil
}

func (r quizRepo) hydrate(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = byID(r.s.st.questions, func(q domain.Question) bool { return q.QuizID == quiz.ID })
	for i := range quiz.Questions {
		qid := quiz.Questions[i].ID
		quiz.Questions[i].Answers = byID(r.s.st.answers, func(a domain.Answer) bool { return a.QuestionID == qid })
	}
	return quiz
}

// List returns the company's quizzes, or all quizzes when companyID is 0.
func (r quizRepo) List(_ context.Context, companyID int64, page domain.Page) ([]domain.Quiz, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := byID(r.s.st.quizzes, func(q domain.Quiz) bool { return companyID == 0 || q.CompanyID == companyID })
	out := paginate(all, page)
	for i := range out {
		out[i] = r.hydrate(out[i])
	}
	return out, len(all), nil
}

func (r quizRepo) Update(_ context.Context, quiz *domain.Quiz) error {
	r.s.lock()
	defer r.s.unlock()
	current, ok := r.s.st.quizzes[quiz.ID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	current.Title = quiz.Title
	current.Description = quiz.Description
	current.FrequencyInDays = quiz.FrequencyInDays
	current.UpdatedAt = quiz.UpdatedAt
	r.s.st.quizzes[quiz.ID] = current
	return nil
}

func (r quizRepo) Delete(_ context.Context, id int64) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.quizzes[id]; !ok {
		return domain.ErrQuizNotFound
	}
	r.s.st.deleteQuiz(id)
	return nil
}

func (r quizRepo) CreateQuestion(_ context.Context, question *domain.Question) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.quizzes[question.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	question.ID = r.s.st.id()
	stored := *question
	stored.Answers = nil
	r.s.st.questions[question.ID] = stored
	return nil
}

func (r quizRepo) GetQuestion(_ context.Context, id int64) (domain.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.st.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q.Answers = byID(r.s.st.answers, func(a domain.Answer) bool { return a.QuestionID == id })
	return q, nil
}

func (r quizRepo) CreateAnswer(_ context.Context, answer *domain.Answer) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.questions[answer.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	answer.ID = r.s.st.id()
	r.s.st.answers[answer.ID] = *answer
	return nil
}

func (r quizRepo) LoadAnswerKey(_ context.Context, quizID int64) (domain.AnswerKey, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	quiz, ok := r.s.st.quizzes[quizID]
	if !ok {
		return domain.AnswerKey{}, domain.ErrQuizNotFound
	}
	key := domain.AnswerKey{QuizID: quiz.ID, CompanyID: quiz.CompanyID, Questions: make(map[int64]map[int64]bool)}
	for _, q := range r.s.st.questions {
		if q.QuizID == quizID {
			key.Questions[q.ID] = make(map[int64]bool)
		}
	}
	for _, a := range r.s.st.answers {
		if answers, ok := key.Questions[a.QuestionID]; ok {
			answers[a.ID] = a.IsCorrect
		}
	}
	return key, nil
}

type attemptRepo struct{ s *Store }

func (r attemptRepo) CreateAttempt(_ context.Context, attempt *domain.QuizAttempt) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.quizzes[attempt.QuizID]; !ok {
		return domain.ErrQuizNotFound
	}
	for _, a := range r.s.st.attempts {
		if a.UserID == attempt.UserID && a.QuizID == attempt.QuizID && a.Open() {
			return domain.ErrAttemptAlreadyOpen
		}
	}
	attempt.ID = r.s.st.id()
	r.s.st.attempts[attempt.ID] = *attempt
	return nil
}

func (r attemptRepo) OpenAttempt(_ context.Context, userID, quizID int64) (domain.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.st.attempts {
		if a.UserID == userID && a.QuizID == quizID && a.Open() {
			return a, nil
		}
	}
	return domain.QuizAttempt{}, domain.ErrAttemptNotFound
}

func (r attemptRepo) GetAttempt(_ context.Context, id int64) (domain.QuizAttempt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.st.attempts[id]
	if !ok {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	return a, nil
}

func (r attemptRepo) ConsumeAttempt(_ context.Context, id int64, at time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	a, ok := r.s.st.attempts[id]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	if !a.Open() {
		return domain.ErrAttemptConsumed
	}
	a.ConsumedAt = &at
	r.s.st.attempts[id] = a
	return nil
}

func (r attemptRepo) CreateUserAnswers(_ context.Context, answers []domain.UserAnswer) error {
	r.s.lock()
	defer r.s.unlock()
	for i := range answers {
		if _, ok := r.s.st.attempts[answers[i].QuizAttemptID]; !ok {
			return domain.ErrAttemptNotFound
		}
		answers[i].ID = r.s.st.id()
		r.s.st.userAnswers[answers[i].ID] = answers[i]
	}
	return nil
}

func (r attemptRepo) CreateResult(_ context.Context, result *domain.QuizResult) error {
	r.s.lock()
	defer r.s.unlock()
	if _, ok := r.s.st.attempts[result.QuizAttemptID]; !ok {
		return domain.ErrAttemptNotFound
	}
	result.ID = r.s.st.id()
	r.s.st.results[result.ID] = *result
	return nil
}

func (r attemptRepo) ListResults(_ context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := byID(r.s.st.results, func(res domain.QuizResult) bool { return r.s.st.matches(res, filter) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *state) matches(res domain.QuizResult, f domain.ResultFilter) bool {
	if f.UserID != 0 && res.UserID != f.UserID {
		return false
	}
	if f.QuizID != 0 && res.QuizID != f.QuizID {
		return false
	}
	if f.CompanyID != 0 && res.CompanyID != f.CompanyID {
		return false
	}
	if f.MembersOnly && !s.isMember(res.CompanyID, res.UserID) {
		return false
	}
	return true
}
