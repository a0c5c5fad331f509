package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"company-quiz-service/internal/domain"
)

// QuizService contains the quiz authoring, attempt and scoring use cases.
type QuizService struct {
	store  Store
	keys   AnswerKeyRepository
	cache  AnswerCache
	events *EventBus
	now    func() time.Time
}

func NewQuizService(store Store, keys AnswerKeyRepository, cache AnswerCache, events *EventBus) *QuizService {
	return &QuizService{store: store, keys: keys, cache: cache, events: events, now: time.Now}
}

// WithClock swaps the time source, for deterministic timestamps in tests.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// CreateQuiz persists a quiz with its questions and answers, then emits QuizCreated.
func (s *QuizService) CreateQuiz(ctx context.Context, actorID int64, in QuizInput) (domain.Quiz, error) {
	if in.FrequencyInDays <= 0 {
		return domain.Quiz{}, domain.ErrInvalidFrequency
	}
	company, err := s.store.Companies().Get(ctx, in.CompanyID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := requireAdmin(ctx, s.store.Companies(), company, actorID); err != nil {
		return domain.Quiz{}, err
	}

	now := s.now()
	quiz := domain.Quiz{
		CompanyID:       company.ID,
		Title:           in.Title,
		Description:     in.Description,
		FrequencyInDays: in.FrequencyInDays,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, q := range in.Questions {
		question := domain.Question{Text: q.Text, CreatedAt: now}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, domain.Answer{Text: a.Text, IsCorrect: a.IsCorrect, CreatedAt: now})
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	err = s.store.InTx(ctx, func(tx Store) error {
		return tx.Quizzes().Create(ctx, &quiz)
	})
	if err != nil {
		return domain.Quiz{}, err
	}

	s.events.Emit(ctx, domain.QuizCreated{Quiz: quiz})
	return quiz, nil
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return s.store.Quizzes().Get(ctx, quizID)
}

func (s *QuizService) ListQuizzes(ctx context.Context, companyID int64, page domain.Page) ([]domain.Quiz, int, error) {
	return s.store.Quizzes().List(ctx, companyID, page)
}

func (s *QuizService) UpdateQuiz(ctx context.Context, actorID, quizID int64, patch QuizPatch) (domain.Quiz, error) {
	quiz, err := s.authorizeQuiz(ctx, actorID, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if patch.Title != nil {
		quiz.Title = *patch.Title
	}
	if patch.Description != nil {
		quiz.Description = *patch.Description
	}
	if patch.FrequencyInDays != nil {
		if *patch.FrequencyInDays <= 0 {
			return domain.Quiz{}, domain.ErrInvalidFrequency
		}
		quiz.FrequencyInDays = *patch.FrequencyInDays
	}
	quiz.UpdatedAt = s.now()
	if err := s.store.Quizzes().Update(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(ctx context.Context, actorID, quizID int64) error {
	if _, err := s.authorizeQuiz(ctx, actorID, quizID); err != nil {
		return err
	}
	if err := s.store.Quizzes().Delete(ctx, quizID); err != nil {
		return err
	}
	s.invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) CreateQuestion(ctx context.Context, actorID, quizID int64, text string) (domain.Question, error) {
	if _, err := s.authorizeQuiz(ctx, actorID, quizID); err != nil {
		return domain.Question{}, err
	}
	question := domain.Question{QuizID: quizID, Text: text, CreatedAt: s.now()}
	if err := s.store.Quizzes().CreateQuestion(ctx, &question); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx, quizID)
	return question, nil
}

func (s *QuizService) CreateAnswer(ctx context.Context, actorID, quizID int64, in AnswerCreate) (domain.Answer, error) {
	if _, err := s.authorizeQuiz(ctx, actorID, quizID); err != nil {
		return domain.Answer{}, err
	}
	question, err := s.store.Quizzes().GetQuestion(ctx, in.QuestionID)
	if err != nil {
		return domain.Answer{}, err
	}
	if question.QuizID != quizID {
		return domain.Answer{}, domain.ErrQuestionNotFound
	}
	answer := domain.Answer{QuestionID: question.ID, Text: in.Text, IsCorrect: in.IsCorrect, CreatedAt: s.now()}
	if err := s.store.Quizzes().CreateAnswer(ctx, &answer); err != nil {
		return domain.Answer{}, err
	}
	s.invalidate(ctx, quizID)
	return answer, nil
}

// StartAttempt returns the user's open attempt on the quiz, creating it if needed.
// The bool reports whether a new attempt was created.
func (s *QuizService) StartAttempt(ctx context.Context, userID, quizID int64) (domain.QuizAttempt, bool, error) {
	key, err := s.keys.AnswerKey(ctx, quizID)
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}
	if err := requireMember(ctx, s.store.Companies(), key.CompanyID, userID); err != nil {
		return domain.QuizAttempt{}, false, err
	}
	return openOrCreateAttempt(ctx, s.store.Attempts(), userID, quizID, s.now())
}

// SubmitAnswers scores the submission, stores the answers and the result, and consumes
// the attempt in one transaction. attemptID 0 uses (or opens) the user's current attempt.
func (s *QuizService) SubmitAnswers(ctx context.Context, userID, quizID, attemptID int64, submissions []domain.Submission) (domain.QuizResult, error) {
	if len(submissions) == 0 {
		return domain.QuizResult{}, domain.ErrEmptySubmission
	}
	key, err := s.keys.AnswerKey(ctx, quizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if err := requireMember(ctx, s.store.Companies(), key.CompanyID, userID); err != nil {
		return domain.QuizResult{}, err
	}

	score, correct, err := scoreSubmission(key, submissions)
	if err != nil {
		return domain.QuizResult{}, err
	}

	now := s.now()
	var result domain.QuizResult
	err = s.store.InTx(ctx, func(tx Store) error {
		attempt, err := s.resolveAttempt(ctx, tx.Attempts(), userID, quizID, attemptID, now)
		if err != nil {
			return err
		}

		answers := make([]domain.UserAnswer, 0, len(submissions))
		for _, sub := range submissions {
			answers = append(answers, domain.UserAnswer{
				QuizAttemptID:  attempt.ID,
				QuestionID:     sub.QuestionID,
				ChosenAnswerID: sub.ChosenAnswerID,
			})
		}
		if err := tx.Attempts().CreateUserAnswers(ctx, answers); err != nil {
			return err
		}

		result = domain.QuizResult{
			UserID:        userID,
			QuizID:        quizID,
			CompanyID:     key.CompanyID,
			QuizAttemptID: attempt.ID,
			Score:         score,
			Timestamp:     now,
		}
		if err := tx.Attempts().CreateResult(ctx, &result); err != nil {
			return err
		}
		return tx.Attempts().ConsumeAttempt(ctx, attempt.ID, now)
	})
	if err != nil {
		return domain.QuizResult{}, err
	}

	s.mirror(ctx, userID, key, submissions, correct)
	return result, nil
}

// ListQuizResults returns every result of the quiz to its company's administrators and
// only the caller's own results to everyone else.
func (s *QuizService) ListQuizResults(ctx context.Context, actorID, quizID int64) ([]domain.QuizResult, error) {
	quiz, err := s.store.Quizzes().Get(ctx, quizID)
	if err != nil {
		return nil, err
	}
	filter := domain.ResultFilter{QuizID: quizID}
	admin, err := isAdmin(ctx, s.store.Companies(), quiz.CompanyID, actorID)
	if err != nil {
		return nil, err
	}
	if !admin {
		filter.UserID = actorID
	}
	return s.store.Attempts().ListResults(ctx, filter)
}

// LastAnswers reads the user's mirrored answers for the quiz back from the cache.
func (s *QuizService) LastAnswers(ctx context.Context, userID, quizID int64) ([]domain.CachedAnswer, error) {
	key, err := s.keys.AnswerKey(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return nil, nil
	}
	questionIDs := make([]int64, 0, len(key.Questions))
	for id := range key.Questions {
		questionIDs = append(questionIDs, id)
	}
	sort.Slice(questionIDs, func(i, j int) bool { return questionIDs[i] < questionIDs[j] })
	return s.cache.Get(ctx, userID, quizID, questionIDs)
}

func (s *QuizService) resolveAttempt(ctx context.Context, attempts AttemptRepository, userID, quizID, attemptID int64, now time.Time) (domain.QuizAttempt, error) {
	if attemptID == 0 {
		attempt, _, err := openOrCreateAttempt(ctx, attempts, userID, quizID, now)
		return attempt, err
	}
	attempt, err := attempts.GetAttempt(ctx, attemptID)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	if attempt.UserID != userID || attempt.QuizID != quizID {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	if !attempt.Open() {
		return domain.QuizAttempt{}, domain.ErrAttemptConsumed
	}
	return attempt, nil
}

func (s *QuizService) mirror(ctx context.Context, userID int64, key domain.AnswerKey, submissions []domain.Submission, correct []bool) {
	if s.cache == nil {
		return
	}
	cached := make([]domain.CachedAnswer, 0, len(submissions))
	for i, sub := range submissions {
		cached = append(cached, domain.CachedAnswer{
			UserID:         userID,
			QuizID:         key.QuizID,
			QuestionID:     sub.QuestionID,
			ChosenAnswerID: sub.ChosenAnswerID,
			IsCorrect:      correct[i],
			CompanyID:      key.CompanyID,
		})
	}
	if err := s.cache.Put(ctx, cached); err != nil {
		log.Printf("[WARN] mirror answers user=%d quiz=%d: %v", userID, key.QuizID, err)
	}
}

func (s *QuizService) authorizeQuiz(ctx context.Context, actorID, quizID int64) (domain.Quiz, error) {
	quiz, err := s.store.Quizzes().Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	company, err := s.store.Companies().Get(ctx, quiz.CompanyID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := requireAdmin(ctx, s.store.Companies(), company, actorID); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *QuizService) invalidate(ctx context.Context, quizID int64) {
	if err := s.keys.Invalidate(ctx, quizID); err != nil {
		log.Printf("[WARN] invalidate answer key quiz=%d: %v", quizID, err)
	}
}

// openOrCreateAttempt reuses the open attempt of the pair. When a concurrent request
// wins the creation race, the winner's attempt is returned instead.
func openOrCreateAttempt(ctx context.Context, attempts AttemptRepository, userID, quizID int64, now time.Time) (domain.QuizAttempt, bool, error) {
	attempt, err := attempts.OpenAttempt(ctx, userID, quizID)
	if err == nil {
		return attempt, false, nil
	}
	if !errors.Is(err, domain.ErrAttemptNotFound) {
		return domain.QuizAttempt{}, false, err
	}

	attempt = domain.QuizAttempt{UserID: userID, QuizID: quizID, StartedAt: now}
	err = attempts.CreateAttempt(ctx, &attempt)
	if errors.Is(err, domain.ErrAttemptAlreadyOpen) {
		attempt, err = attempts.OpenAttempt(ctx, userID, quizID)
		return attempt, false, err
	}
	if err != nil {
		return domain.QuizAttempt{}, false, err
	}
	return attempt, true, nil
}

// scoreSubmission validates the answers against the quiz's answer key and returns the
// number of correct answers along with the correctness of each submission.
func scoreSubmission(key domain.AnswerKey, submissions []domain.Submission) (int, []bool, error) {
	seen := make(map[int64]struct{}, len(submissions))
	correct := make([]bool, len(submissions))
	score := 0
	for i, sub := range submissions {
		answers, ok := key.Questions[sub.QuestionID]
		if !ok {
			return 0, nil, domain.ErrQuestionNotFound
		}
		if _, dup := seen[sub.QuestionID]; dup {
			return 0, nil, domain.ErrDuplicateQuestion
		}
		seen[sub.QuestionID] = struct{}{}

		isCorrect, ok := answers[sub.ChosenAnswerID]
		if !ok {
			return 0, nil, domain.ErrAnswerNotFound
		}
		if isCorrect {
			correct[i] = true
			score++
		}
	}
	return score, correct, nil
}
