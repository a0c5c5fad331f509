package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type invitationRepo struct{ db bun.IDB }

func (r invitationRepo) Create(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.NewInsert().Model(inv).Exec(ctx)
	if violates(err, activeInviteConstraint) {
		return domain.ErrInvitationPending
	}
	if foreignKeyMissing(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r invitationRepo) Find(ctx context.Context, companyID, userID int64, status domain.InvitationStatus) (domain.Invitation, error) {
	var inv domain.Invitation
	err := r.db.NewSelect().Model(&inv).
		Where("company_id = ? AND user_id = ? AND status = ?", companyID, userID, status).
		Order("id DESC").Limit(1).Scan(ctx)
	return inv, notFound(err, domain.ErrInvitationNotFound)
}

func (r invitationRepo) UpdateStatus(ctx context.Context, id int64, status domain.InvitationStatus, at time.Time) error {
	res, err := r.db.NewUpdate().Model((*domain.Invitation)(nil)).
		Set("status = ?", status).Set("updated_at = ?", at).
		Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	return affected(res, domain.ErrInvitationNotFound)
}

func (r invitationRepo) ListByUser(ctx context.Context, userID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	return r.list(ctx, "user_id", userID, status)
}

func (r invitationRepo) ListByCompany(ctx context.Context, companyID int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	return r.list(ctx, "company_id", companyID, status)
}

func (r invitationRepo) list(ctx context.Context, column string, id int64, status domain.InvitationStatus) ([]domain.Invitation, error) {
	invitations := make([]domain.Invitation, 0)
	q := r.db.NewSelect().Model(&invitations).Where("? = ?", bun.Ident(column), id).Order("id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

type quizRepo struct{ db bun.IDB }

func (r quizRepo) Create(ctx context.Context, quiz *domain.Quiz) error {
	_, err := r.db.NewInsert().Model(quiz).Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrCompanyNotFound
	}
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		q.QuizID = quiz.ID
		if _, err := r.db.NewInsert().Model(q).Exec(ctx); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		if len(q.Answers) == 0 {
			continue
		}
		for j := range q.Answers {
			q.Answers[j].QuestionID = q.ID
		}
		if _, err := r.db.NewInsert().Model(&q.Answers).Exec(ctx); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
	}
	return nil
}

func (r quizRepo) Get(ctx context.Context, id int64) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := r.db.NewSelect().Model(&quiz).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound)
	}
	if err := r.hydrate(ctx, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (r quizRepo) hydrate(ctx context.Context, quiz *domain.Quiz) error {
	questions := make([]domain.Question, 0)
	if err := r.db.NewSelect().Model(&questions).Where("quiz_id = ?", quiz.ID).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	quiz.Questions = questions
	if len(questions) == 0 {
		return nil
	}

	ids := make([]int64, len(questions))
	index := make(map[int64]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		index[q.ID] = i
		quiz.Questions[i].Answers = make([]domain.Answer, 0)
	}
	var answers []domain.Answer
	if err := r.db.NewSelect().Model(&answers).Where("question_id IN (?)", bun.In(ids)).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	for _, a := range answers {
		i := index[a.QuestionID]
		quiz.Questions[i].Answers = append(quiz.Questions[i].Answers, a)
	}
	return nil
}

// List returns the company's quizzes, or all quizzes when companyID is 0.
func (r quizRepo) List(ctx context.Context, companyID int64, p domain.Page) ([]domain.Quiz, int, error) {
	quizzes := make([]domain.Quiz, 0)
	q := r.db.NewSelect().Model(&quizzes).Order("id ASC")
	if companyID != 0 {
		q = q.Where("company_id = ?", companyID)
	}
	total, err := page(q, p).ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}
	for i := range quizzes {
		if err := r.hydrate(ctx, &quizzes[i]); err != nil {
			return nil, 0, err
		}
	}
	return quizzes, total, nil
}

func (r quizRepo) Update(ctx context.Context, quiz *domain.Quiz) error {
	res, err := r.db.NewUpdate().Model(quiz).
		Column("title", "description", "frequency_in_days", "updated_at").
		WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return affected(res, domain.ErrQuizNotFound)
}

func (r quizRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().Model((*domain.Quiz)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return affected(res, domain.ErrQuizNotFound)
}

func (r quizRepo) CreateQuestion(ctx context.Context, question *domain.Question) error {
	_, err := r.db.NewInsert().Model(question).Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (r quizRepo) GetQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	if err := r.db.NewSelect().Model(&q).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Question{}, notFound(err, domain.ErrQuestionNotFound)
	}
	q.Answers = make([]domain.Answer, 0)
	if err := r.db.NewSelect().Model(&q.Answers).Where("question_id = ?", id).Order("id ASC").Scan(ctx); err != nil {
		return domain.Question{}, fmt.Errorf("load answers: %w", err)
	}
	return q, nil
}

func (r quizRepo) CreateAnswer(ctx context.Context, answer *domain.Answer) error {
	_, err := r.db.NewInsert().Model(answer).Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrQuestionNotFound
	}
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (r quizRepo) LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	quiz, err := r.Get(ctx, quizID)
	if err != nil {
		return domain.AnswerKey{}, err
	}
	key := domain.AnswerKey{QuizID: quiz.ID, CompanyID: quiz.CompanyID, Questions: make(map[int64]map[int64]bool, len(quiz.Questions))}
	for _, q := range quiz.Questions {
		answers := make(map[int64]bool, len(q.Answers))
		for _, a := range q.Answers {
			answers[a.ID] = a.IsCorrect
		}
		key.Questions[q.ID] = answers
	}
	return key, nil
}

type attemptRepo struct{ db bun.IDB }

// CreateAttempt skips the insert when the pair already has an open attempt. A unique
// violation would abort the surrounding transaction, so the conflict is not raised.
func (r attemptRepo) CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error {
	attempt.ID = 0
	_, err := r.db.NewInsert().Model(attempt).
		On("CONFLICT (user_id, quiz_id) WHERE consumed_at IS NULL DO NOTHING").
		Returning("id").
		Exec(ctx)
	if errors.Is(err, sql.ErrNoRows) || violates(err, openAttemptConstraint) || (err == nil && attempt.ID == 0) {
		return domain.ErrAttemptAlreadyOpen
	}
	if foreignKeyMissing(err) {
		return domain.ErrQuizNotFound
	}
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (r attemptRepo) OpenAttempt(ctx context.Context, userID, quizID int64) (domain.QuizAttempt, error) {
	var a domain.QuizAttempt
	err := r.db.NewSelect().Model(&a).
		Where("user_id = ? AND quiz_id = ? AND consumed_at IS NULL", userID, quizID).
		Limit(1).Scan(ctx)
	return a, notFound(err, domain.ErrAttemptNotFound)
}

func (r attemptRepo) GetAttempt(ctx context.Context, id int64) (domain.QuizAttempt, error) {
	var a domain.QuizAttempt
	err := r.db.NewSelect().Model(&a).Where("id = ?", id).Scan(ctx)
	return a, notFound(err, domain.ErrAttemptNotFound)
}

func (r attemptRepo) ConsumeAttempt(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.NewUpdate().Model((*domain.QuizAttempt)(nil)).
		Set("consumed_at = ?", at).
		Where("id = ? AND consumed_at IS NULL", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("consume attempt: %w", err)
	}
	if err := affected(res, domain.ErrAttemptConsumed); err != nil {
		if _, getErr := r.GetAttempt(ctx, id); getErr != nil {
			return getErr
		}
		return err
	}
	return nil
}

func (r attemptRepo) CreateUserAnswers(ctx context.Context, answers []domain.UserAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&answers).Exec(ctx); err != nil {
		return fmt.Errorf("insert user answers: %w", err)
	}
	return nil
}

func (r attemptRepo) CreateResult(ctx context.Context, result *domain.QuizResult) error {
	if _, err := r.db.NewInsert().Model(result).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r attemptRepo) ListResults(ctx context.Context, f domain.ResultFilter) ([]domain.QuizResult, error) {
	results := make([]domain.QuizResult, 0)
	q := r.db.NewSelect().Model(&results)
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.QuizID != 0 {
		q = q.Where("quiz_id = ?", f.QuizID)
	}
	if f.CompanyID != 0 {
		q = q.Where("company_id = ?", f.CompanyID)
	}
	if f.MembersOnly {
		q = q.Where("EXISTS (SELECT 1 FROM company_members m WHERE m.company_id = ?TableAlias.company_id AND m.user_id = ?TableAlias.user_id)")
	}
	if err := q.Order("timestamp ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

type notificationRepo struct{ db bun.IDB }

func (r notificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.NewInsert().Model(n).Exec(ctx)
	if foreignKeyMissing(err) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r notificationRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error) {
	items := make([]domain.Notification, 0)
	err := r.db.NewSelect().Model(&items).Where("user_id = ?", userID).
		Order("created_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.NewUpdate().Model((*domain.Notification)(nil)).
		Set("status = ?", domain.NotificationRead).
		Where("user_id = ? AND status <> ?", userID, domain.NotificationRead).Exec(ctx)
	if err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
