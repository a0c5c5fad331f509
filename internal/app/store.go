package app

import (
	"context"
	"time"

	"company-quiz-service/internal/domain"
)

// Store abstracts the relational entity store (in-memory, Postgres, etc).
type Store interface {
	Users() UserRepository
	Companies() CompanyRepository
	Invitations() InvitationRepository
	Quizzes() QuizRepository
	Attempts() AttemptRepository
	Notifications() NotificationRepository

	// InTx runs fn against a transactional view of the store. A non-nil error from fn
	// rolls every write back.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id int64) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	List(ctx context.Context, page domain.Page) ([]domain.User, int, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
}

type CompanyRepository interface {
	// Create persists the company and registers the owner as member and administrator.
	Create(ctx context.Context, company *domain.Company) error
	Get(ctx context.Context, id int64) (domain.Company, error)
	// List returns visible companies plus those viewerID belongs to.
	List(ctx context.Context, viewerID int64, page domain.Page) ([]domain.Company, int, error)
	ListAll(ctx context.Context) ([]domain.Company, error)
	// Update saves header fields and re-asserts the owner as administrator.
	Update(ctx context.Context, company *domain.Company) error
	Delete(ctx context.Context, id int64) error

	AddMember(ctx context.Context, companyID, userID int64) error
	RemoveMember(ctx context.Context, companyID, userID int64) error
	IsMember(ctx context.Context, companyID, userID int64) (bool, error)
	Members(ctx context.Context, companyID int64) ([]domain.User, error)

	AddAdministrator(ctx context.Context, companyID, userID int64) error
	RemoveAdministrator(ctx context.Context, companyID, userID int64) error
	IsAdministrator(ctx context.Context, companyID, userID int64) (bool, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, inv *domain.Invitation) error
	// Find returns the newest invitation of the pair in the given status.
	Find(ctx context.Context, companyID, userID int64, status domain.InvitationStatus) (domain.Invitation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.InvitationStatus, at time.Time) error
	ListByUser(ctx context.Context, userID int64, status domain.InvitationStatus) ([]domain.Invitation, error)
	ListByCompany(ctx context.Context, companyID int64, status domain.InvitationStatus) ([]domain.Invitation, error)
}

type QuizRepository interface {
	// Create persists the quiz with its nested questions and answers, filling their ids.
	Create(ctx context.Context, quiz *domain.Quiz) error
	Get(ctx context.Context, id int64) (domain.Quiz, error)
	List(ctx context.Context, companyID int64, page domain.Page) ([]domain.Quiz, int, error)
	Update(ctx context.Context, quiz *domain.Quiz) error
	Delete(ctx context.Context, id int64) error
	CreateQuestion(ctx context.Context, question *domain.Question) error
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	CreateAnswer(ctx context.Context, answer *domain.Answer) error
	LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
}

type AttemptRepository interface {
	// CreateAttempt fails with domain.ErrAttemptAlreadyOpen if the pair has an open attempt.
	CreateAttempt(ctx context.Context, attempt *domain.QuizAttempt) error
	OpenAttempt(ctx context.Context, userID, quizID int64) (domain.QuizAttempt, error)
	GetAttempt(ctx context.Context, id int64) (domain.QuizAttempt, error)
	ConsumeAttempt(ctx context.Context, id int64, at time.Time) error
	CreateUserAnswers(ctx context.Context, answers []domain.UserAnswer) error
	CreateResult(ctx context.Context, result *domain.QuizResult) error
	ListResults(ctx context.Context, filter domain.ResultFilter) ([]domain.QuizResult, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

// AnalyticsRepository serves the read-side aggregation queries.
type AnalyticsRepository interface {
	// DailyTallies counts user answers reachable through scope, grouped by the UTC date of
	// their result, ascending.
	DailyTallies(ctx context.Context, scope domain.Scope) ([]domain.DailyTally, error)
	ResultRows(ctx context.Context, filter domain.ResultFilter) ([]domain.ResultRow, error)
	// LastCompletions returns the latest result time per (user, quiz) within a company.
	LastCompletions(ctx context.Context, companyID int64) ([]domain.Completion, error)
}

// AnswerKeyRepository serves answer keys for scoring (cache/backing store).
type AnswerKeyRepository interface {
	AnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
	Invalidate(ctx context.Context, quizID int64) error
}

// AnswerCache mirrors submitted answers for fast lookups. Not authoritative.
type AnswerCache interface {
	Put(ctx context.Context, answers []domain.CachedAnswer) error
	Get(ctx context.Context, userID, quizID int64, questionIDs []int64) ([]domain.CachedAnswer, error)
}

// Publisher delivers a realtime message to one user's channel. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, userID int64, msg domain.NotificationMessage) error
}
