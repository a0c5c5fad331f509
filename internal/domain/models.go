package domain

import "time"

// User is an account that can own companies, join them and take quizzes.
type User struct {
	ID           int64     `json:"id" bun:"id,pk,autoincrement"`
	Username     string    `json:"username" bun:"username,notnull,unique"`
	Email        string    `json:"email" bun:"email,notnull"`
	FirstName    string    `json:"first_name" bun:"first_name"`
	LastName     string    `json:"last_name" bun:"last_name"`
	PasswordHash string    `json:"-" bun:"password_hash,notnull"`
	CreatedAt    time.Time `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt    time.Time `json:"updated_at" bun:"updated_at,notnull"`
}

// Company groups members that take the company's quizzes.
// MemberIDs and AdministratorIDs are filled on reads from the join tables.
type Company struct {
	ID               int64     `json:"id" bun:"id,pk,autoincrement"`
	OwnerID          int64     `json:"owner" bun:"owner_id,notnull"`
	Name             string    `json:"name" bun:"name"`
	Description      string    `json:"description" bun:"description"`
	IsVisible        bool      `json:"is_visible" bun:"is_visible"`
	MemberIDs        []int64   `json:"members" bun:"-"`
	AdministratorIDs []int64   `json:"administrators" bun:"-"`
	CreatedAt        time.Time `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt        time.Time `json:"updated_at" bun:"updated_at,notnull"`
}

// CompanyMember is a row of the company_members join table.
type CompanyMember struct {
	CompanyID int64 `bun:"company_id,pk"`
	UserID    int64 `bun:"user_id,pk"`
}

// CompanyAdministrator is a row of the company_administrators join table.
type CompanyAdministrator struct {
	CompanyID int64 `bun:"company_id,pk"`
	UserID    int64 `bun:"user_id,pk"`
}

// InvitationStatus is the state of a company/user membership handshake.
type InvitationStatus string

const (
	InvitationInvited   InvitationStatus = "invited"
	InvitationRequested InvitationStatus = "requested"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationRejected  InvitationStatus = "rejected"
	InvitationCanceled  InvitationStatus = "canceled"
)

// Active reports whether the invitation still awaits an answer.
func (s InvitationStatus) Active() bool {
	return s == InvitationInvited || s == InvitationRequested
}

// Invitation tracks an invite sent by a company or a join request sent by a user.
type Invitation struct {
	ID        int64            `json:"id" bun:"id,pk,autoincrement"`
	CompanyID int64            `json:"company" bun:"company_id,notnull"`
	UserID    int64            `json:"invited_user" bun:"user_id,notnull"`
	Status    InvitationStatus `json:"status" bun:"status,notnull"`
	CreatedAt time.Time        `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt time.Time        `json:"updated_at" bun:"updated_at,notnull"`
}

// Quiz is a set of questions owned by a company and retaken every FrequencyInDays.
type Quiz struct {
	ID              int64      `json:"id" bun:"id,pk,autoincrement"`
	CompanyID       int64      `json:"company" bun:"company_id,notnull"`
	Title           string     `json:"title" bun:"title,notnull"`
	Description     string     `json:"description" bun:"description"`
	FrequencyInDays int        `json:"frequency_in_days" bun:"frequency_in_days,notnull"`
	Questions       []Question `json:"questions" bun:"-"`
	CreatedAt       time.Time  `json:"created_at" bun:"created_at,notnull"`
	UpdatedAt       time.Time  `json:"updated_at" bun:"updated_at,notnull"`
}

// Question belongs to exactly one quiz.
type Question struct {
	ID        int64     `json:"id" bun:"id,pk,autoincrement"`
	QuizID    int64     `json:"quiz" bun:"quiz_id,notnull"`
	Text      string    `json:"text" bun:"text,notnull"`
	Answers   []Answer  `json:"answers" bun:"-"`
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull"`
}

// Answer is a selectable option of a question.
type Answer struct {
	ID         int64     `json:"id" bun:"id,pk,autoincrement"`
	QuestionID int64     `json:"question" bun:"question_id,notnull"`
	Text       string    `json:"text" bun:"text,notnull"`
	IsCorrect  bool      `json:"is_correct" bun:"is_correct"`
	CreatedAt  time.Time `json:"created_at" bun:"created_at,notnull"`
}

// QuizAttempt is open until a result consumes it.
type QuizAttempt struct {
	ID         int64      `json:"id" bun:"id,pk,autoincrement"`
	UserID     int64      `json:"user" bun:"user_id,notnull"`
	QuizID     int64      `json:"quiz" bun:"quiz_id,notnull"`
	StartedAt  time.Time  `json:"started_at" bun:"started_at,notnull"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty" bun:"consumed_at"`
}

// Open reports whether no result has consumed the attempt yet.
func (a QuizAttempt) Open() bool {
	return a.ConsumedAt == nil
}

// UserAnswer is the answer chosen for one question within an attempt. Immutable.
type UserAnswer struct {
	ID             int64 `json:"id" bun:"id,pk,autoincrement"`
	QuizAttemptID  int64 `json:"quiz_attempt" bun:"quiz_attempt_id,notnull"`
	QuestionID     int64 `json:"question" bun:"question_id,notnull"`
	ChosenAnswerID int64 `json:"chosen_answer" bun:"chosen_answer_id,notnull"`
}

// QuizResult is the scored outcome of an attempt. Score is the raw count of correct answers.
type QuizResult struct {
	ID            int64     `json:"id" bun:"id,pk,autoincrement"`
	UserID        int64     `json:"user" bun:"user_id,notnull"`
	QuizID        int64     `json:"quiz" bun:"quiz_id,notnull"`
	CompanyID     int64     `json:"company" bun:"company_id,notnull"`
	QuizAttemptID int64     `json:"quiz_attempt" bun:"quiz_attempt_id,notnull"`
	Score         int       `json:"score" bun:"score,notnull"`
	Timestamp     time.Time `json:"timestamp" bun:"timestamp,notnull"`
}

// NotificationStatus marks whether the user has seen a notification.
type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

// Notification is a persisted message for a user.
type Notification struct {
	ID        int64              `json:"id" bun:"id,pk,autoincrement"`
	UserID    int64              `json:"user" bun:"user_id,notnull"`
	Status    NotificationStatus `json:"status" bun:"status,notnull"`
	Text      string             `json:"text" bun:"text,notnull"`
	CreatedAt time.Time          `json:"created_at" bun:"created_at,notnull"`
}

// NotificationMessage is what gets pushed over a user's realtime channel.
type NotificationMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Page bounds a list query. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}
