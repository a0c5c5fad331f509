package domain

import "time"

// Scope narrows which user answers an aggregation counts. Zero fields are unrestricted,
// so the zero Scope is the global scope.
type Scope struct {
	UserID    int64
	QuizID    int64
	CompanyID int64
}

func ScopeGlobal() Scope { return Scope{} }
func ScopeUser(userID int64) Scope { return Scope{UserID: userID} }
func ScopeQuiz(quizID int64) Scope { return Scope{QuizID: quizID} }
func ScopeCompany(companyID int64) Scope { return Scope{CompanyID: companyID} }
func ScopeAllCompanies(userID int64) Scope { return ScopeUser(userID) }

// ForUser restricts the scope to a single user's answers.
func (s Scope) ForUser(userID int64) Scope {
	s.UserID = userID
	return s
}

// DailyTally counts answers on results dated Day (UTC midnight).
type DailyTally struct {
	Day     time.Time
	Correct int
	Total   int
}

// ScorePoint is one point of a cumulative average series.
type ScorePoint struct {
	Date         string  `json:"date"`
	AverageScore float64 `json:"average_score"`
}

// UserScoreSeries is the cumulative average series of one user.
type UserScoreSeries struct {
	User        string       `json:"user"`
	ResultsData []ScorePoint `json:"results_data"`
}

// ResultFilter selects quiz results. Zero fields are unrestricted.
type ResultFilter struct {
	UserID      int64
	QuizID      int64
	CompanyID   int64
	MembersOnly bool
}

// ResultRow is a quiz result joined with the names shown in reports and exports.
type ResultRow struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	QuizID      int64     `json:"quiz_id"`
	QuizTitle   string    `json:"quiz_title"`
	Score       int       `json:"score"`
	CompanyID   int64     `json:"company_id"`
	CompanyName string    `json:"company"`
	Timestamp   time.Time `json:"timestamp"`
}

// Completion is the latest result time of a user on a quiz.
type Completion struct {
	UserID int64
	QuizID int64
	At     time.Time
}

// AnswerKey maps each question of a quiz to its answers and their correctness.
type AnswerKey struct {
	QuizID    int64
	CompanyID int64
	Questions map[int64]map[int64]bool
}

// Submission is one chosen answer sent by a quiz taker.
type Submission struct {
	QuestionID     int64 `json:"question" validate:"required"`
	ChosenAnswerID int64 `json:"chosen_answer" validate:"required"`
}

// CachedAnswer mirrors a submitted answer in the fast-lookup cache.
type CachedAnswer struct {
	UserID         int64 `json:"user_id"`
	QuizID         int64 `json:"quiz_id"`
	QuestionID     int64 `json:"question_id"`
	ChosenAnswerID int64 `json:"chosen_answer"`
	IsCorrect      bool  `json:"is_correct"`
	CompanyID      int64 `json:"company_id"`
}
