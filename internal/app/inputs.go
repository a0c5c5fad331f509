package app

// Request payloads accepted by the use cases. Validation tags are enforced at the
// transport boundary before the use case runs.

type UserInput struct {
	Username  string `json:"username" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"omitempty,min=6"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

type CompanyInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	IsVisible   *bool  `json:"is_visible"`
}

type AnswerInput struct {
	Text      string `json:"text" validate:"required,max=255"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionInput struct {
	Text    string        `json:"text" validate:"required"`
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

type QuizInput struct {
	CompanyID       int64           `json:"company" validate:"required"`
	Title           string          `json:"title" validate:"required,max=255"`
	Description     string          `json:"description"`
	FrequencyInDays int             `json:"frequency_in_days" validate:"required,gt=0"`
	Questions       []QuestionInput `json:"questions" validate:"dive"`
}

// QuizPatch updates only the fields that are set.
type QuizPatch struct {
	Title           *string `json:"title" validate:"omitempty,max=255"`
	Description     *string `json:"description"`
	FrequencyInDays *int    `json:"frequency_in_days" validate:"omitempty,gt=0"`
}

type AnswerCreate struct {
	QuestionID int64  `json:"question" validate:"required"`
	Text       string `json:"text" validate:"required,max=255"`
	IsCorrect  bool   `json:"is_correct"`
}
