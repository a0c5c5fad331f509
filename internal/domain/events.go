package domain

// Event is emitted by the use-case layer after the store commits a change.
type Event interface {
	EventName() string
}

// QuizCreated is emitted once a quiz and its questions are persisted.
type QuizCreated struct {
	Quiz Quiz
}

func (QuizCreated) EventName() string { return "quiz.created" }
