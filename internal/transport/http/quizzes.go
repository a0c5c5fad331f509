package http

import (
	"net/http"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

type submitRequest struct {
	AttemptID int64               `json:"attempt"`
	Answers   []domain.Submission `json:"answers" validate:"dive"`
}

type questionRequest struct {
	Text string `json:"text" validate:"required"`
}

func (a *api) createQuiz(w http.ResponseWriter, r *http.Request) {
	var in app.QuizInput
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := a.Quizzes.CreateQuiz(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

// listQuizzes accepts ?company= to narrow the list.
func (a *api) listQuizzes(w http.ResponseWriter, r *http.Request) {
	p, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	companyID, err := queryID(r, "company")
	if err != nil {
		writeError(w, r, err)
		return
	}
	quizzes, total, err := a.Quizzes.ListQuizzes(r.Context(), companyID, p.bounds())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(r, p, quizzes, total))
}

func (a *api) getQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := a.Quizzes.GetQuiz(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *api) updateQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch app.QuizPatch
	if err := a.decode(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	quiz, err := a.Quizzes.UpdateQuiz(r.Context(), actor(r), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (a *api) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.Quizzes.DeleteQuiz(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startAttempt replies 201 when a new attempt was opened and 200 when the open one is returned.
func (a *api) startAttempt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	attempt, created, err := a.Quizzes.StartAttempt(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, attempt)
}

func (a *api) submitAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req submitRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := a.Quizzes.SubmitAnswers(r.Context(), actor(r), id, req.AttemptID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *api) createQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req questionRequest
	if err := a.decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	question, err := a.Quizzes.CreateQuestion(r.Context(), actor(r), id, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (a *api) createAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in app.AnswerCreate
	if err := a.decode(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	answer, err := a.Quizzes.CreateAnswer(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, answer)
}

func (a *api) listQuizResults(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := a.Quizzes.ListQuizResults(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *api) lastAnswers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	answers, err := a.Quizzes.LastAnswers(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}
