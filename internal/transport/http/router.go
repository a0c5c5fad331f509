package http

import (
	"net/http"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"github.com/go-playground/validator/v10"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Users     *app.UserService
	Companies *app.CompanyService
	Quizzes   *app.QuizService
	Analytics *app.AnalyticsService
	Hub       *app.Hub
	Tokens    *auth.Tokens
}

type api struct {
	Services
	validator *validator.Validate
}

// NewRouter builds the REST and websocket routes wrapped in request id, logging and recovery middleware.
func NewRouter(s Services) http.Handler {
	a := &api{Services: s, validator: newValidator()}
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.HandlerFunc { return authenticated(s.Tokens, h) }

	mux.HandleFunc("GET /healthz", a.health)
	mux.HandleFunc("POST /auth/token/{$}", a.login)

	mux.HandleFunc("POST /users/{$}", a.createUser)
	mux.HandleFunc("GET /users/{$}", protect(a.listUsers))
	mux.HandleFunc("GET /users/all-average-scores-over-time/{$}", protect(a.allUsersSeries))
	mux.HandleFunc("GET /users/{id}/{$}", protect(a.getUser))
	mux.HandleFunc("PUT /users/{id}/{$}", protect(a.updateUser))
	mux.HandleFunc("DELETE /users/{id}/{$}", protect(a.deleteUser))
	mux.HandleFunc("POST /users/{id}/accept_invitation/{$}", protect(a.userAction(a.Companies.AcceptInvitation, "invitation accepted")))
	mux.HandleFunc("POST /users/{id}/decline_invitation/{$}", protect(a.userAction(a.Companies.DeclineInvitation, "invitation declined")))
	mux.HandleFunc("POST /users/{id}/send_request/{$}", protect(a.sendRequest))
	mux.HandleFunc("POST /users/{id}/revoke_request/{$}", protect(a.userAction(a.Companies.RevokeRequest, "request revoked")))
	mux.HandleFunc("POST /users/{id}/leave_company/{$}", protect(a.userAction(a.Companies.LeaveCompany, "left the company")))
	mux.HandleFunc("GET /users/{id}/list_invites/{$}", protect(a.userInvitations))
	mux.HandleFunc("GET /users/{id}/list_requests/{$}", protect(a.userRequests))
	mux.HandleFunc("GET /users/{id}/notifications/{$}", protect(a.userNotifications))
	mux.HandleFunc("GET /users/{id}/average-score-all-companies/{$}", protect(a.userAllCompanies))
	mux.HandleFunc("GET /users/{id}/average-scores-over-time/{$}", protect(a.userSeries))

	mux.HandleFunc("POST /company/{$}", protect(a.createCompany))
	mux.HandleFunc("GET /company/{$}", protect(a.listCompanies))
	mux.HandleFunc("GET /company/{id}/{$}", protect(a.getCompany))
	mux.HandleFunc("PUT /company/{id}/{$}", protect(a.updateCompany))
	mux.HandleFunc("DELETE /company/{id}/{$}", protect(a.deleteCompany))
	mux.HandleFunc("POST /company/{id}/send_invitation/{$}", protect(a.sendInvitation))
	mux.HandleFunc("POST /company/{id}/revoke_invitation/{$}", protect(a.companyAction(a.Companies.RevokeInvitation, "invitation revoked")))
	mux.HandleFunc("POST /company/{id}/accept_request/{$}", protect(a.companyAction(a.Companies.AcceptRequest, "request accepted")))
	mux.HandleFunc("POST /company/{id}/reject_request/{$}", protect(a.companyAction(a.Companies.RejectRequest, "request rejected")))
	mux.HandleFunc("POST /company/{id}/remove_member/{$}", protect(a.companyAction(a.Companies.RemoveMember, "member removed")))
	mux.HandleFunc("POST /company/{id}/appoint_administrator/{$}", protect(a.companyAction(a.Companies.AppointAdministrator, "administrator appointed")))
	mux.HandleFunc("POST /company/{id}/remove_administrator/{$}", protect(a.companyAction(a.Companies.RemoveAdministrator, "administrator removed")))
	mux.HandleFunc("GET /company/{id}/list_invites/{$}", protect(a.companyInvitations))
	mux.HandleFunc("GET /company/{id}/list_requests/{$}", protect(a.companyRequests))
	mux.HandleFunc("GET /company/{id}/average_score/{$}", protect(a.companyAverage))
	mux.HandleFunc("GET /company/{id}/get-results/{$}", protect(a.companyResults))
	mux.HandleFunc("GET /company/{id}/member-results/{$}", protect(a.memberResults))
	mux.HandleFunc("GET /company/{id}/member-results/export-csv", protect(a.exportCSV))
	mux.HandleFunc("GET /company/{id}/member-results/export-json", protect(a.exportJSON))
	mux.HandleFunc("GET /company/{id}/recent-quiz-completions/{$}", protect(a.recentCompletions))
	mux.HandleFunc("GET /company/{id}/users-last-test-time/{$}", protect(a.usersLastTestTime))

	mux.HandleFunc("POST /quizzes/{$}", protect(a.createQuiz))
	mux.HandleFunc("GET /quizzes/{$}", protect(a.listQuizzes))
	mux.HandleFunc("GET /quizzes/{id}/{$}", protect(a.getQuiz))
	mux.HandleFunc("PATCH /quizzes/{id}/{$}", protect(a.updateQuiz))
	mux.HandleFunc("PUT /quizzes/{id}/{$}", protect(a.updateQuiz))
	mux.HandleFunc("DELETE /quizzes/{id}/{$}", protect(a.deleteQuiz))
	mux.HandleFunc("POST /quizzes/{id}/start_attempt/{$}", protect(a.startAttempt))
	mux.HandleFunc("POST /quizzes/{id}/submit_answers/{$}", protect(a.submitAnswers))
	mux.HandleFunc("POST /quizzes/{id}/create-question/{$}", protect(a.createQuestion))
	mux.HandleFunc("POST /quizzes/{id}/create-answer/{$}", protect(a.createAnswer))
	mux.HandleFunc("GET /quizzes/{id}/average-scores-over-time/{$}", protect(a.quizSeries))
	mux.HandleFunc("GET /quizzes/{id}/user-score/{$}", protect(a.quizUserScore))
	mux.HandleFunc("GET /quizzes/{id}/list_quiz_results/{$}", protect(a.listQuizResults))
	mux.HandleFunc("GET /quizzes/{id}/last-answers/{$}", protect(a.lastAnswers))

	if s.Hub != nil {
		mux.Handle("GET /ws/notifications", NewNotificationsHandler(s.Hub, s.Tokens))
	}

	return withRequestID(withLogging(withRecover(mux)))
}

func (a *api) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status_code": http.StatusOK, "detail": "ok", "result": "working"})
}
