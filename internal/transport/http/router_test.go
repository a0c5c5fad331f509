package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *httptest.Server
	hub    *app.Hub
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokens("test-secret", time.Hour)
	hub := app.NewHub()
	events := app.NewEventBus()
	events.Subscribe(app.NewNotifier(store, store, hub).HandleEvent)

	router := NewRouter(Services{
		Users:     app.NewUserService(store, tokens),
		Companies: app.NewCompanyService(store),
		Quizzes:   app.NewQuizService(store, memory.NewAnswerKeyCache(store.Quizzes(), time.Minute), memory.NewAnswerCache(48*time.Hour), events),
		Analytics: app.NewAnalyticsService(store, store),
		Hub:       hub,
		Tokens:    tokens,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, hub: hub, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte, http.Header) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out, resp.Header
}

func (e *testEnv) decode(t *testing.T, method, path, token string, body any, wantStatus int, dst any) {
	t.Helper()
	status, raw, _ := e.do(t, method, path, token, body)
	require.Equal(t, wantStatus, status, string(raw))
	if dst != nil {
		require.NoError(t, json.Unmarshal(raw, dst))
	}
}

// signUp creates a user and logs them in.
func (e *testEnv) signUp(t *testing.T, username string) (domain.User, string) {
	t.Helper()
	var user domain.User
	e.decode(t, http.MethodPost, "/users/", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret-pass",
	}, http.StatusCreated, &user)

	var login struct {
		Token string `json:"token"`
	}
	e.decode(t, http.MethodPost, "/auth/token/", "", map[string]string{
		"username": username,
		"password": "secret-pass",
	}, http.StatusOK, &login)
	require.NotEmpty(t, login.Token)
	return user, login.Token
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	status, raw, header := env.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"status_code":200,"detail":"ok","result":"working"}`, string(raw))
	require.NotEmpty(t, header.Get("X-Request-ID"))
}

func TestRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	status, _, _ := env.do(t, http.MethodGet, "/users/", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _, _ = env.do(t, http.MethodGet, "/users/", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateUserValidation(t *testing.T) {
	env := newTestEnv(t)
	var body errorBody
	env.decode(t, http.MethodPost, "/users/", "", map[string]string{"email": "nope"}, http.StatusBadRequest, &body)
	require.Contains(t, body.Fields, "username")
	require.Contains(t, body.Fields, "email")

	env.signUp(t, "alice")
	env.decode(t, http.MethodPost, "/users/", "", map[string]string{
		"username": "alice",
		"email":    "alice2@example.com",
		"password": "secret-pass",
	}, http.StatusBadRequest, &body)
	require.Contains(t, body.Fields, "username")
}

func TestUserCannotModifyAnotherUser(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signUp(t, "alice")
	_, bobToken := env.signUp(t, "bob")

	status, _, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/users/%d/", alice.ID), bobToken, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestListUsersPaginates(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "u1")
	env.signUp(t, "u2")
	env.signUp(t, "u3")

	var page pageResponse[domain.User]
	env.decode(t, http.MethodGet, "/users/?page_size=2", token, nil, http.StatusOK, &page)
	require.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	require.Nil(t, page.Previous)

	env.decode(t, http.MethodGet, *page.Next, token, nil, http.StatusOK, &page)
	require.Len(t, page.Results, 1)
	require.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
}

func TestListUsersRejectsOverflowingPage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp(t, "u1")

	var body errorBody
	env.decode(t, http.MethodGet, "/users/?page=4611686018427387904&page_size=100", token, nil, http.StatusBadRequest, &body)
	require.Contains(t, body.Fields, "page")

	env.decode(t, http.MethodGet, "/users/?page=1000&page_size=100", token, nil, http.StatusOK, &pageResponse[domain.User]{})
}

func TestQuizFlow(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerToken := env.signUp(t, "owner")
	member, memberToken := env.signUp(t, "member")
	outsider, _ := env.signUp(t, "outsider")

	var company domain.Company
	env.decode(t, http.MethodPost, "/company/", ownerToken, map[string]any{"name": "Acme"}, http.StatusCreated, &company)
	require.Equal(t, owner.ID, company.OwnerID)
	require.Contains(t, company.AdministratorIDs, owner.ID)
	base := fmt.Sprintf("/company/%d", company.ID)

	// Appointing a non-member is a validation error.
	status, _, _ := env.do(t, http.MethodPost, base+"/appoint_administrator/", ownerToken, map[string]int64{"user_id": outsider.ID})
	require.Equal(t, http.StatusBadRequest, status)

	// Revoking a request that was never sent is a 400, not a 500.
	status, _, _ = env.do(t, http.MethodPost, fmt.Sprintf("/users/%d/revoke_request/", member.ID), memberToken, map[string]int64{"req_company_id": company.ID})
	require.Equal(t, http.StatusBadRequest, status)

	var inv domain.Invitation
	env.decode(t, http.MethodPost, base+"/send_invitation/", ownerToken, map[string]int64{"invited_user_id": member.ID}, http.StatusCreated, &inv)
	require.Equal(t, domain.InvitationInvited, inv.Status)

	var invites []domain.Invitation
	env.decode(t, http.MethodGet, fmt.Sprintf("/users/%d/list_invites/", member.ID), memberToken, nil, http.StatusOK, &invites)
	require.Len(t, invites, 1)

	env.decode(t, http.MethodPost, fmt.Sprintf("/users/%d/accept_invitation/", member.ID), memberToken, map[string]int64{"company_id": company.ID}, http.StatusOK, nil)
	env.decode(t, http.MethodGet, base+"/", ownerToken, nil, http.StatusOK, &company)
	require.Contains(t, company.MemberIDs, member.ID)

	// Members cannot author quizzes.
	quizBody := map[string]any{
		"company":           company.ID,
		"title":             "Basics",
		"frequency_in_days": 7,
		"questions": []map[string]any{
			{"text": "2+2", "answers": []map[string]any{{"text": "4", "is_correct": true}, {"text": "5"}}},
			{"text": "3+3", "answers": []map[string]any{{"text": "6", "is_correct": true}, {"text": "7"}}},
		},
	}
	status, _, _ = env.do(t, http.MethodPost, "/quizzes/", memberToken, quizBody)
	require.Equal(t, http.StatusForbidden, status)

	var quiz domain.Quiz
	env.decode(t, http.MethodPost, "/quizzes/", ownerToken, quizBody, http.StatusCreated, &quiz)
	require.Len(t, quiz.Questions, 2)
	quizBase := fmt.Sprintf("/quizzes/%d", quiz.ID)

	var attempt domain.QuizAttempt
	env.decode(t, http.MethodPost, quizBase+"/start_attempt/", memberToken, nil, http.StatusCreated, &attempt)
	var again domain.QuizAttempt
	env.decode(t, http.MethodPost, quizBase+"/start_attempt/", memberToken, nil, http.StatusOK, &again)
	require.Equal(t, attempt.ID, again.ID)

	q1, q2 := quiz.Questions[0], quiz.Questions[1]
	var result domain.QuizResult
	env.decode(t, http.MethodPost, quizBase+"/submit_answers/", memberToken, map[string]any{
		"attempt": attempt.ID,
		"answers": []map[string]int64{
			{"question": q1.ID, "chosen_answer": q1.Answers[0].ID},
			{"question": q2.ID, "chosen_answer": q2.Answers[1].ID},
		},
	}, http.StatusCreated, &result)
	require.Equal(t, 1, result.Score)
	require.Equal(t, company.ID, result.CompanyID)

	status, _, _ = env.do(t, http.MethodPost, quizBase+"/submit_answers/", memberToken, map[string]any{
		"attempt": attempt.ID,
		"answers": []map[string]int64{{"question": q1.ID, "chosen_answer": q1.Answers[0].ID}},
	})
	require.Equal(t, http.StatusConflict, status)

	var avg averageResponse
	env.decode(t, http.MethodGet, fmt.Sprintf("%s/average_score/?user_id=%d", base, member.ID), ownerToken, nil, http.StatusOK, &avg)
	require.InDelta(t, 0.5, avg.AverageScore, 1e-9)

	var last []domain.CachedAnswer
	env.decode(t, http.MethodGet, quizBase+"/last-answers/", memberToken, nil, http.StatusOK, &last)
	require.Len(t, last, 2)

	var notes []domain.Notification
	env.decode(t, http.MethodGet, fmt.Sprintf("/users/%d/notifications/", member.ID), memberToken, nil, http.StatusOK, &notes)
	require.Len(t, notes, 1)
	require.Equal(t, `An undone quiz "Basics" is available. Take it now!`, notes[0].Text)

	status, raw, header := env.do(t, http.MethodGet, base+"/member-results/export-csv", ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, header.Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "id,username,quiz_title,score,company,timestamp", lines[0])
	require.Contains(t, lines[1], "member,Basics,1,Acme")

	status, _, _ = env.do(t, http.MethodGet, base+"/member-results/export-json", memberToken, nil)
	require.Equal(t, http.StatusForbidden, status)
}
