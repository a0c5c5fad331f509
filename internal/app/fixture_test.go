package app_test

import (
	"context"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/domain"
	"company-quiz-service/internal/infra/memory"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source shared by the services under test.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	clock     *clock
	hub       *app.Hub
	users     *app.UserService
	companies *app.CompanyService
	quizzes   *app.QuizService
	analytics *app.AnalyticsService
	notifier  *app.Notifier

	owner   domain.User
	member  domain.User
	company domain.Company
}

// newFixture builds the services over the memory store with an owner, a member who
// accepted an invitation and their company.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(),
		clock: &clock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		hub:   app.NewHub(),
	}
	f.notifier = app.NewNotifier(f.store, f.store, f.hub).WithClock(f.clock.Now)
	events := app.NewEventBus()
	events.Subscribe(f.notifier.HandleEvent)

	f.users = app.NewUserService(f.store, auth.NewTokens("test-secret", time.Hour))
	f.companies = app.NewCompanyService(f.store)
	keys := memory.NewAnswerKeyCache(f.store.Quizzes(), time.Minute)
	f.quizzes = app.NewQuizService(f.store, keys, memory.NewAnswerCache(48*time.Hour), events).WithClock(f.clock.Now)
	f.analytics = app.NewAnalyticsService(f.store, f.store)

	f.owner = f.user(t, "owner")
	f.member = f.user(t, "member")
	company, err := f.companies.Create(f.ctx, f.owner.ID, app.CompanyInput{Name: "Acme"})
	require.NoError(t, err)
	f.join(t, company.ID, f.member.ID)
	f.company, err = f.companies.Get(f.ctx, company.ID)
	require.NoError(t, err)
	return f
}

func (f *fixture) user(t *testing.T, username string) domain.User {
	t.Helper()
	u, err := f.users.Create(f.ctx, app.UserInput{Username: username, Email: username + "@example.com", Password: "secret-pass"})
	require.NoError(t, err)
	return u
}

func (f *fixture) join(t *testing.T, companyID, userID int64) {
	t.Helper()
	company, err := f.companies.Get(f.ctx, companyID)
	require.NoError(t, err)
	_, err = f.companies.SendInvitation(f.ctx, company.OwnerID, companyID, userID)
	require.NoError(t, err)
	require.NoError(t, f.companies.AcceptInvitation(f.ctx, userID, companyID))
}

// quiz creates a quiz whose questions each have one correct answer listed first.
func (f *fixture) quiz(t *testing.T, title string, questions int) domain.Quiz {
	t.Helper()
	in := app.QuizInput{CompanyID: f.company.ID, Title: title, FrequencyInDays: 7}
	for i := 0; i < questions; i++ {
		in.Questions = append(in.Questions, app.QuestionInput{
			Text: "question",
			Answers: []app.AnswerInput{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		})
	}
	quiz, err := f.quizzes.CreateQuiz(f.ctx, f.owner.ID, in)
	require.NoError(t, err)
	return quiz
}

// answers picks the correct answer for the first `right` questions and a wrong one after.
func answers(quiz domain.Quiz, right int) []domain.Submission {
	out := make([]domain.Submission, 0, len(quiz.Questions))
	for i, q := range quiz.Questions {
		chosen := q.Answers[1].ID
		if i < right {
			chosen = q.Answers[0].ID
		}
		out = append(out, domain.Submission{QuestionID: q.ID, ChosenAnswerID: chosen})
	}
	return out
}
