package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
)

func TestCompanyCreateRegistersOwner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := mustUser(t, store, "owner")

	company := domain.Company{OwnerID: owner.ID, Name: "Acme", IsVisible: true}
	if err := store.Companies().Create(ctx, &company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	got, err := store.Companies().Get(ctx, company.ID)
	if err != nil {
		t.Fatalf("get company: %v", err)
	}
	if len(got.MemberIDs) != 1 || got.MemberIDs[0] != owner.ID {
		t.Fatalf("owner should be a member, got %v", got.MemberIDs)
	}
	if len(got.AdministratorIDs) != 1 || got.AdministratorIDs[0] != owner.ID {
		t.Fatalf("owner should be an administrator, got %v", got.AdministratorIDs)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	boom := errors.New("boom")

	err := store.InTx(ctx, func(tx app.Store) error {
		user := domain.User{Username: "ghost"}
		if err := tx.Users().Create(ctx, &user); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := store.Users().GetByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestRollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	user := mustUser(t, store, "reader")
	boom := errors.New("boom")

	inside := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.InTx(ctx, func(tx app.Store) error {
			ghost := domain.User{Username: "ghost"}
			if err := tx.Users().Create(ctx, &ghost); err != nil {
				return err
			}
			close(inside)
			<-release
			return boom
		})
	}()
	<-inside

	writeDone := make(chan error, 1)
	go func() {
		n := domain.Notification{UserID: user.ID, Status: domain.NotificationUnread, Text: "hello", CreatedAt: time.Now()}
		writeDone <- store.Notifications().Create(ctx, &n)
	}()
	close(release)

	if err := <-txDone; !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-writeDone; err != nil {
		t.Fatalf("create notification: %v", err)
	}

	got, err := store.Notifications().ListByUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Fatalf("expected the notification to survive the rollback, got %+v", got)
	}
	if _, err := store.Users().GetByUsername(ctx, "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ghost rolled back, got %v", err)
	}
}

func TestPaginateIgnoresNegativeOffset(t *testing.T) {
	got := paginate([]int{1, 2, 3}, domain.Page{Limit: 2, Offset: -100})
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %v", got)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := mustUser(t, store, "owner")
	company := domain.Company{OwnerID: owner.ID, Name: "Acme"}
	_ = store.Companies().Create(ctx, &company)
	quiz := domain.Quiz{CompanyID: company.ID, Title: "Q", FrequencyInDays: 1}
	_ = store.Quizzes().Create(ctx, &quiz)

	if err := store.Users().Delete(ctx, owner.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Companies().Get(ctx, company.ID); !errors.Is(err, domain.ErrCompanyNotFound) {
		t.Fatalf("expected company gone, got %v", err)
	}
	if _, err := store.Quizzes().Get(ctx, quiz.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz gone, got %v", err)
	}
}

func TestSingleOpenAttemptPerPair(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := mustUser(t, store, "owner")
	company := domain.Company{OwnerID: owner.ID, Name: "Acme"}
	_ = store.Companies().Create(ctx, &company)
	quiz := domain.Quiz{CompanyID: company.ID, Title: "Q", FrequencyInDays: 1}
	_ = store.Quizzes().Create(ctx, &quiz)

	first := domain.QuizAttempt{UserID: owner.ID, QuizID: quiz.ID}
	if err := store.Attempts().CreateAttempt(ctx, &first); err != nil {
		t.Fatalf("create attempt: %v", err)
	}
	second := domain.QuizAttempt{UserID: owner.ID, QuizID: quiz.ID}
	if err := store.Attempts().CreateAttempt(ctx, &second); !errors.Is(err, domain.ErrAttemptAlreadyOpen) {
		t.Fatalf("expected already open, got %v", err)
	}

	if err := store.Attempts().ConsumeAttempt(ctx, first.ID, time.Now()); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := store.Attempts().ConsumeAttempt(ctx, first.ID, time.Now()); !errors.Is(err, domain.ErrAttemptConsumed) {
		t.Fatalf("expected consumed, got %v", err)
	}
	if err := store.Attempts().CreateAttempt(ctx, &second); err != nil {
		t.Fatalf("new attempt after consume: %v", err)
	}
}

func TestDailyTalliesBucketByUTCDate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	owner := mustUser(t, store, "owner")
	company := domain.Company{OwnerID: owner.ID, Name: "Acme"}
	_ = store.Companies().Create(ctx, &company)
	quiz := domain.Quiz{
		CompanyID:       company.ID,
		Title:           "Q",
		FrequencyInDays: 1,
		Questions: []domain.Question{
			{Text: "a", Answers: []domain.Answer{{Text: "yes", IsCorrect: true}, {Text: "no"}}},
		},
	}
	_ = store.Quizzes().Create(ctx, &quiz)
	right, wrong := quiz.Questions[0].Answers[0].ID, quiz.Questions[0].Answers[1].ID

	local := time.FixedZone("UTC+3", 3*3600)
	submit := func(chosen int64, at time.Time) {
		attempt := domain.QuizAttempt{UserID: owner.ID, QuizID: quiz.ID, StartedAt: at}
		if err := store.Attempts().CreateAttempt(ctx, &attempt); err != nil {
			t.Fatalf("attempt: %v", err)
		}
		_ = store.Attempts().CreateUserAnswers(ctx, []domain.UserAnswer{{QuizAttemptID: attempt.ID, QuestionID: quiz.Questions[0].ID, ChosenAnswerID: chosen}})
		res := domain.QuizResult{UserID: owner.ID, QuizID: quiz.ID, CompanyID: company.ID, QuizAttemptID: attempt.ID, Timestamp: at}
		_ = store.Attempts().CreateResult(ctx, &res)
		_ = store.Attempts().ConsumeAttempt(ctx, attempt.ID, at)
	}
	// 01:00 at UTC+3 is still the previous day in UTC.
	submit(right, time.Date(2024, 3, 2, 1, 0, 0, 0, local))
	submit(wrong, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC))

	tallies, err := store.DailyTallies(ctx, domain.ScopeCompany(company.ID))
	if err != nil {
		t.Fatalf("tallies: %v", err)
	}
	if len(tallies) != 2 {
		t.Fatalf("expected two days, got %+v", tallies)
	}
	if tallies[0].Day.Day() != 1 || tallies[0].Correct != 1 || tallies[0].Total != 1 {
		t.Fatalf("unexpected first day %+v", tallies[0])
	}
	if tallies[1].Day.Day() != 2 || tallies[1].Correct != 0 || tallies[1].Total != 1 {
		t.Fatalf("unexpected second day %+v", tallies[1])
	}
}

func mustUser(t *testing.T, store *Store, name string) domain.User {
	t.Helper()
	user := domain.User{Username: name, Email: name + "@example.com"}
	if err := store.Users().Create(context.Background(), &user); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}
