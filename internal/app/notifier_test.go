package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestQuizCreationNotifiesEveryMember(t *testing.T) {
	f := newFixture(t)
	updates, cancel := f.hub.Subscribe(f.member.ID)
	defer cancel()

	f.quiz(t, "Basics", 1)

	select {
	case msg := <-updates:
		require.Equal(t, "notification", msg.Type)
		require.Equal(t, `New quiz "Basics" is available. Take it now!`, msg.Message)
	case <-time.After(time.Second):
		t.Fatal("expected a realtime notification")
	}

	for _, u := range []domain.User{f.owner, f.member} {
		items, err := f.users.Notifications(f.ctx, u.ID, u.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, domain.NotificationUnread, items[0].Status)
		require.Equal(t, `An undone quiz "Basics" is available. Take it now!`, items[0].Text)
	}

	// Listing marked them read.
	items, err := f.users.Notifications(f.ctx, f.member.ID, f.member.ID)
	require.NoError(t, err)
	require.Equal(t, domain.NotificationRead, items[0].Status)

	_, err = f.users.Notifications(f.ctx, f.owner.ID, f.member.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, int64, domain.NotificationMessage) error {
	p.calls++
	return errors.New("channel layer down")
}

func TestPushFailureKeepsStoredNotification(t *testing.T) {
	f := newFixture(t)
	publisher := &failingPublisher{}
	notifier := app.NewNotifier(f.store, f.store, publisher)

	quiz, err := f.store.Quizzes().Get(f.ctx, f.quiz(t, "Basics", 1).ID)
	require.NoError(t, err)
	sent, err := notifier.NotifyQuizCreated(f.ctx, quiz)
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, 2, publisher.calls)

	// One from quiz creation, one from the manual fan-out.
	items, err := f.users.Notifications(f.ctx, f.member.ID, f.member.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestSweepRemindsOverdueMembers(t *testing.T) {
	f := newFixture(t)
	quiz := f.quiz(t, "Weekly", 1)
	idle := f.user(t, "idle")
	f.join(t, f.company.ID, idle.ID)

	_, err := f.quizzes.SubmitAnswers(f.ctx, f.member.ID, quiz.ID, 0, answers(quiz, 1))
	require.NoError(t, err)

	f.clock.now = f.clock.now.Add(7 * 24 * time.Hour)
	sent, err := f.notifier.SweepReminders(f.ctx)
	require.NoError(t, err)
	require.Zero(t, sent, "exactly the frequency is not overdue yet")

	f.clock.now = f.clock.now.Add(time.Minute)
	updates, cancel := f.hub.Subscribe(f.member.ID)
	defer cancel()
	sent, err = f.notifier.SweepReminders(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sent)

	select {
	case msg := <-updates:
		require.Equal(t, "notification", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("expected a reminder push")
	}

	items, err := f.users.Notifications(f.ctx, idle.ID, idle.ID)
	require.NoError(t, err)
	require.Empty(t, items, "members who never took the quiz are not reminded")
}

func TestHubDropsOldestWhenSubscriberIsSlow(t *testing.T) {
	hub := app.NewHub()
	updates, cancel := hub.Subscribe(1)

	for i := 0; i < 20; i++ {
		require.NoError(t, hub.Publish(context.Background(), 1, domain.NotificationMessage{Type: "n", Message: string(rune('a' + i))}))
	}
	first := <-updates
	require.NotEqual(t, "a", first.Message)

	var last domain.NotificationMessage
	for len(updates) > 0 {
		last = <-updates
	}
	require.Equal(t, string(rune('a'+19)), last.Message)

	require.Equal(t, 1, hub.Subscribers(1))
	cancel()
	cancel()
	require.Zero(t, hub.Subscribers(1))
	_, open := <-updates
	require.False(t, open)

	// Publishing without subscribers is a no-op.
	require.NoError(t, hub.Publish(context.Background(), 2, domain.NotificationMessage{}))
}

func TestEventBusRunsHandlersInOrder(t *testing.T) {
	var seen []string
	bus := app.NewEventBus()
	bus.Subscribe(func(_ context.Context, e domain.Event) { seen = append(seen, "first:"+e.EventName()) })
	bus.Subscribe(func(_ context.Context, e domain.Event) { seen = append(seen, "second:"+e.EventName()) })

	bus.Emit(context.Background(), domain.QuizCreated{})
	require.Equal(t, []string{"first:quiz.created", "second:quiz.created"}, seen)

	var nilBus *app.EventBus
	nilBus.Emit(context.Background(), domain.QuizCreated{})
}
