package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"company-quiz-service/internal/domain"
)

const day = 24 * time.Hour

// Notifier stores inbox notifications and pushes realtime messages to company members.
type Notifier struct {
	store     Store
	analytics AnalyticsRepository
	publisher Publisher
	now       func() time.Time
}

func NewNotifier(store Store, analytics AnalyticsRepository, publisher Publisher) *Notifier {
	return &Notifier{store: store, analytics: analytics, publisher: publisher, now: time.Now}
}

// WithClock swaps the time source used for timestamps and the sweep cutoff.
func (n *Notifier) WithClock(now func() time.Time) *Notifier {
	n.now = now
	return n
}

// HandleEvent is subscribed to the EventBus.
func (n *Notifier) HandleEvent(ctx context.Context, event domain.Event) {
	switch e := event.(type) {
	case domain.QuizCreated:
		if _, err := n.NotifyQuizCreated(ctx, e.Quiz); err != nil {
			log.Printf("[ERROR] quiz created fan-out quiz=%d: %v", e.Quiz.ID, err)
		}
	}
}

// NotifyQuizCreated notifies every member of the quiz's company, one at a time.
// It returns how many notifications were stored.
func (n *Notifier) NotifyQuizCreated(ctx context.Context, quiz domain.Quiz) (int, error) {
	members, err := n.store.Companies().Members(ctx, quiz.CompanyID)
	if err != nil {
		return 0, fmt.Errorf("list members: %w", err)
	}
	sent := 0
	for _, m := range members {
		if n.notify(ctx, m.ID, quiz) {
			sent++
		}
	}
	return sent, nil
}

// SweepReminders re-notifies members whose last result on a quiz is older than the quiz's
// frequency. Members that never took a quiz are left alone.
func (n *Notifier) SweepReminders(ctx context.Context) (int, error) {
	companies, err := n.store.Companies().ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list companies: %w", err)
	}
	now := n.now()
	sent := 0
	for _, company := range companies {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		count, err := n.sweepCompany(ctx, company.ID, now)
		if err != nil {
			return sent, err
		}
		sent += count
	}
	return sent, nil
}

type userQuiz struct {
	userID int64
	quizID int64
}

func (n *Notifier) sweepCompany(ctx context.Context, companyID int64, now time.Time) (int, error) {
	quizzes, _, err := n.store.Quizzes().List(ctx, companyID, domain.Page{})
	if err != nil {
		return 0, fmt.Errorf("list quizzes company=%d: %w", companyID, err)
	}
	if len(quizzes) == 0 {
		return 0, nil
	}
	completions, err := n.analytics.LastCompletions(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("last completions company=%d: %w", companyID, err)
	}
	last := make(map[userQuiz]time.Time, len(completions))
	for _, c := range completions {
		last[userQuiz{c.UserID, c.QuizID}] = c.At
	}
	members, err := n.store.Companies().Members(ctx, companyID)
	if err != nil {
		return 0, fmt.Errorf("list members company=%d: %w", companyID, err)
	}

	sent := 0
	for _, m := range members {
		for _, q := range quizzes {
			at, ok := last[userQuiz{m.ID, q.ID}]
			if !ok {
				continue
			}
			if now.Sub(at) <= time.Duration(q.FrequencyInDays)*day {
				continue
			}
			if n.notify(ctx, m.ID, q) {
				sent++
			}
		}
	}
	return sent, nil
}

// notify stores the inbox item and pushes the realtime message. Failures are logged only.
func (n *Notifier) notify(ctx context.Context, userID int64, quiz domain.Quiz) bool {
	item := domain.Notification{
		UserID:    userID,
		Status:    domain.NotificationUnread,
		Text:      fmt.Sprintf("An undone quiz \"%s\" is available. Take it now!", quiz.Title),
		CreatedAt: n.now(),
	}
	if err := n.store.Notifications().Create(ctx, &item); err != nil {
		log.Printf("[ERROR] store notification user=%d quiz=%d: %v", userID, quiz.ID, err)
		return false
	}
	if n.publisher == nil {
		return true
	}
	msg := domain.NotificationMessage{
		Type:    "notification",
		Message: fmt.Sprintf("New quiz \"%s\" is available. Take it now!", quiz.Title),
	}
	if err := n.publisher.Publish(ctx, userID, msg); err != nil {
		log.Printf("[WARN] push notification user=%d quiz=%d: %v", userID, quiz.ID, err)
	}
	return true
}
