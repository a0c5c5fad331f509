package memory

import (
	"context"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
)

// AnswerCache mirrors submitted answers in process memory with a TTL.
type AnswerCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[answerKey]cachedAnswer
}

type answerKey struct {
	userID, quizID, questionID int64
}

type cachedAnswer struct {
	answer    domain.CachedAnswer
	expiresAt time.Time
}

func NewAnswerCache(ttl time.Duration) *AnswerCache {
	return &AnswerCache{ttl: ttl, clock: time.Now, entries: make(map[answerKey]cachedAnswer)}
}

func (c *AnswerCache) Put(_ context.Context, answers []domain.CachedAnswer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock()
	for k, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, k)
		}
	}
	for _, a := range answers {
		c.entries[answerKey{a.UserID, a.QuizID, a.QuestionID}] = cachedAnswer{answer: a, expiresAt: now.Add(c.ttl)}
	}
	return nil
}

// Get returns the live entries for questionIDs, in that order, skipping misses.
func (c *AnswerCache) Get(_ context.Context, userID, quizID int64, questionIDs []int64) ([]domain.CachedAnswer, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.clock()
	out := make([]domain.CachedAnswer, 0, len(questionIDs))
	for _, qid := range questionIDs {
		e, ok := c.entries[answerKey{userID, quizID, qid}]
		if ok && e.expiresAt.After(now) {
			out = append(out, e.answer)
		}
	}
	return out, nil
}
