package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AnswerCache mirrors submitted answers as one hash per (user, quiz, question):
// HSET answer:{userID}:{quizID}:{questionID} chosen_answer {id} is_correct 1|0 company_id {id}
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerCache(client *redis.Client, ttl time.Duration) *AnswerCache {
	return &AnswerCache{client: client, ttl: ttl}
}

func (c *AnswerCache) Put(ctx context.Context, answers []domain.CachedAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, a := range answers {
		key := answerKey(a.UserID, a.QuizID, a.QuestionID)
		correct := 0
		if a.IsCorrect {
			correct = 1
		}
		pipe.HSet(ctx, key, "chosen_answer", a.ChosenAnswerID, "is_correct", correct, "company_id", a.CompanyID)
		if c.ttl > 0 {
			pipe.Expire(ctx, key, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror answers: %w", err)
	}
	return nil
}

// Get returns the mirrored answers for questionIDs, in that order, skipping misses.
func (c *AnswerCache) Get(ctx context.Context, userID, quizID int64, questionIDs []int64) ([]domain.CachedAnswer, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(questionIDs))
	for i, qid := range questionIDs {
		cmds[i] = pipe.HGetAll(ctx, answerKey(userID, quizID, qid))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("read mirrored answers: %w", err)
	}

	out := make([]domain.CachedAnswer, 0, len(questionIDs))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		chosen, err := strconv.ParseInt(fields["chosen_answer"], 10, 64)
		if err != nil {
			continue
		}
		companyID, _ := strconv.ParseInt(fields["company_id"], 10, 64)
		out = append(out, domain.CachedAnswer{
			UserID:         userID,
			QuizID:         quizID,
			QuestionID:     questionIDs[i],
			ChosenAnswerID: chosen,
			IsCorrect:      fields["is_correct"] == "1",
			CompanyID:      companyID,
		})
	}
	return out, nil
}

func answerKey(userID, quizID, questionID int64) string {
	return fmt.Sprintf("answer:%d:%d:%d", userID, quizID, questionID)
}
