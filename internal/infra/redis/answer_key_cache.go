package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches a quiz's answer key from the entity store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
}

// AnswerKeyCache caches answer keys in Redis (hash per quiz) and falls back to a loader on miss.
// Layout: HSET quiz:{quizID}:answers company {companyID} q:{questionID} 1 a:{questionID}:{answerID} 1|0
// quiz:{quizID}:answers:gen is bumped by Invalidate; a load only writes back under the
// generation it started from.
type AnswerKeyCache struct {
	client *redis.Client
	loader AnswerKeyLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAnswerKeyCache(client *redis.Client, loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	hashKey := answersKey(quizID)

	fields, err := c.client.HGetAll(ctx, hashKey).Result()
	if err == nil && len(fields) > 0 {
		if key, ok := buildKeyFromCache(quizID, fields); ok {
			return key, nil
		}
	}

	genKey := generationKey(quizID)
	gen, err := c.client.Get(ctx, genKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.AnswerKey{}, fmt.Errorf("answer key generation: %w", err)
	}

	result, err, _ := c.sf.Do(hashKey+"@"+strconv.FormatInt(gen, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, hashKey).Result()
		if err == nil && len(fields) > 0 {
			if key, ok := buildKeyFromCache(quizID, fields); ok {
				return key, nil
			}
		}

		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		values := map[string]interface{}{"company": key.CompanyID}
		for qid, answers := range key.Questions {
			values[questionField(qid)] = 1
			for aid, correct := range answers {
				flag := 0
				if correct {
					flag = 1
				}
				values[answerField(qid, aid)] = flag
			}
		}
		ttl := c.ttlWithJitter()
		// A failed or stale write still serves the loaded key.
		_ = c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, genKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != gen {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, hashKey)
				pipe.HSet(ctx, hashKey, values)
				if ttl > 0 {
					pipe.Expire(ctx, hashKey, ttl)
				}
				return nil
			})
			return err
		}, genKey)

		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

func (c *AnswerKeyCache) Invalidate(ctx context.Context, quizID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(quizID))
		pipe.Del(ctx, answersKey(quizID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate answer key: %w", err)
	}
	return nil
}

func answersKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10) + ":answers"
}

func generationKey(quizID int64) string {
	return answersKey(quizID) + ":gen"
}

func questionField(questionID int64) string {
	return "q:" + strconv.FormatInt(questionID, 10)
}

func answerField(questionID, answerID int64) string {
	return "a:" + strconv.FormatInt(questionID, 10) + ":" + strconv.FormatInt(answerID, 10)
}

func buildKeyFromCache(quizID int64, fields map[string]string) (domain.AnswerKey, bool) {
	companyID, err := strconv.ParseInt(fields["company"], 10, 64)
	if err != nil {
		return domain.AnswerKey{}, false
	}
	key := domain.AnswerKey{QuizID: quizID, CompanyID: companyID, Questions: make(map[int64]map[int64]bool)}
	for field, value := range fields {
		parts := strings.Split(field, ":")
		switch {
		case len(parts) == 2 && parts[0] == "q":
			qid, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return domain.AnswerKey{}, false
			}
			if _, ok := key.Questions[qid]; !ok {
				key.Questions[qid] = make(map[int64]bool)
			}
		case len(parts) == 3 && parts[0] == "a":
			qid, err1 := strconv.ParseInt(parts[1], 10, 64)
			aid, err2 := strconv.ParseInt(parts[2], 10, 64)
			if err1 != nil || err2 != nil {
				return domain.AnswerKey{}, false
			}
			answers, ok := key.Questions[qid]
			if !ok {
				answers = make(map[int64]bool)
				key.Questions[qid] = answers
			}
			answers[aid] = value == "1"
		}
	}
	return key, true
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
