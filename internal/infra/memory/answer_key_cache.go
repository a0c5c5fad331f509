package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"company-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AnswerKeyLoader fetches a quiz's answer key from the entity store.
type AnswerKeyLoader interface {
	LoadAnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error)
}

// AnswerKeyCache caches answer keys with TTL to avoid repeated store hits.
type AnswerKeyCache struct {
	loader AnswerKeyLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedKey
	gen   map[int64]uint64 // bumped by Invalidate; loads from an older generation are not stored
}

type cachedKey struct {
	key       domain.AnswerKey
	expiresAt time.Time
}

func NewAnswerKeyCache(loader AnswerKeyLoader, ttl time.Duration) *AnswerKeyCache {
	return &AnswerKeyCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedKey),
		gen:    make(map[int64]uint64),
	}
}

func (c *AnswerKeyCache) AnswerKey(ctx context.Context, quizID int64) (domain.AnswerKey, error) {
	if key, ok := c.lookup(quizID); ok {
		return key, nil
	}

	c.mu.RLock()
	gen := c.gen[quizID]
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(sfKey(quizID, gen), func() (interface{}, error) {
		if key, ok := c.lookup(quizID); ok {
			return key, nil
		}
		now := c.clock()
		key, err := c.loader.LoadAnswerKey(ctx, quizID)
		if err != nil {
			return domain.AnswerKey{}, err
		}

		c.mu.Lock()
		if c.gen[quizID] == gen {
			c.cache[quizID] = cachedKey{key: key, expiresAt: now.Add(c.ttlWithJitter())}
		}
		c.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return domain.AnswerKey{}, err
	}
	return result.(domain.AnswerKey), nil
}

// Invalidate drops the cached key so the next read reloads it.
func (c *AnswerKeyCache) Invalidate(_ context.Context, quizID int64) error {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.gen[quizID]++
	c.mu.Unlock()
	return nil
}

func (c *AnswerKeyCache) lookup(quizID int64) (domain.AnswerKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.AnswerKey{}, false
	}
	return entry.key, true
}

func (c *AnswerKeyCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func sfKey(quizID int64, gen uint64) string {
	return strconv.FormatInt(quizID, 10) + "@" + strconv.FormatUint(gen, 10)
}
