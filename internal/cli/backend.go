package cli

import (
	"context"
	"log"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/config"
	"company-quiz-service/internal/infra/memory"
	pgstore "company-quiz-service/internal/infra/postgres"
	rediscache "company-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// backend holds the storage, cache and messaging adapters picked from config.
// Postgres and Redis are used when configured; otherwise the in-memory versions are.
type backend struct {
	store     app.Store
	analytics app.AnalyticsRepository
	keys      app.AnswerKeyRepository
	answers   app.AnswerCache
	hub       *app.Hub
	publisher app.Publisher
	redis     *redis.Client
	closers   []func()
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{hub: app.NewHub()}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, err
		}
		db := pgstore.Open(cfg.Postgres.URL)
		b.closers = append(b.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			b.close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		b.store = pgstore.NewStore(db)
		b.analytics = pgstore.NewAnalytics(pool)
		log.Printf("[STARTUP] using postgres storage")
	} else {
		store := memory.NewStore()
		b.store = store
		b.analytics = store
		log.Printf("[STARTUP] postgres not configured, using in-memory storage")
	}

	keyTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	answerTTL := config.TTLDuration(cfg.Answers.TTL, 48*time.Hour)
	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
		b.keys = rediscache.NewAnswerKeyCache(b.redis, b.store.Quizzes(), keyTTL)
		b.answers = rediscache.NewAnswerCache(b.redis, answerTTL)
		b.publisher = rediscache.NewPublisher(b.redis)
		log.Printf("[STARTUP] using redis at %s for caches and notifications", cfg.Redis.Addr)
	} else {
		b.keys = memory.NewAnswerKeyCache(b.store.Quizzes(), keyTTL)
		b.answers = memory.NewAnswerCache(answerTTL)
		b.publisher = b.hub
	}
	return b, nil
}

func (b *backend) notifier() *app.Notifier {
	return app.NewNotifier(b.store, b.analytics, b.publisher)
}

// close releases connections in reverse order of opening.
func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}
