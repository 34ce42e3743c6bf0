package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const catalogKey = "quiz:catalog"

// CatalogCache caches the question catalog in Redis and falls back to the store on a miss.
type CatalogCache struct {
	client *redis.Client
	store  app.QuestionStore
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogCache(client *redis.Client, store app.QuestionStore, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		store:  store,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx); ok {
			return questions, nil
		}

		questions, err := c.store.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(questions)
		if err == nil {
			if err := c.client.Set(ctx, catalogKey, payload, c.ttlWithJitter()).Err(); err != nil {
				log.Warnf("cache catalog: %v", err)
			}
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, catalogKey).Err()
}

func (c *CatalogCache) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
