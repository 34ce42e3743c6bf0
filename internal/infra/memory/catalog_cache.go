package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"deadline-quiz-service/internal/app"
	"deadline-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

const catalogKey = "catalog"

// CatalogCache caches the question catalog with TTL to avoid repeated DB hits.
type CatalogCache struct {
	store app.QuestionStore
	ttl   time.Duration
	clock func() time.Time
	sf    singleflight.Group
	rnd   *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Question
	expiresAt time.Time
}

func NewCatalogCache(store app.QuestionStore, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		store: store,
		ttl:   ttl,
		clock: time.Now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.fresh(c.clock()); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		now := c.clock()
		if questions, ok := c.fresh(now); ok {
			return questions, nil
		}

		questions, err := c.store.ListQuestions(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cached = questions
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached catalog, e.g. after a question was authored.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

func (c *CatalogCache) fresh(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached != nil && c.expiresAt.After(now) {
		return c.cached, true
	}
	return nil, false
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
