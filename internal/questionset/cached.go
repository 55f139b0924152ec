package questionset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/pkg/cache"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// CachedProvider keeps validated set documents in Redis. Cache failures fall
// through to the wrapped provider.
type CachedProvider struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{next: next, cache: cache, ttl: ttl}
}

func setCacheKey(id string) string {
	return fmt.Sprintf("questionset:%s:data", id)
}

func (p *CachedProvider) GetSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	key := setCacheKey(id)

	cached, err := p.cache.Get(ctx, key)
	if err == nil {
		var doc models.SetDocument
		if err := json.Unmarshal([]byte(cached), &doc); err == nil {
			if set, err := models.NewQuestionSetFromDocument(doc); err == nil {
				return set, nil
			}
		}
		log.Printf("Discarding invalid cached question set %s", id)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("Failed to read question set %s from cache: %v", id, err)
	}

	set, err := p.next.GetSet(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(set.Document())
	if err != nil {
		return set, nil
	}
	if err := p.cache.Set(ctx, key, data, p.ttl); err != nil {
		log.Printf("Failed to cache question set %s: %v", id, err)
	}
	return set, nil
}

func (p *CachedProvider) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	return p.next.ListSets(ctx)
}
