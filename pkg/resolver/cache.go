package resolver

import (
	"context"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/cache"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const qaCacheKeyPrefix = "qa_pairs:"

// CachedQASource read-through cache in front of a QAPairSource. Concurrent
// misses for the same assistant share one load.
type CachedQASource struct {
	next  QAPairSource
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedQASource(next QAPairSource, c cache.Cache, ttl time.Duration) *CachedQASource {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedQASource{next: next, cache: c, ttl: ttl}
}

func qaCacheKey(assistantID string) string {
	return qaCacheKeyPrefix + assistantID
}

func (s *CachedQASource) ListQAPairs(ctx context.Context, assistantID string) ([]QAPair, error) {
	key := qaCacheKey(assistantID)
	if raw, err := cache.GetBytes(ctx, s.cache, key); err == nil {
		var pairs []QAPair
		if err := sonic.Unmarshal(raw, &pairs); err == nil {
			return pairs, nil
		}
		logger.Warn("resolver: drop undecodable qa cache entry", zap.String("key", key))
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		pairs, err := s.next.ListQAPairs(ctx, assistantID)
		if err != nil {
			return nil, err
		}
		if raw, err := sonic.Marshal(pairs); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
				logger.Warn("resolver: cache qa pairs failed", zap.String("key", key), zap.Error(err))
			}
		}
		return pairs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]QAPair), nil
}

// Invalidate drops the cached pairs of an assistant after a write.
func (s *CachedQASource) Invalidate(ctx context.Context, assistantID string) error {
	return s.cache.Delete(ctx, qaCacheKey(assistantID))
}
