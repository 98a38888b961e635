package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// localCache 基于 go-cache 的进程内缓存
type localCache struct {
	c       *gocache.Cache
	maxSize int
}

// NewLocalCache 创建本地缓存
func NewLocalCache(config LocalConfig) Cache {
	if config.DefaultExpiration <= 0 {
		config.DefaultExpiration = 5 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 10 * time.Minute
	}
	return &localCache{
		c:       gocache.New(config.DefaultExpiration, config.CleanupInterval),
		maxSize: config.MaxSize,
	}
}

func (l *localCache) Get(_ context.Context, key string) (interface{}, bool) {
	return l.c.Get(key)
}

func (l *localCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	if expiration == 0 {
		expiration = gocache.DefaultExpiration
	}
	// go-cache has no size bound, drop expired entries first and refuse new keys past the cap
	if l.maxSize > 0 && l.c.ItemCount() >= l.maxSize {
		l.c.DeleteExpired()
		if _, exists := l.c.Get(key); !exists && l.c.ItemCount() >= l.maxSize {
			return nil
		}
	}
	l.c.Set(key, value, expiration)
	return nil
}

func (l *localCache) Delete(_ context.Context, key string) error {
	l.c.Delete(key)
	return nil
}

func (l *localCache) Exists(_ context.Context, key string) bool {
	_, ok := l.c.Get(key)
	return ok
}

func (l *localCache) Clear(_ context.Context) error {
	l.c.Flush()
	return nil
}

func (l *localCache) Close() error {
	return nil
}
