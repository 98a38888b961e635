package cache

import (
	"sync"
	"time"
)

// fallbackLocal is used when the process never called InitGlobalCache.
var fallbackLocal = LocalConfig{
	MaxSize:           1000,
	DefaultExpiration: 5 * time.Minute,
	CleanupInterval:   10 * time.Minute,
}

var (
	globalMu    sync.Mutex
	globalCache Cache
)

// InitGlobalCache 按配置创建进程级缓存，重复调用会关闭旧实例
func InitGlobalCache(config Config) error {
	c, err := NewCache(config)
	if err != nil {
		return err
	}
	globalMu.Lock()
	prev := globalCache
	globalCache = c
	globalMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// GetGlobalCache 返回进程级缓存，未初始化时退化为本地缓存
func GetGlobalCache() Cache {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCache == nil {
		globalCache = NewLocalCache(fallbackLocal)
	}
	return globalCache
}

// CloseGlobalCache releases the process cache; a later Get starts a fresh local one.
func CloseGlobalCache() error {
	globalMu.Lock()
	c := globalCache
	globalCache = nil
	globalMu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}
