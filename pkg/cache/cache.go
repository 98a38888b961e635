package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	TypeLocal = "local"
	TypeRedis = "redis"
)

// ErrNotFound is returned by typed readers when the key is absent.
var ErrNotFound = errors.New("cache: key not found")

// Cache 缓存接口，本地缓存与 Redis 共用
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	Clear(ctx context.Context) error
	Close() error
}

// Config 缓存配置
type Config struct {
	Type  string
	Redis RedisConfig
	Local LocalConfig
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	KeyPrefix    string
}

// LocalConfig 本地缓存配置
type LocalConfig struct {
	MaxSize           int
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

// NewCache 根据配置创建缓存实例
func NewCache(config Config) (Cache, error) {
	switch config.Type {
	case "", TypeLocal:
		return NewLocalCache(config.Local), nil
	case TypeRedis:
		return NewRedisCache(config.Redis)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
}

// GetBytes reads a value stored as []byte or string. Redis always hands back
// strings, the local cache hands back whatever was stored.
func GetBytes(ctx context.Context, c Cache, key string) ([]byte, error) {
	v, ok := c.Get(ctx, key)
	if !ok {
		return nil, ErrNotFound
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("cache: unexpected value type %T for key %s", v, key)
	}
}
