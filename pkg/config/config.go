package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/cache"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/utils"
)

// Config System CommonConfig
type Config struct {
	ServerName    string `env:"SERVER_NAME"`
	DBDriver      string `env:"DB_DRIVER"`
	DSN           string `env:"DSN"`
	Log           logger.LogConfig
	Addr          string `env:"ADDR"`
	Mode          string `env:"MODE"`
	APIPrefix     string `env:"API_PREFIX"`
	MonitorPrefix string `env:"MONITOR_PREFIX"`
	Timezone      string `env:"TIMEZONE"`

	// webhook 签名配置
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	WebhookTolerance time.Duration `env:"WEBHOOK_TOLERANCE"`

	// 知识库配置
	KnowledgeBaseEnabled  bool   `env:"KNOWLEDGE_BASE_ENABLED"`
	KnowledgeBaseProvider string `env:"KNOWLEDGE_BASE_PROVIDER"` // memory, qdrant, milvus, pinecone

	QdrantBaseURL    string `env:"QDRANT_BASE_URL"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantCollection string `env:"QDRANT_COLLECTION"`

	MilvusAddress    string `env:"MILVUS_ADDRESS"`
	MilvusUsername   string `env:"MILVUS_USERNAME"`
	MilvusPassword   string `env:"MILVUS_PASSWORD"`
	MilvusCollection string `env:"MILVUS_COLLECTION"`

	PineconeAPIKey    string `env:"PINECONE_API_KEY"`
	PineconeIndexHost string `env:"PINECONE_INDEX_HOST"`
	PineconeNamespace string `env:"PINECONE_NAMESPACE"`

	// embedding 配置
	EmbeddingAPIKey    string `env:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL   string `env:"EMBEDDING_BASE_URL"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL"`
	EmbeddingCacheSize int    `env:"EMBEDDING_CACHE_SIZE"`

	ResolverTimeout time.Duration `env:"RESOLVER_TIMEOUT"`
	QACacheTTL      time.Duration `env:"QA_CACHE_TTL"`

	// 限流，ulule/limiter 格式，例如 "100-M"
	RateLimit string `env:"RATE_LIMIT"`

	// 过期通话清理任务
	StaleSweepEnabled  bool          `env:"STALE_SWEEP_ENABLED"`
	StaleSweepSchedule string        `env:"STALE_SWEEP_SCHEDULE"`
	StaleCallAfter     time.Duration `env:"STALE_CALL_AFTER"`

	Cache cache.Config
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件（如果不存在也不报错，使用默认值）
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	// 2. 加载全局配置（所有配置都有默认值，确保无.env文件也能启动）
	GlobalConfig = &Config{
		ServerName:    getStringOrDefault("SERVER_NAME", "voicematrix"),
		DBDriver:      getStringOrDefault("DB_DRIVER", "sqlite"),
		DSN:           getStringOrDefault("DSN", "./voicematrix.db"),
		Addr:          getStringOrDefault("ADDR", ":7072"),
		Mode:          getStringOrDefault("MODE", "development"),
		APIPrefix:     getStringOrDefault("API_PREFIX", "/api"),
		MonitorPrefix: getStringOrDefault("MONITOR_PREFIX", "/metrics"),
		Timezone:      getStringOrDefault("TIMEZONE", "UTC"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		WebhookSecret:    getStringOrDefault("WEBHOOK_SECRET", ""),
		WebhookTolerance: getDurationOrDefault("WEBHOOK_TOLERANCE", 15*time.Minute),

		KnowledgeBaseEnabled:  getBoolOrDefault("KNOWLEDGE_BASE_ENABLED", false),
		KnowledgeBaseProvider: getStringOrDefault("KNOWLEDGE_BASE_PROVIDER", "memory"),
		QdrantBaseURL:         getStringOrDefault("QDRANT_BASE_URL", "http://localhost:6333"),
		QdrantAPIKey:          getStringOrDefault("QDRANT_API_KEY", ""),
		QdrantCollection:      getStringOrDefault("QDRANT_COLLECTION", "knowledge_chunks"),
		MilvusAddress:         getStringOrDefault("MILVUS_ADDRESS", "localhost:19530"),
		MilvusUsername:        getStringOrDefault("MILVUS_USERNAME", ""),
		MilvusPassword:        getStringOrDefault("MILVUS_PASSWORD", ""),
		MilvusCollection:      getStringOrDefault("MILVUS_COLLECTION", "knowledge_chunks"),
		PineconeAPIKey:        getStringOrDefault("PINECONE_API_KEY", ""),
		PineconeIndexHost:     getStringOrDefault("PINECONE_INDEX_HOST", ""),
		PineconeNamespace:     getStringOrDefault("PINECONE_NAMESPACE", ""),

		EmbeddingAPIKey:    getStringOrDefault("EMBEDDING_API_KEY", ""),
		EmbeddingBaseURL:   getStringOrDefault("EMBEDDING_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingModel:     getStringOrDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingCacheSize: getIntOrDefault("EMBEDDING_CACHE_SIZE", 1024),

		ResolverTimeout: getDurationOrDefault("RESOLVER_TIMEOUT", 5*time.Second),
		QACacheTTL:      getDurationOrDefault("QA_CACHE_TTL", time.Minute),
		RateLimit:       getStringOrDefault("RATE_LIMIT", "600-M"),

		StaleSweepEnabled:  getBoolOrDefault("STALE_SWEEP_ENABLED", true),
		StaleSweepSchedule: getStringOrDefault("STALE_SWEEP_SCHEDULE", "*/10 * * * *"),
		StaleCallAfter:     getDurationOrDefault("STALE_CALL_AFTER", 2*time.Hour),

		Cache: loadCacheConfig(),
	}
	return GlobalConfig.Validate()
}

// Validate rejects configurations that would run the webhook endpoint open in production.
func (c *Config) Validate() error {
	if c.Mode == "production" && c.WebhookSecret == "" {
		return errors.New("WEBHOOK_SECRET is required in production mode")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return err
	}
	return nil
}

// Location returns the configured timezone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getStringOrDefault 获取字符串环境变量值，如果为空则返回默认值
func getStringOrDefault(key, defaultValue string) string {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getBoolOrDefault 获取布尔环境变量值，如果为空则返回默认值
func getBoolOrDefault(key string, defaultValue bool) bool {
	value := utils.GetEnv(key)
	if value == "" {
		return defaultValue
	}
	return utils.GetBoolEnv(key)
}

// getIntOrDefault 获取整数环境变量值，如果为空则返回默认值
func getIntOrDefault(key string, defaultValue int) int {
	value := utils.GetIntEnv(key)
	if value == 0 {
		return defaultValue
	}
	return int(value)
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	return parseDuration(utils.GetEnv(key), defaultValue)
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

func loadCacheConfig() cache.Config {
	cacheType := getStringOrDefault("CACHE_TYPE", cache.TypeLocal)

	return cache.Config{
		Type: cacheType,
		Redis: cache.RedisConfig{
			Addr:         getStringOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     utils.GetEnv("REDIS_PASSWORD"),
			DB:           int(utils.GetIntEnv("REDIS_DB")),
			PoolSize:     getIntOrDefault("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntOrDefault("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  parseDuration(utils.GetEnv("REDIS_DIAL_TIMEOUT"), 5*time.Second),
			ReadTimeout:  parseDuration(utils.GetEnv("REDIS_READ_TIMEOUT"), 3*time.Second),
			WriteTimeout: parseDuration(utils.GetEnv("REDIS_WRITE_TIMEOUT"), 3*time.Second),
			IdleTimeout:  parseDuration(utils.GetEnv("REDIS_IDLE_TIMEOUT"), 5*time.Minute),
			KeyPrefix:    getStringOrDefault("REDIS_KEY_PREFIX", "voicematrix:"),
		},
		Local: cache.LocalConfig{
			MaxSize:           getIntOrDefault("LOCAL_CACHE_MAX_SIZE", 1000),
			DefaultExpiration: parseDuration(utils.GetEnv("LOCAL_CACHE_DEFAULT_EXPIRATION"), 5*time.Minute),
			CleanupInterval:   parseDuration(utils.GetEnv("LOCAL_CACHE_CLEANUP_INTERVAL"), 10*time.Minute),
		},
	}
}
