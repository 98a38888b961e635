package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads .env and, when env is set, .env.<env> on top of it.
// Variables already present in the process environment win.
func LoadEnv(env string) error {
	files := []string{}
	if env != "" {
		files = append(files, ".env."+env)
	}
	files = append(files, ".env")

	var loaded bool
	var lastErr error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			lastErr = err
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
		loaded = true
	}
	if !loaded {
		return lastErr
	}
	return nil
}

func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv returns 0 when the variable is unset or not a number.
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(os.Getenv(key))
}
