package knowledge

import (
	"github.com/spf13/cast"
)

// getStringFromConfig gets string value from config map
func getStringFromConfig(config map[string]interface{}, key string) string {
	if config == nil {
		return ""
	}
	if val, ok := config[key]; ok && val != nil {
		return cast.ToString(val)
	}
	return ""
}

// getIntFromConfig gets integer value from config map, 0 when absent or invalid
func getIntFromConfig(config map[string]interface{}, key string) int {
	if config == nil {
		return 0
	}
	if val, ok := config[key]; ok {
		return cast.ToInt(val)
	}
	return 0
}

func getStringOrDefault(config map[string]interface{}, key, def string) string {
	if v := getStringFromConfig(config, key); v != "" {
		return v
	}
	return def
}
