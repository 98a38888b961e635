package bootstrap

import (
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/config"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"go.uber.org/zap"
)

// LogConfigInfo prints the effective configuration without secrets
func LogConfigInfo() {
	cfg := config.GlobalConfig
	logger.Info("system config",
		zap.String("server", cfg.ServerName),
		zap.String("mode", cfg.Mode),
		zap.String("addr", cfg.Addr),
		zap.String("dbDriver", cfg.DBDriver),
		zap.String("apiPrefix", cfg.APIPrefix),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("webhookSecretSet", cfg.WebhookSecret != ""),
		zap.Bool("knowledgeBase", cfg.KnowledgeBaseEnabled),
		zap.String("knowledgeProvider", cfg.KnowledgeBaseProvider),
		zap.String("cacheType", cfg.Cache.Type),
		zap.Bool("staleSweep", cfg.StaleSweepEnabled),
	)
}
