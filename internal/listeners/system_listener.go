package listeners

import (
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/events"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
)

// InitSystemListeners initializes system listeners
func InitSystemListeners(bus *events.EventBus, m *metrics.Metrics) {
	InitCallListener(bus, m)
	logger.Info("system module listener is already")
}
