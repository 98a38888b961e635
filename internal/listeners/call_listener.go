package listeners

import (
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/events"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// InitCallListener counts finalized calls and logs captured leads.
func InitCallListener(bus *events.EventBus, m *metrics.Metrics) {
	bus.Subscribe(events.CallFinalized, func(e events.Event) error {
		status := cast.ToString(e.Data["status"])
		leadCaptured := cast.ToBool(e.Data["leadCaptured"])
		appointmentBooked := cast.ToBool(e.Data["appointmentBooked"])
		salesQualified := cast.ToBool(e.Data["salesQualified"])

		m.RecordCallFinalized(status, leadCaptured, appointmentBooked, salesQualified)

		if leadCaptured {
			logger.Info("lead captured",
				zap.String("callId", cast.ToString(e.Data["callId"])),
				zap.String("assistantId", cast.ToString(e.Data["assistantId"])),
				zap.String("callerNumber", cast.ToString(e.Data["callerNumber"])),
				zap.Int("leadScore", cast.ToInt(e.Data["leadScore"])),
				zap.Bool("appointmentBooked", appointmentBooked))
		}
		return nil
	})
}
