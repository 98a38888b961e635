package lifecycle

import (
	"strings"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
)

// StaleTimeoutReason is the ended reason the sweeper uses for abandoned calls.
const StaleTimeoutReason = "call-stale-timeout"

// completionReasons end a call as COMPLETED. Every other reason, including
// ones the provider adds later, ends it as FAILED.
var completionReasons = map[string]struct{}{
	"customer-ended-call":                       {},
	"assistant-ended-call":                      {},
	"assistant-said-end-call-phrase":            {},
	"assistant-ended-call-after-message-spoken": {},
	"assistant-ended-call-with-hangup-task":     {},
	"assistant-forwarded-call":                  {},
	"call-transferred":                          {},
	"exceeded-max-duration":                     {},
	"customer-ended-call-after-warm-transfer":   {},
	"assistant-ended-call-after-warm-transfer":  {},
}

// StatusForEndedReason maps a provider ended reason to the final status.
func StatusForEndedReason(reason string) models.CallStatus {
	if _, ok := completionReasons[strings.ToLower(strings.TrimSpace(reason))]; ok {
		return models.CallStatusCompleted
	}
	return models.CallStatusFailed
}
