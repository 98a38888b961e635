package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/lifecycle"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SignatureHeader         = "X-Webhook-Signature"
	SignatureHeaderFallback = "X-Signature"
	TimestampHeader         = "X-Webhook-Timestamp"
	DefaultWebhookTolerance = 15 * time.Minute
	signaturePrefix         = "sha256="
	maxWebhookBodyBytes     = 2 << 20
	webhookStatusProcessed  = "processed"
	webhookStatusIgnored    = "ignored"
)

// ErrInvalidSignature is the root of every webhook authentication failure.
var ErrInvalidSignature = errors.New("invalid webhook signature")

var (
	ErrSecretNotConfigured = fmt.Errorf("%w: secret not configured", ErrInvalidSignature)
	ErrMissingSignature    = fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	ErrSignatureMismatch   = fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	ErrInvalidTimestamp    = fmt.Errorf("%w: invalid timestamp", ErrInvalidSignature)
	ErrTimestampExpired    = fmt.Errorf("%w: request expired", ErrInvalidSignature)
)

// SignWebhook returns the hex signature for body. A non-empty timestamp is
// signed as "<timestamp>.<body>".
func SignWebhook(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	if timestamp != "" {
		mac.Write([]byte(timestamp))
		mac.Write([]byte("."))
	}
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature checks an HMAC-SHA256 signature over body. Without a
// configured secret nothing verifies.
func VerifyWebhookSignature(secret string, body []byte, signature, timestamp string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return ErrSecretNotConfigured
	}
	signature = strings.TrimSpace(signature)
	if len(signature) >= len(signaturePrefix) && strings.EqualFold(signature[:len(signaturePrefix)], signaturePrefix) {
		signature = signature[len(signaturePrefix):]
	}
	if signature == "" {
		return ErrMissingSignature
	}

	timestamp = strings.TrimSpace(timestamp)
	if timestamp != "" {
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil || ts <= 0 {
			return ErrInvalidTimestamp
		}
		// 毫秒时间戳
		if ts >= 1e12 {
			ts /= 1000
		}
		if d := now.Sub(time.Unix(ts, 0)); d > tolerance || d < -tolerance {
			return ErrTimestampExpired
		}
	}

	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return ErrSignatureMismatch
	}
	expected, _ := hex.DecodeString(SignWebhook(secret, timestamp, body))
	if !hmac.Equal(got, expected) {
		return ErrSignatureMismatch
	}
	return nil
}

// HandleVoiceWebhook ingests one call lifecycle event. Malformed and
// unsupported events are acknowledged with 200 so the provider does not retry.
func (h *Handlers) HandleVoiceWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		response.AbortWithStatusJSON(c, http.StatusRequestEntityTooLarge, err)
		return
	}

	signature := c.GetHeader(SignatureHeader)
	if signature == "" {
		signature = c.GetHeader(SignatureHeaderFallback)
	}
	if err := VerifyWebhookSignature(h.webhookSecret, body, signature, c.GetHeader(TimestampHeader), h.webhookTolerance, h.now()); err != nil {
		logger.Warn("webhook rejected",
			zap.String("clientIp", c.ClientIP()),
			zap.Error(err))
		h.metrics.RecordWebhookEvent("unknown", "unauthorized")
		response.AbortWithStatusJSON(c, http.StatusUnauthorized, err)
		return
	}

	eventType, payload, err := lifecycle.ParseEnvelope(body)
	if err != nil {
		logger.Warn("webhook body is not valid json", zap.Error(err))
		h.metrics.RecordWebhookEvent("unknown", "malformed")
		c.JSON(http.StatusOK, gin.H{"status": webhookStatusIgnored, "reason": "malformed"})
		return
	}

	ack, err := h.tracker.Ingest(c.Request.Context(), eventType, payload)
	switch {
	case errors.Is(err, lifecycle.ErrMalformedEvent):
		logger.Warn("malformed call event", zap.String("eventType", eventType), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": webhookStatusIgnored, "reason": "malformed"})
	case errors.Is(err, lifecycle.ErrUnsupportedEvent):
		logger.Debug("unsupported call event", zap.String("eventType", eventType))
		c.JSON(http.StatusOK, gin.H{"status": webhookStatusIgnored, "reason": "unsupported", "eventType": eventType})
	case err != nil:
		response.AbortWithStatusJSON(c, http.StatusServiceUnavailable, errors.New("call store unavailable"))
	default:
		c.JSON(http.StatusOK, gin.H{"status": webhookStatusProcessed, "ack": ack})
	}
}
