package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/artport/backend/internal/lifecycle"
	"github.com/artport/backend/internal/metrics"
	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/gin-gonic/gin"
)

// WebhookHandler receives state-change events pushed by the video provider.
// The provider retries failed deliveries on its own schedule; this handler
// never retries anything itself.
type WebhookHandler struct {
	sessions  SessionStore
	lifecycle *lifecycle.Service
	metrics   *metrics.Metrics
	secret    string
}

func NewWebhookHandler(sessions SessionStore, lc *lifecycle.Service, m *metrics.Metrics, secret string) *WebhookHandler {
	return &WebhookHandler{
		sessions:  sessions,
		lifecycle: lc,
		metrics:   m,
		secret:    secret,
	}
}

// Handle processes one provider event envelope: {type, data:{id, ...}}.
// Unknown stream ids answer 404 as an idempotent no-op so the provider
// stops retrying; unknown event types are logged and acknowledged.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Failed to read body")
		return
	}

	if h.secret != "" && !h.verifySignature(c.GetHeader("Mux-Signature"), body) {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid webhook signature")
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid event payload")
		return
	}

	streamID := event.Data.LiveStreamID
	if streamID == "" {
		streamID = event.Data.ID
	}
	if streamID == "" {
		ErrorResponse(c, http.StatusBadRequest, "Event has no stream id")
		return
	}

	if h.metrics != nil {
		h.metrics.IncWebhookEvent(event.Type)
	}

	session, err := h.sessions.GetByProviderStreamID(models.ProviderMux, streamID)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Unknown stream")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	switch event.Type {
	case models.EventStreamActive:
		if _, err := h.lifecycle.Activate(session); err != nil {
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}

	case models.EventStreamIdle:
		result, err := h.lifecycle.End(session, true)
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		if h.metrics != nil {
			if result.Changed {
				h.metrics.IncSessionsEnded()
			}
			if result.Debited {
				h.metrics.IncLedgerDebits()
			}
		}

	case models.EventAssetReady:
		if len(event.Data.PlaybackIDs) > 0 {
			if err := h.sessions.SetPlaybackID(session.ID, event.Data.PlaybackIDs[0].ID); err != nil {
				ErrorResponse(c, http.StatusInternalServerError, err.Error())
				return
			}
		}

	case models.EventStreamUpdated:
		if event.Data.ViewerCount != nil {
			if err := h.sessions.UpdateViewerMetrics(session.ID, *event.Data.ViewerCount); err != nil {
				ErrorResponse(c, http.StatusInternalServerError, err.Error())
				return
			}
		}

	default:
		log.Printf("Ignoring webhook event type %q for stream %s", event.Type, streamID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// verifySignature checks the provider's HMAC signature header, formatted as
// "t=<unix>,v1=<hex>". The signed payload is "<t>.<body>".
func (h *WebhookHandler) verifySignature(header string, body []byte) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
