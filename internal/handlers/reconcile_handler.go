package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/artport/backend/internal/lifecycle"
	"github.com/artport/backend/internal/metrics"
	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/artport/backend/internal/video"
	"github.com/gin-gonic/gin"
)

// ReconcileHandler corrects drift between the stored session status and the
// provider's authoritative view. It is invoked by a poller, not by users.
type ReconcileHandler struct {
	sessions  SessionStore
	lifecycle *lifecycle.Service
	platform  video.Platform
	metrics   *metrics.Metrics
}

func NewReconcileHandler(sessions SessionStore, lc *lifecycle.Service, platform video.Platform, m *metrics.Metrics) *ReconcileHandler {
	return &ReconcileHandler{
		sessions:  sessions,
		lifecycle: lc,
		platform:  platform,
		metrics:   m,
	}
}

// Reconcile pulls the provider status for one session and converges the
// stored record:
//
//   - remote active, local not live  -> live (started_at stamped if absent)
//   - remote idle, local live       -> waiting (parked, recoverable; the
//     session is not terminally ended and no minutes are debited)
//
// Anything else is a no-op. "No write" is a successful outcome: the caller
// gets synced=false, not an error.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req models.SessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.sessions.GetByID(req.StreamID)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Stream not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if session.Provider != models.ProviderMux || session.ProviderStreamID == nil {
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"synced":    false,
			"oldStatus": session.Status,
			"newStatus": session.Status,
			"muxStatus": nil,
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()
	remoteStatus, err := h.platform.GetStatus(ctx, *session.ProviderStreamID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to query provider: "+err.Error())
		return
	}

	oldStatus := session.Status
	newStatus := oldStatus
	synced := false

	switch {
	case remoteStatus == video.StatusActive && session.Status != models.StatusLive:
		changed, err := h.lifecycle.Activate(session)
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		if changed {
			newStatus = models.StatusLive
			synced = true
		}

	case remoteStatus == video.StatusIdle && session.Status == models.StatusLive:
		result, err := h.lifecycle.End(session, false)
		if err != nil {
			ErrorResponse(c, http.StatusInternalServerError, err.Error())
			return
		}
		if result.Changed {
			newStatus = models.StatusWaiting
			synced = true
		}
	}

	if synced && h.metrics != nil {
		h.metrics.IncReconcileSyncs()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"synced":    synced,
		"oldStatus": oldStatus,
		"newStatus": newStatus,
		"muxStatus": remoteStatus,
	})
}
