package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/artport/backend/internal/lifecycle"
	"github.com/artport/backend/internal/metrics"
	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/artport/backend/internal/video"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StreamHandler struct {
	sessions  SessionStore
	artists   ArtistStore
	lifecycle *lifecycle.Service
	platforms map[string]video.Platform
	metrics   *metrics.Metrics
}

func NewStreamHandler(sessions SessionStore, artists ArtistStore, lc *lifecycle.Service, platforms map[string]video.Platform, m *metrics.Metrics) *StreamHandler {
	return &StreamHandler{
		sessions:  sessions,
		artists:   artists,
		lifecycle: lc,
		platforms: platforms,
		metrics:   m,
	}
}

// CreateStream schedules a new stream session for the caller's artist
// profile. For hosted-video sessions the provider stream is provisioned up
// front so the artist gets a stream key back.
func (h *StreamHandler) CreateStream(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	artist, err := h.artists.GetByUserID(uid)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Artist profile not found")
		return
	}

	mode := req.StreamingMode
	if mode == "" {
		if req.Provider == models.ProviderMux {
			mode = models.ModePlatformManaged
		} else {
			mode = models.ModeSelfManaged
		}
	}

	now := time.Now()
	session := &models.StreamSession{
		ID:            uuid.New(),
		ArtistID:      artist.ID,
		UserID:        uid,
		Title:         req.Title,
		Provider:      req.Provider,
		Status:        models.StatusScheduled,
		StreamingMode: mode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	platform, ok := h.platforms[req.Provider]
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "Unknown provider")
		return
	}

	remote, err := platform.CreateLiveStream(c.Request.Context())
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to provision stream: "+err.Error())
		return
	}
	session.ProviderStreamID = &remote.ID
	session.StreamKey = &remote.StreamKey
	if remote.PlaybackID != "" {
		session.PlaybackID = &remote.PlaybackID
	}

	if err := h.sessions.Create(session); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create session")
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetStream returns a single session
func (h *StreamHandler) GetStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid stream id")
		return
	}

	session, err := h.sessions.GetByID(id)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Stream not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetActiveStreams returns currently live sessions for the explore page
func (h *StreamHandler) GetActiveStreams(c *gin.Context) {
	sessions, err := h.sessions.GetActiveSessions(50)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get active streams")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// EndStream ends a stream explicitly. Only the owning user may end their
// session. The remote disable call is best-effort: if the provider is
// unreachable the local record is still closed out, keeping the historical
// record consistent.
func (h *StreamHandler) EndStream(c *gin.Context) {
	var req models.SessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	session, err := h.sessions.GetByID(req.StreamID)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Stream not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if session.UserID != uid {
		ErrorResponse(c, http.StatusForbidden, "Only the stream owner can end it")
		return
	}

	if platform, ok := h.platforms[session.Provider]; ok && session.ProviderStreamID != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		if err := platform.Disable(ctx, *session.ProviderStreamID); err != nil && !errors.Is(err, video.ErrUnsupported) {
			log.Printf("Warning: failed to disable remote stream %s: %v", *session.ProviderStreamID, err)
		}
	}

	result, err := h.lifecycle.End(session, true)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Changed && h.metrics != nil {
		h.metrics.IncSessionsEnded()
	}
	if result.Debited && h.metrics != nil {
		h.metrics.IncLedgerDebits()
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"duration_minutes": result.DurationMinutes,
	})
}

// CancelStream cancels a session that has not gone live yet. Only the
// owning user may cancel, and only from 'scheduled' or 'waiting'.
func (h *StreamHandler) CancelStream(c *gin.Context) {
	var req models.SessionIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	session, err := h.sessions.GetByID(req.StreamID)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Stream not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	if session.UserID != uid {
		ErrorResponse(c, http.StatusForbidden, "Only the stream owner can cancel it")
		return
	}

	if !session.Cancellable() {
		ErrorResponse(c, http.StatusBadRequest, "Stream can only be cancelled before it goes live")
		return
	}

	changed, err := h.lifecycle.Cancel(session)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	if !changed {
		// Lost a race with an activation or another cancel.
		ErrorResponse(c, http.StatusBadRequest, "Stream can only be cancelled before it goes live")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Stream cancelled",
		"streamId": session.ID,
	})
}
