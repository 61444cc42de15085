package models

import (
	"time"

	"github.com/google/uuid"
)

// Session statuses
const (
	StatusScheduled = "scheduled"
	StatusWaiting   = "waiting"
	StatusLive      = "live"
	StatusEnded     = "ended"
	StatusCancelled = "cancelled"
)

// Video providers
const (
	ProviderMux        = "mux"
	ProviderSelfHosted = "self_hosted"
)

// Streaming modes. Only platform-managed sessions are metered against the
// artist's minute balance.
const (
	ModePlatformManaged = "platform_managed"
	ModeSelfManaged     = "self_managed"
)

type StreamSession struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	ArtistID         uuid.UUID  `json:"artist_id" db:"artist_id"`
	UserID           uuid.UUID  `json:"user_id" db:"user_id"`
	Title            string     `json:"title" db:"title"`
	Provider         string     `json:"provider" db:"provider"` // mux, self_hosted
	ProviderStreamID *string    `json:"provider_stream_id,omitempty" db:"provider_stream_id"`
	StreamKey        *string    `json:"stream_key,omitempty" db:"stream_key"`
	PlaybackID       *string    `json:"playback_id,omitempty" db:"playback_id"`
	Status           string     `json:"status" db:"status"`
	StreamingMode    string     `json:"streaming_mode" db:"streaming_mode"`
	StartedAt        *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	DurationMinutes  *int       `json:"duration_minutes,omitempty" db:"duration_minutes"`
	MinutesDebited   bool       `json:"minutes_debited" db:"minutes_debited"`
	PeakViewers      int        `json:"peak_viewers" db:"peak_viewers"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// Metered reports whether ending this session debits the artist's minute balance.
func (s *StreamSession) Metered() bool {
	return s.StreamingMode == ModePlatformManaged
}

// Cancellable reports whether the session can still be cancelled.
// Cancellation is only reachable before the stream has gone live.
func (s *StreamSession) Cancellable() bool {
	return s.Status == StatusScheduled || s.Status == StatusWaiting
}

type CreateSessionRequest struct {
	Title         string `json:"title" binding:"required"`
	Provider      string `json:"provider" binding:"required,oneof=mux self_hosted"`
	StreamingMode string `json:"streaming_mode" binding:"omitempty,oneof=platform_managed self_managed"`
}

type SessionIDRequest struct {
	StreamID uuid.UUID `json:"streamId" binding:"required"`
}
