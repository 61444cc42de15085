package handlers

import (
	"github.com/artport/backend/internal/models"
	"github.com/google/uuid"
)

// SessionStore is the session persistence surface the handlers read and
// write through. *repository.SessionRepository satisfies it; tests use
// in-memory fakes.
type SessionStore interface {
	Create(s *models.StreamSession) error
	GetByID(id uuid.UUID) (*models.StreamSession, error)
	GetByProviderStreamID(provider, providerStreamID string) (*models.StreamSession, error)
	GetActiveSessions(limit int) ([]models.StreamSession, error)
	SetPlaybackID(id uuid.UUID, playbackID string) error
	UpdateViewerMetrics(id uuid.UUID, viewers int) error
}

// ArtistStore resolves artist profiles for stream scheduling and balance reads.
type ArtistStore interface {
	Create(artist *models.Artist) error
	GetByUserID(userID uuid.UUID) (*models.Artist, error)
	GetBySlug(slug string) (*models.Artist, error)
}

// BalanceStore reads minute balances.
type BalanceStore interface {
	GetBalance(artistID uuid.UUID) (*models.MinuteBalance, error)
}
