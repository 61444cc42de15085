package models

import (
	"time"

	"github.com/google/uuid"
)

// Artist is the creator profile ("Port") owned by a user.
type Artist struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	Bio       *string   `json:"bio,omitempty" db:"bio"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MinuteBalance is the per-artist streaming minute ledger. It is mutated
// only through LedgerRepository.DebitMinutes, at most once per ended
// platform-managed session.
type MinuteBalance struct {
	ArtistID         uuid.UUID `json:"artist_id" db:"artist_id"`
	MinutesRemaining int       `json:"minutes_remaining" db:"minutes_remaining"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

type CreateArtistRequest struct {
	Name string  `json:"name" binding:"required"`
	Slug string  `json:"slug" binding:"required"`
	Bio  *string `json:"bio,omitempty"`
}
