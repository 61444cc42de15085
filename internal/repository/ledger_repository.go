package repository

import (
	"database/sql"
	"fmt"

	"github.com/artport/backend/internal/database"
	"github.com/artport/backend/internal/models"
	"github.com/google/uuid"
)

type LedgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// DebitMinutes decrements an artist's minute balance for an ended session.
// The debit and the session's minutes_debited flag are flipped in one
// transaction, conditional on the flag being unset and the session being
// platform-managed, so the debit happens at most once per session no matter
// how many triggers race to end it. Returns whether a debit occurred.
func (r *LedgerRepository) DebitMinutes(sessionID, artistID uuid.UUID, minutes int) (bool, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}

	res, err := tx.Exec(`
		UPDATE stream_sessions
		SET minutes_debited = TRUE, updated_at = NOW()
		WHERE id = $1 AND minutes_debited = FALSE AND streaming_mode = 'platform_managed'
	`, sessionID)
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("failed to flag session as debited: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Already debited, or not a metered session.
		tx.Rollback()
		return false, nil
	}

	if _, err := tx.Exec(`
		UPDATE artist_minute_balances
		SET minutes_remaining = minutes_remaining - $1, updated_at = NOW()
		WHERE artist_id = $2
	`, minutes, artistID); err != nil {
		tx.Rollback()
		return false, fmt.Errorf("failed to debit minute balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit minute debit: %w", err)
	}
	return true, nil
}

// GetBalance returns the artist's current minute balance
func (r *LedgerRepository) GetBalance(artistID uuid.UUID) (*models.MinuteBalance, error) {
	query := `SELECT artist_id, minutes_remaining, updated_at FROM artist_minute_balances WHERE artist_id = $1`
	b := &models.MinuteBalance{}
	err := r.db.QueryRow(query, artistID).Scan(&b.ArtistID, &b.MinutesRemaining, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get minute balance: %w", err)
	}
	return b, nil
}
