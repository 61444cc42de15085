package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/artport/backend/internal/database"
	"github.com/artport/backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, artist_id, user_id, title, provider, provider_stream_id, stream_key, playback_id,
		status, streaming_mode, started_at, ended_at, duration_minutes, minutes_debited, peak_viewers,
		created_at, updated_at`

// Create inserts a new stream session
func (r *SessionRepository) Create(s *models.StreamSession) error {
	query := `
		INSERT INTO stream_sessions (id, artist_id, user_id, title, provider, provider_stream_id,
			stream_key, playback_id, status, streaming_mode, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		s.ID,
		s.ArtistID,
		s.UserID,
		s.Title,
		s.Provider,
		s.ProviderStreamID,
		s.StreamKey,
		s.PlaybackID,
		s.Status,
		s.StreamingMode,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its ID
func (r *SessionRepository) GetByID(id uuid.UUID) (*models.StreamSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM stream_sessions WHERE id = $1`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByProviderStreamID retrieves a session by its provider-side stream ID
func (r *SessionRepository) GetByProviderStreamID(provider, providerStreamID string) (*models.StreamSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM stream_sessions WHERE provider = $1 AND provider_stream_id = $2`
	return r.scanOne(r.db.QueryRow(query, provider, providerStreamID))
}

// GetActiveSessions returns sessions currently marked as 'live'
func (r *SessionRepository) GetActiveSessions(limit int) ([]models.StreamSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + sessionColumns + ` FROM stream_sessions WHERE status = 'live' ORDER BY started_at DESC LIMIT $1`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}
	defer rows.Close()

	var out []models.StreamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// MarkLive transitions a session into 'live', stamping started_at only if it
// has never been stamped. The update is conditional on the session not
// already being live or finished, so webhook re-delivery is a no-op and can
// never corrupt the elapsed-time computation. Returns whether a row changed.
func (r *SessionRepository) MarkLive(id uuid.UUID, startedAt time.Time) (bool, error) {
	query := `
		UPDATE stream_sessions
		SET status = 'live', started_at = COALESCE(started_at, $1), updated_at = NOW()
		WHERE id = $2 AND status IN ('scheduled', 'waiting')
	`
	res, err := r.db.Exec(query, startedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark session live: %w", err)
	}
	return rowsChanged(res)
}

// Finish transitions a session out of 'live' into a terminal ('ended') or
// parked ('waiting') status. ended_at and duration_minutes are stamped only
// on first write. fromStatuses guards the transition: the update applies
// only when the current status is one of them. Returns whether a row changed.
func (r *SessionRepository) Finish(id uuid.UUID, toStatus string, endedAt time.Time, durationMinutes int, fromStatuses []string) (bool, error) {
	query := `
		UPDATE stream_sessions
		SET status = $1,
			ended_at = COALESCE(ended_at, $2),
			duration_minutes = COALESCE(duration_minutes, $3),
			updated_at = NOW()
		WHERE id = $4 AND status = ANY($5)
	`
	res, err := r.db.Exec(query, toStatus, endedAt, durationMinutes, id, pq.Array(fromStatuses))
	if err != nil {
		return false, fmt.Errorf("failed to finish session: %w", err)
	}
	return rowsChanged(res)
}

// Cancel transitions a session into 'cancelled'. Only sessions that have not
// gone live can be cancelled. Returns whether a row changed.
func (r *SessionRepository) Cancel(id uuid.UUID) (bool, error) {
	query := `
		UPDATE stream_sessions
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'waiting')
	`
	res, err := r.db.Exec(query, id)
	if err != nil {
		return false, fmt.Errorf("failed to cancel session: %w", err)
	}
	return rowsChanged(res)
}

// SetPlaybackID records the on-demand playback ID once the provider has the
// asset ready. Does not change status.
func (r *SessionRepository) SetPlaybackID(id uuid.UUID, playbackID string) error {
	query := `UPDATE stream_sessions SET playback_id = $1, updated_at = NOW() WHERE id = $2`
	if _, err := r.db.Exec(query, playbackID, id); err != nil {
		return fmt.Errorf("failed to set playback id: %w", err)
	}
	return nil
}

// UpdateViewerMetrics records a platform-reported viewer count. The stored
// peak only ever grows.
func (r *SessionRepository) UpdateViewerMetrics(id uuid.UUID, viewers int) error {
	query := `UPDATE stream_sessions SET peak_viewers = GREATEST(peak_viewers, $1), updated_at = NOW() WHERE id = $2`
	if _, err := r.db.Exec(query, viewers, id); err != nil {
		return fmt.Errorf("failed to update viewer metrics: %w", err)
	}
	return nil
}

func (r *SessionRepository) scanOne(row *sql.Row) (*models.StreamSession, error) {
	s := &models.StreamSession{}
	err := row.Scan(
		&s.ID, &s.ArtistID, &s.UserID, &s.Title, &s.Provider, &s.ProviderStreamID,
		&s.StreamKey, &s.PlaybackID, &s.Status, &s.StreamingMode, &s.StartedAt,
		&s.EndedAt, &s.DurationMinutes, &s.MinutesDebited, &s.PeakViewers,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func scanSession(rows *sql.Rows) (*models.StreamSession, error) {
	s := &models.StreamSession{}
	err := rows.Scan(
		&s.ID, &s.ArtistID, &s.UserID, &s.Title, &s.Provider, &s.ProviderStreamID,
		&s.StreamKey, &s.PlaybackID, &s.Status, &s.StreamingMode, &s.StartedAt,
		&s.EndedAt, &s.DurationMinutes, &s.MinutesDebited, &s.PeakViewers,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

func rowsChanged(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
