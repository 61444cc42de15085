package repository

import (
	"database/sql"
	"fmt"

	"github.com/artport/backend/internal/database"
	"github.com/artport/backend/internal/models"
	"github.com/google/uuid"
)

type ArtistRepository struct {
	db *database.DB
}

func NewArtistRepository(db *database.DB) *ArtistRepository {
	return &ArtistRepository{db: db}
}

// Create creates an artist profile and its zeroed minute balance
func (r *ArtistRepository) Create(artist *models.Artist) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO artists (id, user_id, name, slug, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(query,
		artist.ID,
		artist.UserID,
		artist.Name,
		artist.Slug,
		artist.Bio,
		artist.CreatedAt,
		artist.UpdatedAt,
	).Scan(&artist.ID, &artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create artist: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO artist_minute_balances (artist_id) VALUES ($1)`, artist.ID); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create minute balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artist creation: %w", err)
	}
	return nil
}

// GetByID retrieves an artist by ID
func (r *ArtistRepository) GetByID(id uuid.UUID) (*models.Artist, error) {
	query := `
		SELECT id, user_id, name, slug, bio, created_at, updated_at
		FROM artists
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByUserID retrieves the artist profile owned by a user
func (r *ArtistRepository) GetByUserID(userID uuid.UUID) (*models.Artist, error) {
	query := `
		SELECT id, user_id, name, slug, bio, created_at, updated_at
		FROM artists
		WHERE user_id = $1
	`
	return r.scanOne(r.db.QueryRow(query, userID))
}

// GetBySlug retrieves an artist by slug
func (r *ArtistRepository) GetBySlug(slug string) (*models.Artist, error) {
	query := `
		SELECT id, user_id, name, slug, bio, created_at, updated_at
		FROM artists
		WHERE slug = $1
	`
	return r.scanOne(r.db.QueryRow(query, slug))
}

func (r *ArtistRepository) scanOne(row *sql.Row) (*models.Artist, error) {
	a := &models.Artist{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.Slug,
		&a.Bio,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return a, nil
}
