package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ArtistHandler struct {
	artists  ArtistStore
	balances BalanceStore
}

func NewArtistHandler(artists ArtistStore, balances BalanceStore) *ArtistHandler {
	return &ArtistHandler{artists: artists, balances: balances}
}

// CreateArtist creates the caller's artist profile
func (h *ArtistHandler) CreateArtist(c *gin.Context) {
	var req models.CreateArtistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	if _, err := h.artists.GetByUserID(uid); err == nil {
		ErrorResponse(c, http.StatusBadRequest, "Artist profile already exists")
		return
	}

	artist := &models.Artist{
		ID:        uuid.New(),
		UserID:    uid,
		Name:      req.Name,
		Slug:      req.Slug,
		Bio:       req.Bio,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.artists.Create(artist); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create artist")
		return
	}

	c.JSON(http.StatusCreated, artist)
}

// GetArtist returns an artist profile by slug
func (h *ArtistHandler) GetArtist(c *gin.Context) {
	artist, err := h.artists.GetBySlug(c.Param("slug"))
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Artist not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, artist)
}

// GetMinuteBalance returns the caller's streaming minute balance
func (h *ArtistHandler) GetMinuteBalance(c *gin.Context) {
	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	artist, err := h.artists.GetByUserID(uid)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Artist profile not found")
		return
	}

	balance, err := h.balances.GetBalance(artist.ID)
	if errors.Is(err, repository.ErrNotFound) {
		ErrorResponse(c, http.StatusNotFound, "Balance not found")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, balance)
}
