package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/artport/backend/internal/video"
	"github.com/google/uuid"
)

// fakeSessionStore mirrors the conditional-update semantics of the SQL
// repository in memory.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.StreamSession

	markLiveCalls int
	finishCalls   int
}

func newFakeSessionStore(sessions ...*models.StreamSession) *fakeSessionStore {
	f := &fakeSessionStore{sessions: make(map[uuid.UUID]*models.StreamSession)}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessionStore) Create(s *models.StreamSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) GetByID(id uuid.UUID) (*models.StreamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetByProviderStreamID(provider, providerStreamID string) (*models.StreamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Provider == provider && s.ProviderStreamID != nil && *s.ProviderStreamID == providerStreamID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSessionStore) GetActiveSessions(limit int) ([]models.StreamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StreamSession
	for _, s := range f.sessions {
		if s.Status == models.StatusLive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) MarkLive(id uuid.UUID, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markLiveCalls++
	s, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	if s.Status != models.StatusScheduled && s.Status != models.StatusWaiting {
		return false, nil
	}
	s.Status = models.StatusLive
	if s.StartedAt == nil {
		s.StartedAt = &startedAt
	}
	return true, nil
}

func (f *fakeSessionStore) Finish(id uuid.UUID, toStatus string, endedAt time.Time, durationMinutes int, fromStatuses []string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finishCalls++
	s, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, from := range fromStatuses {
		if s.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	s.Status = toStatus
	if s.EndedAt == nil {
		s.EndedAt = &endedAt
	}
	if s.DurationMinutes == nil {
		s.DurationMinutes = &durationMinutes
	}
	return true, nil
}

func (f *fakeSessionStore) Cancel(id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return false, nil
	}
	if s.Status != models.StatusScheduled && s.Status != models.StatusWaiting {
		return false, nil
	}
	s.Status = models.StatusCancelled
	return true, nil
}

func (f *fakeSessionStore) SetPlaybackID(id uuid.UUID, playbackID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		s.PlaybackID = &playbackID
	}
	return nil
}

func (f *fakeSessionStore) UpdateViewerMetrics(id uuid.UUID, viewers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok && viewers > s.PeakViewers {
		s.PeakViewers = viewers
	}
	return nil
}

func (f *fakeSessionStore) get(id uuid.UUID) *models.StreamSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

// fakeLedger applies the same at-most-once guard as the SQL ledger.
type fakeLedger struct {
	store   *fakeSessionStore
	debits  []int
	balance int
}

func (f *fakeLedger) DebitMinutes(sessionID, artistID uuid.UUID, minutes int) (bool, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	s, ok := f.store.sessions[sessionID]
	if !ok || s.MinutesDebited || s.StreamingMode != models.ModePlatformManaged {
		return false, nil
	}
	s.MinutesDebited = true
	f.debits = append(f.debits, minutes)
	f.balance -= minutes
	return true, nil
}

func (f *fakeLedger) GetBalance(artistID uuid.UUID) (*models.MinuteBalance, error) {
	return &models.MinuteBalance{ArtistID: artistID, MinutesRemaining: f.balance}, nil
}

// fakePlatform records calls to the video port.
type fakePlatform struct {
	status       string
	statusErr    error
	disableErr   error
	disableCalls int
	statusCalls  int
	created      *video.LiveStream
}

func (f *fakePlatform) CreateLiveStream(ctx context.Context) (*video.LiveStream, error) {
	if f.created != nil {
		return f.created, nil
	}
	return &video.LiveStream{ID: "remote-1", StreamKey: "key-1", PlaybackID: "pb-1"}, nil
}

func (f *fakePlatform) Disable(ctx context.Context, streamID string) error {
	f.disableCalls++
	return f.disableErr
}

func (f *fakePlatform) GetStatus(ctx context.Context, streamID string) (string, error) {
	f.statusCalls++
	return f.status, f.statusErr
}

// fakeArtistStore holds artist profiles in memory.
type fakeArtistStore struct {
	artists map[uuid.UUID]*models.Artist // keyed by user ID
}

func (f *fakeArtistStore) Create(artist *models.Artist) error {
	if f.artists == nil {
		f.artists = make(map[uuid.UUID]*models.Artist)
	}
	f.artists[artist.UserID] = artist
	return nil
}

func (f *fakeArtistStore) GetByUserID(userID uuid.UUID) (*models.Artist, error) {
	if a, ok := f.artists[userID]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeArtistStore) GetBySlug(slug string) (*models.Artist, error) {
	for _, a := range f.artists {
		if a.Slug == slug {
			return a, nil
		}
	}
	return nil, repository.ErrNotFound
}
