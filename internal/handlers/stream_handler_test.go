package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/artport/backend/internal/lifecycle"
	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/video"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamRouter(uid uuid.UUID, store *fakeSessionStore, ledger *fakeLedger, platform *fakePlatform, artists *fakeArtistStore, clock clockwork.Clock) *gin.Engine {
	svc := lifecycle.NewServiceWithClock(store, ledger, nil, clock)
	platforms := map[string]video.Platform{
		models.ProviderMux:        platform,
		models.ProviderSelfHosted: platform,
	}
	h := NewStreamHandler(store, artists, svc, platforms, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", uid) })
	r.POST("/streams", h.CreateStream)
	r.GET("/streams/:id", h.GetStream)
	r.POST("/streams/end", h.EndStream)
	r.POST("/streams/cancel", h.CancelStream)
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEndStream_OwnerEndsLiveSession(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := muxSession(models.StatusLive, &started)
	store := newFakeSessionStore(session)
	ledger := &fakeLedger{store: store}
	platform := &fakePlatform{}
	clock := clockwork.NewFakeClockAt(started.Add(125 * time.Second))
	r := streamRouter(session.UserID, store, ledger, platform, &fakeArtistStore{}, clock)

	w := postJSON(r, "/streams/end", gin.H{"streamId": session.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success         bool `json:"success"`
		DurationMinutes int  `json:"duration_minutes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 3, resp.DurationMinutes)

	got := store.get(session.ID)
	assert.Equal(t, models.StatusEnded, got.Status)
	assert.Equal(t, 1, platform.disableCalls)
	assert.Equal(t, []int{3}, ledger.debits)
}

func TestEndStream_NonOwnerIs403(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := muxSession(models.StatusLive, &started)
	store := newFakeSessionStore(session)
	r := streamRouter(uuid.New(), store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	w := postJSON(r, "/streams/end", gin.H{"streamId": session.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.StatusLive, store.get(session.ID).Status)
}

func TestEndStream_UnknownSessionIs404(t *testing.T) {
	store := newFakeSessionStore()
	r := streamRouter(uuid.New(), store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	w := postJSON(r, "/streams/end", gin.H{"streamId": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEndStream_RemoteDisableFailureIsNonFatal(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := muxSession(models.StatusLive, &started)
	store := newFakeSessionStore(session)
	platform := &fakePlatform{disableErr: errors.New("provider down")}
	clock := clockwork.NewFakeClockAt(started.Add(time.Minute))
	r := streamRouter(session.UserID, store, &fakeLedger{store: store}, platform, &fakeArtistStore{}, clock)

	w := postJSON(r, "/streams/end", gin.H{"streamId": session.ID})

	// The local record is authoritative: the session still closes out.
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusEnded, store.get(session.ID).Status)
}

func TestCancelStream_FromScheduled(t *testing.T) {
	session := muxSession(models.StatusScheduled, nil)
	store := newFakeSessionStore(session)
	r := streamRouter(session.UserID, store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	w := postJSON(r, "/streams/cancel", gin.H{"streamId": session.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusCancelled, store.get(session.ID).Status)
}

func TestCancelStream_PreconditionMatrix(t *testing.T) {
	for _, status := range []string{models.StatusLive, models.StatusEnded, models.StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			session := muxSession(status, nil)
			store := newFakeSessionStore(session)
			r := streamRouter(session.UserID, store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

			w := postJSON(r, "/streams/cancel", gin.H{"streamId": session.ID})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, status, store.get(session.ID).Status)
		})
	}
}

func TestCancelStream_NonOwnerIs403(t *testing.T) {
	session := muxSession(models.StatusScheduled, nil)
	store := newFakeSessionStore(session)
	r := streamRouter(uuid.New(), store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	w := postJSON(r, "/streams/cancel", gin.H{"streamId": session.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.StatusScheduled, store.get(session.ID).Status)
}

func TestCreateStream_ProvisionsRemoteStream(t *testing.T) {
	uid := uuid.New()
	artists := &fakeArtistStore{}
	require.NoError(t, artists.Create(&models.Artist{ID: uuid.New(), UserID: uid, Name: "Ana", Slug: "ana"}))
	store := newFakeSessionStore()
	r := streamRouter(uid, store, &fakeLedger{store: store}, &fakePlatform{}, artists, clockwork.NewRealClock())

	w := postJSON(r, "/streams", gin.H{"title": "first show", "provider": "mux"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.StreamSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.StatusScheduled, created.Status)
	assert.Equal(t, models.ModePlatformManaged, created.StreamingMode)
	require.NotNil(t, created.ProviderStreamID)
	assert.Equal(t, "remote-1", *created.ProviderStreamID)
	require.NotNil(t, created.StreamKey)
}

func TestCreateStream_NoArtistProfileIs404(t *testing.T) {
	store := newFakeSessionStore()
	r := streamRouter(uuid.New(), store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	w := postJSON(r, "/streams", gin.H{"title": "first show", "provider": "mux"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStream(t *testing.T) {
	session := muxSession(models.StatusLive, nil)
	store := newFakeSessionStore(session)
	r := streamRouter(session.UserID, store, &fakeLedger{store: store}, &fakePlatform{}, &fakeArtistStore{}, clockwork.NewRealClock())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/streams/%s", session.ID), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/streams/%s", uuid.New()), nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
