package handlers

import (
	"encoding/json"
	"net/http"
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

type reconcileResponse struct {
	Success   bool    `json:"success"`
	Synced    bool    `json:"synced"`
	OldStatus string  `json:"oldStatus"`
	NewStatus string  `json:"newStatus"`
	MuxStatus *string `json:"muxStatus"`
}

func reconcileRouter(store *fakeSessionStore, ledger *fakeLedger, platform *fakePlatform, clock clockwork.Clock) *gin.Engine {
	svc := lifecycle.NewServiceWithClock(store, ledger, nil, clock)
	h := NewReconcileHandler(store, svc, platform, nil)
	r := gin.New()
	r.POST("/internal/streams/reconcile", h.Reconcile)
	return r
}

func doReconcile(t *testing.T, r *gin.Engine, id uuid.UUID) (int, reconcileResponse) {
	t.Helper()
	w := postJSON(r, "/internal/streams/reconcile", gin.H{"streamId": id})
	var resp reconcileResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestReconcile_SelfHostedIsNoOp(t *testing.T) {
	session := muxSession(models.StatusLive, nil)
	session.Provider = models.ProviderSelfHosted
	store := newFakeSessionStore(session)
	platform := &fakePlatform{status: video.StatusActive}
	r := reconcileRouter(store, &fakeLedger{store: store}, platform, clockwork.NewRealClock())

	code, resp := doReconcile(t, r, session.ID)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.False(t, resp.Synced)
	assert.Equal(t, 0, platform.statusCalls)
	assert.Nil(t, resp.MuxStatus)
}

func TestReconcile_RemoteActiveBringsSessionLive(t *testing.T) {
	session := muxSession(models.StatusScheduled, nil)
	store := newFakeSessionStore(session)
	platform := &fakePlatform{status: video.StatusActive}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	r := reconcileRouter(store, &fakeLedger{store: store}, platform, clock)

	code, resp := doReconcile(t, r, session.ID)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Synced)
	assert.Equal(t, models.StatusScheduled, resp.OldStatus)
	assert.Equal(t, models.StatusLive, resp.NewStatus)
	require.NotNil(t, resp.MuxStatus)
	assert.Equal(t, video.StatusActive, *resp.MuxStatus)

	got := store.get(session.ID)
	assert.Equal(t, models.StatusLive, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestReconcile_RemoteActiveKeepsExistingStartedAt(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := muxSession(models.StatusWaiting, &started)
	store := newFakeSessionStore(session)
	platform := &fakePlatform{status: video.StatusActive}
	clock := clockwork.NewFakeClockAt(started.Add(time.Hour))
	r := reconcileRouter(store, &fakeLedger{store: store}, platform, clock)

	code, resp := doReconcile(t, r, session.ID)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Synced)
	assert.Equal(t, started, *store.get(session.ID).StartedAt)
}

func TestReconcile_RemoteIdleParksLiveSessionAsWaiting(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := muxSession(models.StatusLive, &started)
	store := newFakeSessionStore(session)
	ledger := &fakeLedger{store: store}
	platform := &fakePlatform{status: video.StatusIdle}
	clock := clockwork.NewFakeClockAt(started.Add(125 * time.Second))
	r := reconcileRouter(store, ledger, platform, clock)

	code, resp := doReconcile(t, r, session.ID)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Synced)
	assert.Equal(t, models.StatusWaiting, resp.NewStatus)

	got := store.get(session.ID)
	assert.Equal(t, models.StatusWaiting, got.Status)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 3, *got.DurationMinutes)
	// Parking is recoverable, not terminal: no debit.
	assert.Empty(t, ledger.debits)
}

func TestReconcile_NoDriftIsNoOp(t *testing.T) {
	session := muxSession(models.StatusScheduled, nil)
	store := newFakeSessionStore(session)
	platform := &fakePlatform{status: video.StatusIdle}
	r := reconcileRouter(store, &fakeLedger{store: store}, platform, clockwork.NewRealClock())

	code, resp := doReconcile(t, r, session.ID)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.False(t, resp.Synced)
	assert.Equal(t, models.StatusScheduled, resp.NewStatus)
}

func TestReconcile_UnknownSessionIs404(t *testing.T) {
	store := newFakeSessionStore()
	r := reconcileRouter(store, &fakeLedger{store: store}, &fakePlatform{}, clockwork.NewRealClock())

	code, _ := doReconcile(t, r, uuid.New())
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReconcile_InvalidBodyIs400(t *testing.T) {
	store := newFakeSessionStore()
	r := reconcileRouter(store, &fakeLedger{store: store}, &fakePlatform{}, clockwork.NewRealClock())

	w := postJSON(r, "/internal/streams/reconcile", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
