package viewers

import (
	"log"
	"sync"

	"github.com/artport/backend/internal/cache"
	"github.com/google/uuid"
)

// SessionStore is the slice of session persistence the hub needs to record
// peak viewer counts.
type SessionStore interface {
	UpdateViewerMetrics(id uuid.UUID, viewers int) error
}

// Hub tracks how many websocket watchers are connected per session. Counts
// are mirrored into Redis (so other instances can read them) and the stored
// peak on the session row is bumped as the count grows.
type Hub struct {
	// Watcher join/leave requests, keyed by session ID
	join  chan uuid.UUID
	leave chan uuid.UUID

	counts map[uuid.UUID]int

	redis    *cache.RedisClient
	sessions SessionStore

	mu sync.RWMutex
}

// NewHub creates a new viewer hub. redis may be nil; counts then stay local.
func NewHub(redis *cache.RedisClient, sessions SessionStore) *Hub {
	return &Hub{
		join:     make(chan uuid.UUID, 64),
		leave:    make(chan uuid.UUID, 64),
		counts:   make(map[uuid.UUID]int),
		redis:    redis,
		sessions: sessions,
	}
}

// Run processes join/leave events. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sessionID := <-h.join:
			h.mu.Lock()
			h.counts[sessionID]++
			count := h.counts[sessionID]
			h.mu.Unlock()

			if h.redis != nil {
				if _, err := h.redis.IncrViewers(sessionID); err != nil {
					log.Printf("Warning: failed to publish viewer count: %v", err)
				}
			}
			if err := h.sessions.UpdateViewerMetrics(sessionID, count); err != nil {
				log.Printf("Warning: failed to record peak viewers for %s: %v", sessionID, err)
			}

		case sessionID := <-h.leave:
			h.mu.Lock()
			if h.counts[sessionID] > 0 {
				h.counts[sessionID]--
			}
			if h.counts[sessionID] == 0 {
				delete(h.counts, sessionID)
			}
			h.mu.Unlock()

			if h.redis != nil {
				if _, err := h.redis.DecrViewers(sessionID); err != nil {
					log.Printf("Warning: failed to publish viewer count: %v", err)
				}
			}
		}
	}
}

// Join registers one watcher for a session
func (h *Hub) Join(sessionID uuid.UUID) {
	h.join <- sessionID
}

// Leave unregisters one watcher for a session
func (h *Hub) Leave(sessionID uuid.UUID) {
	h.leave <- sessionID
}

// Count returns the number of watchers this instance tracks for a session
func (h *Hub) Count(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.counts[sessionID]
}
