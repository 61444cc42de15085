package viewers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/artport/backend/internal/models"
	"github.com/artport/backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

// SessionReader loads sessions for watch requests.
type SessionReader interface {
	GetByID(id uuid.UUID) (*models.StreamSession, error)
}

// Handler upgrades watch requests to websockets and keeps the hub's counts
// in step with connection lifetimes.
type Handler struct {
	hub            *Hub
	sessions       SessionReader
	allowedOrigins []string
}

func NewHandler(hub *Hub, sessions SessionReader, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		sessions:       sessions,
		allowedOrigins: allowedOrigins,
	}
}

func (h *Handler) upgrader() websocket.Upgrader {
	allowed := make(map[string]bool, len(h.allowedOrigins))
	allowAll := false
	for _, o := range h.allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowAll {
				return true
			}
			return allowed[r.Header.Get("Origin")]
		},
	}
}

// HandleWatch upgrades the request and counts the watcher for as long as
// the connection stays open. Watching requires no authentication: fans
// browse anonymously.
func (h *Handler) HandleWatch(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stream id"})
		return
	}

	session, err := h.sessions.GetByID(sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Stream not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if session.Status != models.StatusLive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stream is not live"})
		return
	}

	up := h.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade watch connection: %v", err)
		return
	}

	h.hub.Join(sessionID)
	defer func() {
		h.hub.Leave(sessionID)
		conn.Close()
	}()

	done := make(chan struct{})
	go h.pingLoop(conn, done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
}

func (h *Handler) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
