package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/domain"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
	feedSendBuffer = 8
)

type feedClient struct {
	conn    *websocket.Conn
	send    chan []byte
	eventID uuid.UUID
}

// ProofFeed fans proof status out to display screens subscribed per event.
type ProofFeed struct {
	rotation RotationService
	log      *zap.Logger
	upgrader websocket.Upgrader

	clients      map[uuid.UUID]map[*feedClient]struct{}
	clientsMutex sync.RWMutex
	register     chan *feedClient
	unregister   chan *feedClient
	publish      chan domain.ProofStatus
	rotated      chan struct{}
	done         chan struct{}
}

func NewProofFeed(rotation RotationService, allowedOrigins []string, log *zap.Logger) *ProofFeed {
	return &ProofFeed{
		rotation: rotation,
		log:      log.Named("proof_feed"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		clients:    make(map[uuid.UUID]map[*feedClient]struct{}),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		publish:    make(chan domain.ProofStatus, 16),
		rotated:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == origin {
				return true
			}
		}
		return false
	}
}

// Run owns the subscriber set until ctx is done.
func (f *ProofFeed) Run(ctx context.Context) {
	defer close(f.done)

	for {
		select {
		case <-ctx.Done():
			f.clientsMutex.Lock()
			for _, set := range f.clients {
				for c := range set {
					close(c.send)
				}
			}
			f.clients = make(map[uuid.UUID]map[*feedClient]struct{})
			f.clientsMutex.Unlock()
			return
		case c := <-f.register:
			f.clientsMutex.Lock()
			if f.clients[c.eventID] == nil {
				f.clients[c.eventID] = make(map[*feedClient]struct{})
			}
			f.clients[c.eventID][c] = struct{}{}
			f.clientsMutex.Unlock()
		case c := <-f.unregister:
			f.remove(c)
		case status := <-f.publish:
			f.broadcast(status)
		case <-f.rotated:
			f.refreshAll(ctx)
		}
	}
}

// NotifyRotated is registered as a rotation listener. It never blocks the
// rotation worker; bursts collapse into one refresh.
func (f *ProofFeed) NotifyRotated(time.Time) {
	select {
	case f.rotated <- struct{}{}:
	default:
	}
}

// Publish pushes status to the subscribers of its event.
func (f *ProofFeed) Publish(status domain.ProofStatus) {
	select {
	case f.publish <- status:
	default:
		f.log.Warn("proof feed backlog full, dropping update", zap.Stringer("event_id", status.EventID))
	}
}

func (f *ProofFeed) Subscribers(eventID uuid.UUID) int {
	f.clientsMutex.RLock()
	defer f.clientsMutex.RUnlock()
	return len(f.clients[eventID])
}

func (f *ProofFeed) refreshAll(ctx context.Context) {
	f.clientsMutex.RLock()
	eventIDs := make([]uuid.UUID, 0, len(f.clients))
	for id := range f.clients {
		eventIDs = append(eventIDs, id)
	}
	f.clientsMutex.RUnlock()

	for _, id := range eventIDs {
		status, err := f.rotation.Status(ctx, id)
		if err != nil {
			f.log.Warn("failed to load proof status", zap.Stringer("event_id", id), zap.Error(err))
			continue
		}
		f.broadcast(status)
	}
}

func (f *ProofFeed) broadcast(status domain.ProofStatus) {
	message, err := json.Marshal(response.NewProofStatus(status))
	if err != nil {
		f.log.Error("failed to encode proof status", zap.Error(err))
		return
	}

	f.clientsMutex.Lock()
	defer f.clientsMutex.Unlock()
	for c := range f.clients[status.EventID] {
		select {
		case c.send <- message:
		default:
			// Slow screen; it reconnects and gets a fresh status.
			close(c.send)
			delete(f.clients[status.EventID], c)
		}
	}
}

func (f *ProofFeed) remove(c *feedClient) {
	f.clientsMutex.Lock()
	defer f.clientsMutex.Unlock()
	set := f.clients[c.eventID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(f.clients, c.eventID)
	}
}

// Serve upgrades the request and streams status updates for eventID,
// starting with initial.
func (f *ProofFeed) Serve(ctx *gin.Context, eventID uuid.UUID, initial domain.ProofStatus) {
	conn, err := f.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		f.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	first, err := json.Marshal(response.NewProofStatus(initial))
	if err != nil {
		f.log.Error("failed to encode proof status", zap.Error(err))
		conn.Close()
		return
	}

	c := &feedClient{
		conn:    conn,
		send:    make(chan []byte, feedSendBuffer),
		eventID: eventID,
	}
	c.send <- first
	select {
	case f.register <- c:
	case <-f.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(f)
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; screens never send data.
func (c *feedClient) readPump(f *ProofFeed) {
	defer func() {
		select {
		case f.unregister <- c:
		case <-f.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				f.log.Debug("proof feed closed", zap.Error(err))
			}
			return
		}
	}
}
