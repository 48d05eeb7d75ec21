/**
* Name: 			hub.go
* Description: 		WebSocket change feed for tasks
* Workflow: 		handlers Publish -> hub goroutine -> per-client write pump
 */

package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"VoiceTaskManager_Backend/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	EventCreated = "created"
	EventDeleted = "deleted"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type Event struct {
	Type string       `json:"type"`
	Task *models.Task `json:"task,omitempty"`
	ID   string       `json:"id,omitempty"`
}

func Created(task models.Task) Event {
	return Event{Type: EventCreated, Task: &task, ID: task.ID}
}

func Deleted(id string) Event {
	return Event{Type: EventDeleted, ID: id}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of connected clients. All mutation happens in Run.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}
	connected  atomic.Int64
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	clients := make(map[*client]struct{})
	defer func() {
		for c := range clients {
			close(c.send)
		}
		h.connected.Store(0)
		close(h.done)
		h.logger.Info("Hub.Run(): stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			clients[c] = struct{}{}
			h.connected.Store(int64(len(clients)))

		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.connected.Store(int64(len(clients)))
			}

		case ev := <-h.broadcast:
			msg, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("Hub.Run(): failed to encode event", zap.Error(err))
				continue
			}
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// too slow; drop the client rather than stall the feed
					delete(clients, c)
					close(c.send)
				}
			}
			h.connected.Store(int64(len(clients)))
		}
	}
}

// Publish never blocks the caller; events are dropped when the hub is
// stopped or its queue is full.
func (h *Hub) Publish(ev Event) {
	select {
	case h.broadcast <- ev:
	case <-h.done:
	default:
		h.logger.Warn("Hub.Publish(): event queue full, dropping event",
			zap.String("type", ev.Type), zap.String("id", ev.ID))
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	return int(h.connected.Load())
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Hub.ServeHTTP(): failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.logger.Debug("Hub.ServeHTTP(): subscriber connected", zap.String("remote", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)
}
