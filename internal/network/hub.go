package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HyprPixl/signalfoundry/internal/engine"
	"github.com/HyprPixl/signalfoundry/internal/events"
	"github.com/HyprPixl/signalfoundry/internal/platform/logger"
	"github.com/HyprPixl/signalfoundry/internal/platform/metrics"
)

// HubOptions tunes buffering and polling. Zero values select defaults.
type HubOptions struct {
	SendBuffer      int
	BroadcastBuffer int
	PollInterval    time.Duration
	Metrics         *metrics.Collector
}

// Hub maintains the set of active clients, routes their commands to the
// engine, and broadcasts economy events to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	dispatcher *Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Collector
	sendBuffer int
	pollEvery  time.Duration
	upgrader   websocket.Upgrader
}

// NewHub initializes a new WebSocket Hub for the engine's session.
func NewHub(eng *engine.Engine, log *logger.Logger, opts HubOptions) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	if opts.BroadcastBuffer <= 0 {
		opts.BroadcastBuffer = 256
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Get()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, opts.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		dispatcher: NewDispatcher(eng, log),
		logger:     log,
		metrics:    opts.Metrics,
		sendBuffer: opts.SendBuffer,
		pollEvery:  opts.PollInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow local browser front-ends on other ports
			},
		},
	}
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
				h.metrics.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			h.logger.Info("websocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("websocket client connected", "remote", client.remote)
		case client := <-h.unregister:
			h.drop(client)
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("client too slow, disconnecting", "remote", client.remote)
					delete(h.clients, client)
					close(client.send)
					h.metrics.RecordWSConnection(-1)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.metrics.RecordWSConnection(-1)
		h.logger.Info("websocket client disconnected", "remote", client.remote)
	}
}

// sendTo queues a reply for one client. The hub's lock guards against
// writing to a channel it has already closed.
func (h *Hub) sendTo(client *Client, message []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// BroadcastEvent serializes an economy event and queues it for every client.
// Events are dropped when the queue is full.
func (h *Hub) BroadcastEvent(event events.GameEvent) {
	payload, err := json.Marshal(Reply{Type: FrameEvent, OK: true, Message: event.Message, Data: event})
	if err != nil {
		h.logger.Error("failed to serialize event for broadcast", "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", string(event.Type))
	}
}

// StartEventPoller spawns a goroutine that forwards new events from the log
// to the Hub, so the engine never blocks on socket writes.
func (h *Hub) StartEventPoller(ctx context.Context, eventLog *events.EventLog) {
	go func() {
		pollInterval := time.NewTicker(h.pollEvery)
		defer pollInterval.Stop()

		cursor := eventLog.LastSeq()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pollInterval.C:
				for _, event := range eventLog.Since(cursor) {
					h.BroadcastEvent(event)
					cursor = event.Seq
				}
			}
		}
	}()
}

// ServeWS upgrades the request and starts the client's pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("failed to upgrade websocket connection", "error", err)
		return
	}

	client := NewClient(h, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
