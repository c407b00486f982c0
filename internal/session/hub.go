package session

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType names one of the ten SSE event kinds a reasoning session emits.
type EventType string

const (
	EventStreamStarted       EventType = "stream_started"
	EventStreamProgress      EventType = "stream_progress"
	EventStreamInsight       EventType = "stream_insight"
	EventStreamCompleted     EventType = "stream_completed"
	EventSyncCheckpoint      EventType = "sync_checkpoint"
	EventSynthesisStarted    EventType = "synthesis_started"
	EventSynthesisCompleted  EventType = "synthesis_completed"
	EventSessionCompleted    EventType = "session_completed"
	EventSessionError        EventType = "session_error"
	EventHeartbeat           EventType = "heartbeat"
)

var terminalEvents = map[EventType]bool{
	EventSessionCompleted: true,
	EventSessionError:     true,
}

// Event is the wire shape for every SSE message: {type, timestamp, data}.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

const heartbeatInterval = 15 * time.Second

// client is one connected SSE consumer for a session.
type client struct {
	w     http.ResponseWriter
	flush http.Flusher
	done  chan struct{}
}

// Hub fans out session events to every client subscribed to that session,
// with a per-session heartbeat and clean-up of dead writers.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[string]map[*client]struct{}), logger: logger}
}

// Subscribe registers w as an SSE consumer for sessionId and blocks,
// serving heartbeats and broadcast events, until the request context is
// cancelled or a terminal event is sent to this session.
func (h *Hub) Subscribe(sessionID string, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := &client{w: w, flush: flusher, done: make(chan struct{})}

	h.mu.Lock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	defer h.removeClient(sessionID, c)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			if err := writeEvent(c, Event{Type: EventHeartbeat, Timestamp: time.Now(), Data: map[string]any{"sessionId": sessionID}}); err != nil {
				return
			}
		}
	}
}

// Broadcast delivers an event to every client currently subscribed to
// sessionId. Dead writes remove the offending client. A terminal event
// (session_completed/session_error) signals every client's serving
// goroutine to close after delivery.
func (h *Hub) Broadcast(sessionID string, event Event) {
	h.mu.Lock()
	set := h.clients[sessionID]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := writeEvent(c, event); err != nil {
			h.removeClient(sessionID, c)
			continue
		}
		if terminalEvents[event.Type] {
			close(c.done)
		}
	}
}

func (h *Hub) removeClient(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[sessionID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, sessionID)
	}
}

func writeEvent(c *client, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(c.w, "data: "+string(payload)+"\n\n"); err != nil {
		return err
	}
	c.flush.Flush()
	return nil
}
