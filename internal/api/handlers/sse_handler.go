package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/zatekoja/tutorscheduler/backend/internal/domain/providers"
	"github.com/zatekoja/tutorscheduler/backend/internal/infrastructure/observability"
)

// DefaultHeartbeatInterval is how often an idle stream sends a heartbeat
const DefaultHeartbeatInterval = 30 * time.Second

// SSEHandler streams tutor change events as Server-Sent Events so open tutor
// pages and search results know when to refetch
type SSEHandler struct {
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   map[string]int // channel -> open streams
	mu        sync.RWMutex
	done      chan struct{}
	closeOnce sync.Once
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(eventBus providers.EventBus, heartbeat time.Duration) *SSEHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeatInterval
	}
	return &SSEHandler{
		eventBus:  eventBus,
		heartbeat: heartbeat,
		clients:   make(map[string]int),
		done:      make(chan struct{}),
	}
}

// Close ends every open stream. Register it with http.Server.RegisterOnShutdown.
func (h *SSEHandler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// StreamTutorUpdates streams events for one tutor
// GET /api/tutors/{id}/events
func (h *SSEHandler) StreamTutorUpdates(w http.ResponseWriter, r *http.Request) {
	tutorID := r.PathValue("id")
	if tutorID == "" {
		respondWithError(w, http.StatusBadRequest, "tutor id is required")
		return
	}
	h.stream(w, r, providers.GetTutorChannel(tutorID), map[string]interface{}{"tutorId": tutorID})
}

// StreamAllUpdates streams events for every tutor
// GET /api/tutors/events
func (h *SSEHandler) StreamAllUpdates(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, providers.EventChannelTutorUpdates, map[string]interface{}{})
}

func (h *SSEHandler) stream(w http.ResponseWriter, r *http.Request, channel string, hello map[string]interface{}) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logger.Warn().Err(err).Msg("Failed to clear write deadline")
	}

	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		logger.Error().Err(err).Str("channel", channel).Msg("Failed to subscribe to channel")
		respondWithError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	h.register(channel)
	defer h.unregister(channel)

	hello["timestamp"] = time.Now().UTC()
	h.sendEvent(w, "connected", hello)
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Msg("Streaming not supported")
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Str("channel", channel).Msg("Client disconnected from tutor stream")
			return
		case <-h.done:
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{"timestamp": time.Now().UTC()})
		case event, ok := <-events:
			if !ok {
				return
			}
			h.sendEvent(w, string(event.EventType), event)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *SSEHandler) register(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[channel]++
}

func (h *SSEHandler) unregister(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel]--; h.clients[channel] <= 0 {
		delete(h.clients, channel)
	}
}

// sendEvent writes one SSE frame
func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("Failed to marshal event data")
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

// ClientCount returns the number of open streams
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, n := range h.clients {
		count += n
	}
	return count
}
