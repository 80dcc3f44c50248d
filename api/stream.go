package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/vibedrive/vibedrive/internal/events"
	"github.com/vibedrive/vibedrive/internal/log"
)

// errSinkClosed marks writes attempted after the SSE connection ended.
var errSinkClosed = errors.New("sse sink closed")

// sseSink adapts one SSE response to the event bus Sink contract.
// Bus delivery goroutines and the serving handler touch it
// concurrently, so writes are serialized under the mutex.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher, done: make(chan struct{})}
}

// Send writes one SSE frame. A write error (client gone) closes the
// sink; the bus evicts it on the returned error.
func (s *sseSink) Send(eventType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errSinkClosed
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		s.closeLocked()
		return fmt.Errorf("writing sse frame: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// Close implements events.Sink. Idempotent.
func (s *sseSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *sseSink) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// StreamHandler serves live orchestration events over SSE.
type StreamHandler struct {
	bus    *events.Bus
	logger log.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(bus *events.Bus, logger log.Logger) *StreamHandler {
	return &StreamHandler{bus: bus, logger: logger}
}

// RegisterRoutes registers stream routes on the given mux.
func (h *StreamHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", h.subscribe)
}

// subscribe opens an SSE stream of the session's orchestration events.
//
// Query parameters:
//   - sessionId: required, the session whose events to receive
//   - topics: optional comma-separated topic or event-type filter;
//     empty means everything. Heartbeats arrive regardless.
//
// The response stays open until the client disconnects or the server
// shuts down.
func (h *StreamHandler) subscribe(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		topics = strings.Split(raw, ",")
	}

	sink := newSSESink(w, flusher)
	h.bus.Subscribe(sessionID, sink, topics...)
	h.logger.Info("SSE subscriber connected", "session_id", sessionID, "topics", topics)

	// Block until the client goes away or the bus evicted the sink
	// after a failed write. Either way, leave the registry clean.
	select {
	case <-r.Context().Done():
	case <-sink.done:
	}
	h.bus.Unsubscribe(sessionID, sink)
	_ = sink.Close()
	h.logger.Info("SSE subscriber disconnected", "session_id", sessionID)
}
