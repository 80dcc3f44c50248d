// Package events implements the topic-filtered event bus that fans
// orchestration progress out to live subscribers, typically SSE
// connections.
package events

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/vibedrive/vibedrive/internal/log"
)

// Sink receives published events. Implemented by the SSE writer; test
// code supplies fakes. A Send error marks the sink dead: the bus
// unregisters and closes it, other sinks are unaffected.
type Sink interface {
	Send(eventType string, payload []byte) error
	Close() error
}

// subscription pairs a sink with its normalized topic filter. An empty
// filter matches every event type.
type subscription struct {
	sink   Sink
	topics map[string]struct{}
}

func (s *subscription) matches(eventType string) bool {
	if len(s.topics) == 0 {
		return true
	}
	if _, ok := s.topics[eventType]; ok {
		return true
	}
	if topic := TopicOf(eventType); topic != "" {
		if _, ok := s.topics[topic]; ok {
			return true
		}
	}
	return false
}

// Bus is a per-session multicast registry. The zero value is not
// usable; construct with NewBus. All methods are safe for concurrent
// use.
type Bus struct {
	logger log.Logger

	mu       sync.RWMutex
	sessions map[string][]*subscription
}

// NewBus creates an empty bus.
func NewBus(logger log.Logger) *Bus {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Bus{
		logger:   logger,
		sessions: make(map[string][]*subscription),
	}
}

// Subscribe registers a sink for a session. Topics are normalized
// (trimmed, lowercased); an empty topic list means every event type.
// Subscribing the same sink twice replaces its filter.
func (b *Bus) Subscribe(sessionID string, sink Sink, topics ...string) {
	filter := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			filter[t] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.sessions[sessionID]
	for _, sub := range subs {
		if sub.sink == sink {
			sub.topics = filter
			return
		}
	}
	b.sessions[sessionID] = append(subs, &subscription{sink: sink, topics: filter})
	b.logger.Debug("subscriber registered",
		"session_id", sessionID, "topics", topics, "total", len(b.sessions[sessionID]))
}

// Unsubscribe removes a sink from a session. Removing the last sink
// frees the session's registry entry. The sink is not closed; the
// caller owns its lifecycle when leaving voluntarily.
func (b *Bus) Unsubscribe(sessionID string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sessionID, sink)
}

func (b *Bus) removeLocked(sessionID string, sink Sink) {
	subs := b.sessions[sessionID]
	for i, sub := range subs {
		if sub.sink == sink {
			b.sessions[sessionID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.sessions[sessionID]) == 0 {
		delete(b.sessions, sessionID)
	}
}

// Publish delivers an event to every matching subscriber of one
// session. Marshal failures are logged and dropped; a failing sink is
// evicted and closed.
func (b *Bus) Publish(sessionID, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshaling event payload",
			"event_type", eventType, "session_id", sessionID, "error", err)
		return
	}
	b.deliver(sessionID, eventType, data, false)
}

// PublishToAll delivers an event to matching subscribers of every
// session.
func (b *Bus) PublishToAll(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("marshaling event payload", "event_type", eventType, "error", err)
		return
	}
	for _, sessionID := range b.sessionIDs() {
		b.deliver(sessionID, eventType, data, false)
	}
}

// Heartbeat publishes a keep-alive to every subscriber of every
// session, bypassing topic filters. A no-op with no subscribers.
func (b *Bus) Heartbeat() {
	data, err := json.Marshal(HeartbeatPayload{Timestamp: time.Now()})
	if err != nil {
		return
	}
	for _, sessionID := range b.sessionIDs() {
		b.deliver(sessionID, TypeHeartbeat, data, true)
	}
}

// SubscriberCount reports the live subscriptions for a session.
func (b *Bus) SubscriberCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions[sessionID])
}

func (b *Bus) sessionIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	return ids
}

// deliver sends to each matching subscription, collecting failed sinks
// for eviction after the send pass.
func (b *Bus) deliver(sessionID, eventType string, data []byte, bypassFilter bool) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.sessions[sessionID]))
	copy(subs, b.sessions[sessionID])
	b.mu.RUnlock()

	var failed []Sink
	for _, sub := range subs {
		if !bypassFilter && !sub.matches(eventType) {
			continue
		}
		if err := sub.sink.Send(eventType, data); err != nil {
			b.logger.Warn("sink delivery failed, evicting",
				"session_id", sessionID, "event_type", eventType, "error", err)
			failed = append(failed, sub.sink)
		}
	}
	if len(failed) == 0 {
		return
	}

	b.mu.Lock()
	for _, sink := range failed {
		b.removeLocked(sessionID, sink)
	}
	b.mu.Unlock()
	for _, sink := range failed {
		if err := sink.Close(); err != nil {
			b.logger.Debug("closing evicted sink", "session_id", sessionID, "error", err)
		}
	}
}
