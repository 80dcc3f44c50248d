// Package history persists ambience plans and per-session chat
// transcripts. The memory store is the default backend; the PostgreSQL
// store is selected by configuration for deployments that need plans to
// survive restarts.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// DefaultLimit applies when a caller passes a non-positive list limit.
const DefaultLimit = 20

// PlanRecord is one persisted ambience plan.
type PlanRecord struct {
	ID        int64                 `json:"id"`
	SessionID string                `json:"sessionId"`
	Plan      ambience.AmbiencePlan `json:"plan"`
	CreatedAt time.Time             `json:"createdAt"`
}

// ChatMessage is one turn of a session's master-dialog transcript.
type ChatMessage struct {
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the persistence contract consumed by the orchestration and
// API layers.
type Store interface {
	SavePlan(ctx context.Context, sessionID string, plan ambience.AmbiencePlan) error
	ListPlans(ctx context.Context, sessionID string, limit int) ([]PlanRecord, error)
	AppendMessage(ctx context.Context, sessionID, role, content string) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
}

// MemoryStore keeps history in process memory, bounded per session.
// Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	maxPerSess int
	nextID     int64
	plans      map[string][]PlanRecord
	messages   map[string][]ChatMessage
}

// NewMemoryStore creates a memory store keeping at most maxPerSess
// records of each kind per session (<=0 selects 100).
func NewMemoryStore(maxPerSess int) *MemoryStore {
	if maxPerSess <= 0 {
		maxPerSess = 100
	}
	return &MemoryStore{
		maxPerSess: maxPerSess,
		plans:      make(map[string][]PlanRecord),
		messages:   make(map[string][]ChatMessage),
	}
}

// SavePlan implements Store.
func (s *MemoryStore) SavePlan(_ context.Context, sessionID string, plan ambience.AmbiencePlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	records := append(s.plans[sessionID], PlanRecord{
		ID:        s.nextID,
		SessionID: sessionID,
		Plan:      plan,
		CreatedAt: time.Now(),
	})
	if len(records) > s.maxPerSess {
		records = records[len(records)-s.maxPerSess:]
	}
	s.plans[sessionID] = records
	return nil
}

// ListPlans implements Store, newest first.
func (s *MemoryStore) ListPlans(_ context.Context, sessionID string, limit int) ([]PlanRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.plans[sessionID]
	out := make([]PlanRecord, 0, min(limit, len(records)))
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out, nil
}

// AppendMessage implements Store.
func (s *MemoryStore) AppendMessage(_ context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := append(s.messages[sessionID], ChatMessage{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	if len(msgs) > s.maxPerSess {
		msgs = msgs[len(msgs)-s.maxPerSess:]
	}
	s.messages[sessionID] = msgs
	return nil
}

// ListMessages implements Store, oldest first (transcript order).
func (s *MemoryStore) ListMessages(_ context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[sessionID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
