package orchestration

import (
	"sync"
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// Message is a terminal task outcome delivered through a session
// mailbox. The set is sealed: Success, Failed and Cancelled are the
// only variants, so consumers can type-switch exhaustively.
type Message interface {
	mailboxMessage()
}

// Success reports a completed run and carries its plan.
type Success struct {
	TaskID string                `json:"taskId"`
	Plan   ambience.AmbiencePlan `json:"plan"`
	At     time.Time             `json:"at"`
}

// Failed reports a run aborted by a model or transport error.
type Failed struct {
	TaskID string    `json:"taskId"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Cancelled reports a run stopped by supersession or explicit cancel.
type Cancelled struct {
	TaskID string    `json:"taskId"`
	At     time.Time `json:"at"`
}

func (Success) mailboxMessage()   {}
func (Failed) mailboxMessage()    {}
func (Cancelled) mailboxMessage() {}

// Mailboxes holds per-session FIFO queues of terminal messages.
// Enqueue and Drain are individually atomic; a drain concurrent with an
// enqueue may or may not observe the new message.
type Mailboxes struct {
	mu        sync.Mutex
	bySession map[string][]Message
}

// NewMailboxes creates an empty registry.
func NewMailboxes() *Mailboxes {
	return &Mailboxes{bySession: make(map[string][]Message)}
}

// Enqueue appends a message to the session's queue.
func (m *Mailboxes) Enqueue(sessionID string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bySession[sessionID] = append(m.bySession[sessionID], msg)
}

// Drain atomically removes and returns all queued messages in enqueue
// order. An unknown session yields an empty slice.
func (m *Mailboxes) Drain(sessionID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.bySession[sessionID]
	if len(msgs) == 0 {
		return []Message{}
	}
	delete(m.bySession, sessionID)
	return msgs
}
