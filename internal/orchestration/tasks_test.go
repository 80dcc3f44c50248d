package orchestration

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/vibedrive/vibedrive/internal/events"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/safety"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedSession blocks each Send until release is closed, so tests can
// hold a run in flight deterministically.
type gatedSession struct {
	release chan struct{}
	mu      sync.Mutex
	sends   int
}

func newGatedSession() *gatedSession {
	return &gatedSession{release: make(chan struct{})}
}

func (g *gatedSession) Send(ctx context.Context, sessionID, prompt string) (<-chan llm.Event, error) {
	g.mu.Lock()
	g.sends++
	g.mu.Unlock()

	ch := make(chan llm.Event, 2)
	go func() {
		defer close(ch)
		select {
		case <-ctx.Done():
			ch <- llm.Event{Type: llm.EventError, Err: ctx.Err()}
		case <-g.release:
			ch <- llm.Event{Type: llm.EventDone, Text: "finished"}
		}
	}()
	return ch, nil
}

func (g *gatedSession) Reset(string) {}

func (g *gatedSession) Close() error { return nil }

func newTestManager(session llm.Session) *TaskManager {
	dialog := NewDialogService(session, safety.NewPolicy(log.NewNop()), NewEnvRegistry(), 0, log.NewNop())
	return NewTaskManager(dialog, events.NewBus(log.NewNop()), NewMailboxes(), nil, log.NewNop())
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestStartTaskCompletesIntoMailbox(t *testing.T) {
	session := newGatedSession()
	m := newTestManager(session)

	taskID := m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	if taskID == "" {
		t.Fatal("empty task ID")
	}
	if !m.IsRunning("s1") {
		t.Error("IsRunning = false for fresh task")
	}

	close(session.release)
	waitFor(t, func() bool { return !m.IsRunning("s1") })

	msgs := m.PollMailbox("s1")
	if len(msgs) != 1 {
		t.Fatalf("mailbox has %d messages, want 1", len(msgs))
	}
	success, ok := msgs[0].(Success)
	if !ok {
		t.Fatalf("message = %T, want Success", msgs[0])
	}
	if success.TaskID != taskID {
		t.Errorf("TaskID = %s, want %s", success.TaskID, taskID)
	}
	if success.Plan.Reasoning != "finished" {
		t.Errorf("plan reasoning = %q", success.Plan.Reasoning)
	}
}

func TestMailboxDrainsExactlyOnce(t *testing.T) {
	session := newGatedSession()
	m := newTestManager(session)

	m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	close(session.release)
	waitFor(t, func() bool { return !m.IsRunning("s1") })

	if got := m.PollMailbox("s1"); len(got) != 1 {
		t.Fatalf("first poll = %d messages, want 1", len(got))
	}
	if got := m.PollMailbox("s1"); len(got) != 0 {
		t.Errorf("second poll = %d messages, want 0", len(got))
	}
}

func TestSingleFlightSupersession(t *testing.T) {
	session := newGatedSession()
	m := newTestManager(session)

	first := m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	second := m.StartTask(context.Background(), "s1", envWithSpeed(t, 50))
	if first == second {
		t.Fatal("supersession reused the task ID")
	}

	close(session.release)
	waitFor(t, func() bool { return !m.IsRunning("s1") })

	// Give the superseded worker time to run its (suppressed) terminal
	// callback before asserting.
	time.Sleep(50 * time.Millisecond)
	msgs := m.PollMailbox("s1")

	var cancelled, success, failed int
	for _, msg := range msgs {
		switch v := msg.(type) {
		case Cancelled:
			cancelled++
			if v.TaskID != first {
				t.Errorf("Cancelled for task %s, want %s", v.TaskID, first)
			}
		case Success:
			success++
			if v.TaskID != second {
				t.Errorf("Success for task %s, want %s", v.TaskID, second)
			}
		case Failed:
			failed++
		}
	}
	if cancelled != 1 || success != 1 || failed != 0 {
		t.Errorf("mailbox = %d cancelled, %d success, %d failed; want 1/1/0", cancelled, success, failed)
	}
}

func TestCancelTask(t *testing.T) {
	session := newGatedSession()
	m := newTestManager(session)

	if m.CancelTask("nobody") {
		t.Error("CancelTask on idle session reported true")
	}

	taskID := m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	if !m.CancelTask("s1") {
		t.Fatal("CancelTask on running session reported false")
	}
	if m.IsRunning("s1") {
		t.Error("IsRunning = true after cancel")
	}

	// The cancelled worker unwinds with a context error; its terminal
	// callback must be suppressed, leaving only the Cancelled message.
	time.Sleep(50 * time.Millisecond)
	msgs := m.PollMailbox("s1")
	if len(msgs) != 1 {
		t.Fatalf("mailbox = %d messages, want 1", len(msgs))
	}
	c, ok := msgs[0].(Cancelled)
	if !ok {
		t.Fatalf("message = %T, want Cancelled", msgs[0])
	}
	if c.TaskID != taskID {
		t.Errorf("Cancelled.TaskID = %s, want %s", c.TaskID, taskID)
	}
}

func TestTaskEventsReachBus(t *testing.T) {
	session := newGatedSession()
	dialog := NewDialogService(session, safety.NewPolicy(log.NewNop()), NewEnvRegistry(), 0, log.NewNop())
	bus := events.NewBus(log.NewNop())
	m := NewTaskManager(dialog, bus, NewMailboxes(), nil, log.NewNop())

	sink := &recordingBusSink{}
	bus.Subscribe("s1", sink)

	m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	close(session.release)
	waitFor(t, func() bool { return !m.IsRunning("s1") })
	waitFor(t, func() bool { return sink.has(events.TypeComplete) })

	if !sink.has(events.TypeSafetyMode) {
		t.Error("safety mode event not published")
	}
}

func TestCurrentTaskID(t *testing.T) {
	session := newGatedSession()
	m := newTestManager(session)

	if _, ok := m.CurrentTaskID("s1"); ok {
		t.Error("CurrentTaskID reported a task on idle session")
	}
	taskID := m.StartTask(context.Background(), "s1", envWithSpeed(t, 45))
	got, ok := m.CurrentTaskID("s1")
	if !ok || got != taskID {
		t.Errorf("CurrentTaskID = %q/%v, want %q/true", got, ok, taskID)
	}

	close(session.release)
	waitFor(t, func() bool { return !m.IsRunning("s1") })
}

// recordingBusSink is a minimal events.Sink for supervisor tests.
type recordingBusSink struct {
	mu    sync.Mutex
	types []string
}

func (s *recordingBusSink) Send(eventType string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, eventType)
	return nil
}

func (s *recordingBusSink) Close() error { return nil }

func (s *recordingBusSink) has(eventType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.types {
		if t == eventType {
			return true
		}
	}
	return false
}
