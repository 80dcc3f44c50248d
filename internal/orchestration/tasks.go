package orchestration

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/events"
	"github.com/vibedrive/vibedrive/internal/history"
	"github.com/vibedrive/vibedrive/internal/log"
)

// task is one supervised run. Identity (the task ID, not the session
// ID) decides whether a late terminal callback is honored.
type task struct {
	id        string
	sessionID string
	cancel    context.CancelFunc
	startedAt time.Time
	done      chan struct{}
}

// TaskManager enforces single-flight orchestration per session:
// starting a run for a session that already has one cancels and
// supersedes the old run, it never queues. Terminal outcomes go to the
// session mailbox exactly once per task; progress is republished on the
// event bus tagged with the task ID.
type TaskManager struct {
	dialog    *DialogService
	bus       *events.Bus
	mailboxes *Mailboxes
	store     history.Store // nil disables plan persistence
	logger    log.Logger

	tasks sync.Map // sessionID -> *task
}

// NewTaskManager wires a supervisor around a dialog service. store may
// be nil; completed plans are then not persisted.
func NewTaskManager(dialog *DialogService, bus *events.Bus, mailboxes *Mailboxes, store history.Store, logger log.Logger) *TaskManager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &TaskManager{
		dialog:    dialog,
		bus:       bus,
		mailboxes: mailboxes,
		store:     store,
		logger:    logger,
	}
}

// StartTask launches a run for the session and returns its task ID
// immediately. ctx should be a process-scoped context, not a request
// context: the run outlives the HTTP request that started it.
func (m *TaskManager) StartTask(ctx context.Context, sessionID string, env ambience.Environment) string {
	// Supersession bookkeeping is synchronous even though the old
	// worker may still be unwinding; its terminal callback will find
	// itself no longer current and stay quiet.
	if old, loaded := m.tasks.LoadAndDelete(sessionID); loaded {
		prev := old.(*task)
		prev.cancel()
		m.logger.Info("superseding task",
			"session_id", sessionID, "old_task_id", prev.id)
		m.publishCancelled(sessionID, prev.id)
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &task{
		id:        uuid.NewString(),
		sessionID: sessionID,
		cancel:    cancel,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	m.tasks.Store(sessionID, t)
	m.logger.Info("task started", "session_id", sessionID, "task_id", t.id)

	go m.work(runCtx, t, env)
	return t.id
}

// work drives the dialog run, republishing every event and performing
// the terminal transition.
func (m *TaskManager) work(ctx context.Context, t *task, env ambience.Environment) {
	defer close(t.done)
	defer t.cancel()

	m.dialog.Run(ctx, t.sessionID, env, Callbacks{
		OnSafetyMode: func(mode ambience.SafetyMode) {
			m.bus.Publish(t.sessionID, events.TypeSafetyMode, events.SafetyModePayload{
				TaskID: t.id, Mode: mode.String(), Speed: env.Speed,
			})
		},
		OnTextDelta: func(text string) {
			m.bus.Publish(t.sessionID, events.TypeTextDelta, events.TextDeltaPayload{
				TaskID: t.id, Text: text,
			})
		},
		OnToolStart: func(name string, args json.RawMessage) {
			m.bus.Publish(t.sessionID, events.TypeToolStart, events.ToolStartPayload{
				TaskID: t.id, ToolName: name, Args: string(args),
			})
		},
		OnToolComplete: func(name string, result json.RawMessage) {
			m.bus.Publish(t.sessionID, events.TypeToolEnd, events.ToolEndPayload{
				TaskID: t.id, ToolName: name, Result: string(result),
			})
		},
		OnToolError: func(name, errText string) {
			m.bus.Publish(t.sessionID, events.TypeToolError, events.ToolErrorPayload{
				TaskID: t.id, ToolName: name, Error: errText,
			})
		},
		OnWarning: func(msg string) {
			m.bus.Publish(t.sessionID, events.TypeWarning, events.WarningPayload{
				TaskID: t.id, Message: msg,
			})
		},
		OnComplete: func(plan ambience.AmbiencePlan) {
			if !m.stillCurrent(t) {
				m.logger.Debug("dropping completion of superseded task",
					"session_id", t.sessionID, "task_id", t.id)
				return
			}
			m.bus.Publish(t.sessionID, events.TypeComplete, events.CompletePayload{
				TaskID: t.id, Plan: plan,
			})
			m.mailboxes.Enqueue(t.sessionID, Success{TaskID: t.id, Plan: plan, At: time.Now()})
			if m.store != nil {
				if err := m.store.SavePlan(ctx, t.sessionID, plan); err != nil {
					m.logger.Warn("persisting plan",
						"session_id", t.sessionID, "task_id", t.id, "error", err)
				}
			}
			m.logger.Info("task completed", "session_id", t.sessionID, "task_id", t.id)
		},
		OnError: func(err error) {
			if !m.stillCurrent(t) {
				m.logger.Debug("dropping error of superseded task",
					"session_id", t.sessionID, "task_id", t.id, "error", err)
				return
			}
			m.bus.Publish(t.sessionID, events.TypeError, events.ErrorPayload{
				TaskID: t.id, Error: err.Error(),
			})
			m.mailboxes.Enqueue(t.sessionID, Failed{TaskID: t.id, Reason: err.Error(), At: time.Now()})
			m.logger.Warn("task failed", "session_id", t.sessionID, "task_id", t.id, "error", err)
		},
	})
}

// stillCurrent atomically deregisters the task if and only if it is
// still the session's current task. Exactly one of the terminal
// callback and an external cancel wins this race.
func (m *TaskManager) stillCurrent(t *task) bool {
	return m.tasks.CompareAndDelete(t.sessionID, t)
}

// CancelTask cancels the session's current task if any. Safe to call
// with no active task.
func (m *TaskManager) CancelTask(sessionID string) bool {
	v, loaded := m.tasks.LoadAndDelete(sessionID)
	if !loaded {
		return false
	}
	t := v.(*task)
	t.cancel()
	m.logger.Info("task cancelled", "session_id", sessionID, "task_id", t.id)
	m.publishCancelled(sessionID, t.id)
	return true
}

func (m *TaskManager) publishCancelled(sessionID, taskID string) {
	m.bus.Publish(sessionID, events.TypeCancelled, events.CancelledPayload{TaskID: taskID})
	m.mailboxes.Enqueue(sessionID, Cancelled{TaskID: taskID, At: time.Now()})
}

// IsRunning reports whether the session has a current task.
func (m *TaskManager) IsRunning(sessionID string) bool {
	_, ok := m.tasks.Load(sessionID)
	return ok
}

// CurrentTaskID returns the session's current task ID, if any.
func (m *TaskManager) CurrentTaskID(sessionID string) (string, bool) {
	v, ok := m.tasks.Load(sessionID)
	if !ok {
		return "", false
	}
	return v.(*task).id, true
}

// PollMailbox atomically drains the session's terminal messages. A
// session with nothing queued yields an empty slice, never an error.
func (m *TaskManager) PollMailbox(sessionID string) []Message {
	return m.mailboxes.Drain(sessionID)
}
