package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/history"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/security"
)

// masterPrefix keeps the master dialog's model history separate from
// the ambience agent's history for the same vehicle session.
const masterPrefix = "master:"

// MasterSystemPrompt frames the conversational assistant that fronts
// the ambience agent.
const MasterSystemPrompt = `You are the in-cabin voice assistant. You chat with the driver and
delegate ambience work to a background agent through your tools:
start an ambience run when the driver asks for a mood change, cancel it
when they change their mind, and report run status when asked.
Background runs finish asynchronously; completed results are injected
into your context before each of your turns. Keep replies short and
conversational.`

// MasterService is the conversational front end: it chats with the
// driver, injects finished background-run outcomes into the dialog,
// and persists the transcript.
type MasterService struct {
	session   llm.Session
	tasks     *TaskManager
	store     history.Store
	validator *security.PromptValidator
	logger    log.Logger
}

// NewMasterService wires the master dialog.
func NewMasterService(session llm.Session, tasks *TaskManager, store history.Store, logger log.Logger) *MasterService {
	if logger == nil {
		logger = log.NewNop()
	}
	return &MasterService{
		session:   session,
		tasks:     tasks,
		store:     store,
		validator: security.NewPromptValidator(),
		logger:    logger,
	}
}

// Chat runs one master-dialog turn. Terminal outcomes queued in the
// session's mailbox since the last turn are drained and prepended to
// the prompt so the model can report them to the driver.
func (s *MasterService) Chat(ctx context.Context, sessionID, userText string) (string, error) {
	return s.ChatStream(ctx, sessionID, userText, nil)
}

// ChatStream is Chat with live text deltas: onDelta (optional) is
// invoked for each partial text chunk before the full reply returns.
func (s *MasterService) ChatStream(ctx context.Context, sessionID, userText string, onDelta func(text string)) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("chat message is empty")
	}
	if err := s.validator.CheckMessage(userText); err != nil {
		s.logger.Warn("rejecting driver message", "session_id", sessionID, "error", err)
		return "", fmt.Errorf("rejecting message: %w", err)
	}

	prompt := s.enhancePrompt(sessionID, userText)
	events, err := s.session.Send(ctx, masterPrefix+sessionID, prompt)
	if err != nil {
		return "", fmt.Errorf("opening master turn: %w", err)
	}

	var reply string
	for ev := range events {
		switch ev.Type {
		case llm.EventTextDelta:
			if onDelta != nil {
				onDelta(ev.Text)
			}
		case llm.EventDone:
			reply = ev.Text
		case llm.EventError:
			return "", fmt.Errorf("master turn failed: %w", ev.Err)
		}
	}

	if err := s.store.AppendMessage(ctx, sessionID, "user", userText); err != nil {
		s.logger.Warn("persisting user message", "session_id", sessionID, "error", err)
	}
	if err := s.store.AppendMessage(ctx, sessionID, "assistant", reply); err != nil {
		s.logger.Warn("persisting assistant message", "session_id", sessionID, "error", err)
	}
	return reply, nil
}

// enhancePrompt prepends drained mailbox outcomes to the user's text.
func (s *MasterService) enhancePrompt(sessionID, userText string) string {
	outcomes := s.tasks.PollMailbox(sessionID)
	if len(outcomes) == 0 {
		return userText
	}

	var b strings.Builder
	b.WriteString("Background ambience runs finished since your last turn:\n")
	for _, msg := range outcomes {
		switch v := msg.(type) {
		case Success:
			fmt.Fprintf(&b, "- run %s succeeded: %s (%d ambience parts set)\n",
				v.TaskID, v.Plan.Reasoning, v.Plan.FilledSlots())
		case Failed:
			fmt.Fprintf(&b, "- run %s failed: %s\n", v.TaskID, v.Reason)
		case Cancelled:
			fmt.Fprintf(&b, "- run %s was cancelled\n", v.TaskID)
		}
	}
	b.WriteString("\nDriver: ")
	b.WriteString(userText)
	s.logger.Debug("injected run outcomes into master prompt",
		"session_id", sessionID, "outcomes", len(outcomes))
	return b.String()
}

// baseSessionID strips the master history prefix so tool handlers
// operate on the vehicle session.
func baseSessionID(sessionID string) string {
	return strings.TrimPrefix(sessionID, masterPrefix)
}

// StartRunInput are the arguments of the startAmbienceRun master tool.
type StartRunInput struct {
	GpsTag         string  `json:"gpsTag" jsonschema:"location class: HIGHWAY, TUNNEL, BRIDGE, URBAN, SUBURBAN, MOUNTAIN, COASTAL, PARKING"`
	Weather        string  `json:"weather" jsonschema:"SUNNY, CLOUDY, RAINY, SNOWY or FOGGY"`
	Speed          float64 `json:"speed" jsonschema:"vehicle speed in km/h, 0-200"`
	UserMood       string  `json:"userMood" jsonschema:"HAPPY, CALM, TIRED, STRESSED or EXCITED"`
	TimeOfDay      string  `json:"timeOfDay" jsonschema:"DAWN, MORNING, NOON, AFTERNOON, EVENING, NIGHT or MIDNIGHT"`
	PassengerCount int     `json:"passengerCount" jsonschema:"number of occupants, 1-7"`
	RouteType      string  `json:"routeType,omitempty" jsonschema:"HIGHWAY, URBAN, MOUNTAIN, COASTAL or TUNNEL"`
}

// CancelRunInput are the arguments of the cancelAmbienceRun master tool.
type CancelRunInput struct{}

// RunStatusInput are the arguments of the getRunStatus master tool.
type RunStatusInput struct{}

// NewMasterTools builds the tool definitions bridging the master dialog
// to the task supervisor. runCtx scopes started tasks to the process,
// not to the model call that requested them.
func NewMasterTools(runCtx context.Context, tasks *TaskManager, logger log.Logger) ([]llm.ToolDefinition, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	startSchema, err := jsonschema.For[StartRunInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for startAmbienceRun: %w", err)
	}
	cancelSchema, err := jsonschema.For[CancelRunInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for cancelAmbienceRun: %w", err)
	}
	statusSchema, err := jsonschema.For[RunStatusInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for getRunStatus: %w", err)
	}

	return []llm.ToolDefinition{
		{
			Name:        "startAmbienceRun",
			Description: "Start a background ambience run for the current driving environment. Supersedes any run already in flight for this session.",
			Schema:      startSchema,
			Handler: func(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
				var in StartRunInput
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, fmt.Errorf("decoding startAmbienceRun args: %w", err)
				}
				env, err := ambience.NewEnvironment(ambience.Environment{
					GpsTag:         ambience.GpsTag(in.GpsTag),
					Weather:        ambience.Weather(in.Weather),
					Speed:          in.Speed,
					UserMood:       ambience.UserMood(in.UserMood),
					TimeOfDay:      ambience.TimeOfDay(in.TimeOfDay),
					PassengerCount: in.PassengerCount,
					RouteType:      ambience.RouteType(in.RouteType),
				})
				if err != nil {
					return nil, fmt.Errorf("startAmbienceRun: %w", err)
				}
				taskID := tasks.StartTask(runCtx, baseSessionID(sessionID), env)
				logger.Info("master started ambience run",
					"session_id", baseSessionID(sessionID), "task_id", taskID)
				return json.Marshal(map[string]string{"taskId": taskID})
			},
		},
		{
			Name:        "cancelAmbienceRun",
			Description: "Cancel the ambience run currently in flight for this session, if any.",
			Schema:      cancelSchema,
			Handler: func(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
				cancelled := tasks.CancelTask(baseSessionID(sessionID))
				return json.Marshal(map[string]bool{"cancelled": cancelled})
			},
		},
		{
			Name:        "getRunStatus",
			Description: "Report whether an ambience run is currently in flight for this session.",
			Schema:      statusSchema,
			Handler: func(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
				base := baseSessionID(sessionID)
				status := map[string]any{"running": tasks.IsRunning(base)}
				if taskID, ok := tasks.CurrentTaskID(base); ok {
					status["taskId"] = taskID
				}
				return json.Marshal(status)
			},
		},
	}, nil
}
