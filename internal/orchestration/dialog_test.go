package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/safety"
)

// scriptedSession replays one canned event sequence per Send call.
type scriptedSession struct {
	mu      sync.Mutex
	turns   [][]llm.Event
	prompts []string
	sendErr error
}

func (s *scriptedSession) Send(ctx context.Context, sessionID, prompt string) (<-chan llm.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.prompts = append(s.prompts, prompt)

	var turn []llm.Event
	if len(s.turns) > 0 {
		turn = s.turns[0]
		s.turns = s.turns[1:]
	} else {
		turn = []llm.Event{{Type: llm.EventDone, Text: "nothing left to do"}}
	}

	ch := make(chan llm.Event, len(turn)+1)
	for _, ev := range turn {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func (s *scriptedSession) Reset(string) {}

func (s *scriptedSession) Close() error { return nil }

func (s *scriptedSession) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func toolCallEvents(name, args, result string) []llm.Event {
	return []llm.Event{
		{Type: llm.EventToolCallRequested, ToolName: name, ToolArgs: json.RawMessage(args)},
		{Type: llm.EventToolCallResult, ToolName: name, ToolArgs: json.RawMessage(args), ToolResult: json.RawMessage(result)},
	}
}

func envWithSpeed(t *testing.T, speed float64) ambience.Environment {
	t.Helper()
	env, err := ambience.NewEnvironment(ambience.Environment{
		GpsTag:         ambience.GpsUrban,
		Weather:        ambience.WeatherSunny,
		Speed:          speed,
		UserMood:       ambience.MoodCalm,
		TimeOfDay:      ambience.TimeAfternoon,
		PassengerCount: 1,
		RouteType:      ambience.RouteUrban,
	})
	if err != nil {
		t.Fatalf("NewEnvironment: %v", err)
	}
	return env
}

func newTestDialog(session llm.Session, maxDepth int) *DialogService {
	return NewDialogService(session, safety.NewPolicy(log.NewNop()), NewEnvRegistry(), maxDepth, log.NewNop())
}

// collector records every callback for assertions.
type collector struct {
	modes     []ambience.SafetyMode
	deltas    []string
	starts    []string
	completes []string
	warnings  []string
	plan      *ambience.AmbiencePlan
	err       error
}

func (c *collector) callbacks() Callbacks {
	return Callbacks{
		OnSafetyMode:   func(m ambience.SafetyMode) { c.modes = append(c.modes, m) },
		OnTextDelta:    func(s string) { c.deltas = append(c.deltas, s) },
		OnToolStart:    func(name string, _ json.RawMessage) { c.starts = append(c.starts, name) },
		OnToolComplete: func(name string, _ json.RawMessage) { c.completes = append(c.completes, name) },
		OnWarning:      func(msg string) { c.warnings = append(c.warnings, msg) },
		OnComplete:     func(p ambience.AmbiencePlan) { c.plan = &p },
		OnError:        func(err error) { c.err = err },
	}
}

func TestRunSilentShortCircuit(t *testing.T) {
	session := &scriptedSession{}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 120), c.callbacks())

	if session.callCount() != 0 {
		t.Errorf("silent mode made %d model calls, want 0", session.callCount())
	}
	if c.plan == nil {
		t.Fatal("no completion emitted")
	}
	if !c.plan.IsSilent() || c.plan.SafetyMode != ambience.ModeSilent {
		t.Errorf("plan = %+v, want canonical silent plan", c.plan)
	}
	if c.err != nil {
		t.Errorf("unexpected error: %v", c.err)
	}
	if len(c.modes) != 1 || c.modes[0] != ambience.ModeSilent {
		t.Errorf("modes = %v", c.modes)
	}
}

func TestRunToolCallWithFinalTextSameTurn(t *testing.T) {
	light := `{"color":{"hex":"#FFAA00"},"brightness":70,"mode":"STATIC","transitionDuration":1000}`
	turn := append(toolCallEvents("setLight", `{"color":"#FFAA00"}`, light),
		llm.Event{Type: llm.EventDone, Text: "Done"})
	session := &scriptedSession{turns: [][]llm.Event{turn}}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 45), c.callbacks())

	// A tool call plus non-blank final text ends the run in one turn.
	if session.callCount() != 1 {
		t.Errorf("model calls = %d, want 1", session.callCount())
	}
	if c.plan == nil {
		t.Fatal("no completion emitted")
	}
	if c.plan.Light == nil {
		t.Error("light slot not aggregated")
	}
	if c.plan.SafetyMode != ambience.ModeNormal {
		t.Errorf("SafetyMode = %v, want normal", c.plan.SafetyMode)
	}
	if c.plan.Reasoning != "Done" {
		t.Errorf("reasoning = %q, want Done", c.plan.Reasoning)
	}
}

func TestRunRecursesAfterPureToolTurn(t *testing.T) {
	light := `{"color":{"hex":"#112233"},"brightness":50,"mode":"STATIC","transitionDuration":1000}`
	scent := `{"type":"LAVENDER","intensity":4,"duration":30}`
	turn0 := append(toolCallEvents("setLight", `{}`, light), toolCallEvents("setScent", `{}`, scent)...)
	turn0 = append(turn0, llm.Event{Type: llm.EventDone, Text: ""})
	turn1 := []llm.Event{{Type: llm.EventDone, Text: "All set"}}

	session := &scriptedSession{turns: [][]llm.Event{turn0, turn1}}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 45), c.callbacks())

	if session.callCount() != 2 {
		t.Fatalf("model calls = %d, want 2", session.callCount())
	}
	if c.plan == nil {
		t.Fatal("no completion emitted")
	}
	if c.plan.Light == nil || c.plan.Scent == nil {
		t.Error("aggregated slots missing after recursion")
	}
	if c.plan.Reasoning != "All set" {
		t.Errorf("reasoning = %q, want All set", c.plan.Reasoning)
	}
	// The second prompt is the conclude instruction, not the environment.
	session.mu.Lock()
	second := session.prompts[1]
	session.mu.Unlock()
	if !strings.Contains(second, "Conclude") {
		t.Errorf("continuation prompt = %q", second)
	}
}

func TestRunDepthBound(t *testing.T) {
	scent := `{"type":"OCEAN","intensity":3,"duration":30}`
	endless := append(toolCallEvents("setScent", `{}`, scent), llm.Event{Type: llm.EventDone, Text: ""})
	session := &scriptedSession{turns: [][]llm.Event{endless, endless, endless, endless, endless, endless, endless}}
	d := newTestDialog(session, 5)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 45), c.callbacks())

	if session.callCount() != 5 {
		t.Errorf("model calls = %d, want 5 (depth bound)", session.callCount())
	}
	if len(c.warnings) != 1 {
		t.Errorf("warnings = %v, want exactly one", c.warnings)
	}
	if c.plan == nil {
		t.Fatal("depth bound must degrade to best-effort completion, got none")
	}
	if c.err != nil {
		t.Errorf("depth bound reported as error: %v", c.err)
	}
	if c.plan.Scent == nil {
		t.Error("partial aggregation lost at depth bound")
	}
}

func TestRunFocusModeFiltersPlan(t *testing.T) {
	light := `{"color":{"hex":"#00FF88"},"brightness":60,"mode":"PULSE","transitionDuration":500}`
	massage := `{"mode":"SPORT","intensity":5}`
	turn := append(toolCallEvents("setLight", `{}`, light), toolCallEvents("setMassage", `{}`, massage)...)
	turn = append(turn, llm.Event{Type: llm.EventDone, Text: "Energetic but safe."})
	session := &scriptedSession{turns: [][]llm.Event{turn}}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 75), c.callbacks())

	if c.plan == nil {
		t.Fatal("no completion emitted")
	}
	if c.plan.SafetyMode != ambience.ModeFocus {
		t.Errorf("SafetyMode = %v, want focus", c.plan.SafetyMode)
	}
	if c.plan.Light.Mode != ambience.LightStatic {
		t.Errorf("light mode = %v, want STATIC in focus mode", c.plan.Light.Mode)
	}
	if c.plan.Massage.Mode != ambience.MassageComfort || c.plan.Massage.Intensity > ambience.MaxHighSpeedIntensity {
		t.Errorf("massage = %+v not clamped for focus mode", c.plan.Massage)
	}
}

func TestRunMalformedToolResultIsSkipped(t *testing.T) {
	turn := append(toolCallEvents("setLight", `{}`, `{broken json`),
		llm.Event{Type: llm.EventDone, Text: "Done anyway"})
	session := &scriptedSession{turns: [][]llm.Event{turn}}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 45), c.callbacks())

	if c.err != nil {
		t.Fatalf("malformed tool result aborted the run: %v", c.err)
	}
	if c.plan == nil {
		t.Fatal("no completion emitted")
	}
	if c.plan.Light != nil {
		t.Error("malformed payload still populated the light slot")
	}
	if c.plan.Reasoning != "Done anyway" {
		t.Errorf("reasoning = %q", c.plan.Reasoning)
	}
}

func TestRunModelErrorAborts(t *testing.T) {
	modelErr := errors.New("stream reset")
	session := &scriptedSession{turns: [][]llm.Event{{{Type: llm.EventError, Err: modelErr}}}}
	d := newTestDialog(session, 0)
	var c collector

	d.Run(context.Background(), "s1", envWithSpeed(t, 45), c.callbacks())

	if !errors.Is(c.err, modelErr) {
		t.Errorf("error = %v, want %v", c.err, modelErr)
	}
	if c.plan != nil {
		t.Error("errored run still emitted a completion")
	}
}

func TestRunAsync(t *testing.T) {
	light := `{"color":{"hex":"#FFAA00"},"brightness":70,"mode":"STATIC","transitionDuration":1000}`
	turn := append(toolCallEvents("setLight", `{"color":"#FFAA00"}`, light),
		llm.Event{Type: llm.EventDone, Text: "Done"})
	session := &scriptedSession{turns: [][]llm.Event{turn}}
	d := newTestDialog(session, 0)

	result := <-d.RunAsync(context.Background(), "s1", envWithSpeed(t, 45))

	if result.Err != nil {
		t.Fatalf("RunAsync error: %v", result.Err)
	}
	if result.Plan.Light == nil {
		t.Error("plan missing light slot")
	}
	if len(result.ToolCalls) != 1 || result.ToolCalls[0].Name != "setLight" {
		t.Errorf("tool calls = %+v", result.ToolCalls)
	}
	if result.ToolCalls[0].Result == nil {
		t.Error("tool execution missing result")
	}
}

func TestRunRegistersEnvironment(t *testing.T) {
	session := &scriptedSession{turns: [][]llm.Event{{{Type: llm.EventDone, Text: "ok"}}}}
	envs := NewEnvRegistry()
	d := NewDialogService(session, safety.NewPolicy(log.NewNop()), envs, 0, log.NewNop())

	env := envWithSpeed(t, 45)
	d.Run(context.Background(), "s1", env, Callbacks{})

	got, ok := envs.Environment("s1")
	if !ok {
		t.Fatal("environment not registered for tools")
	}
	if got.Speed != env.Speed {
		t.Errorf("registered speed = %v, want %v", got.Speed, env.Speed)
	}
}
