package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/safety"
)

// DefaultMaxDepth bounds the turn-loop recursion.
const DefaultMaxDepth = 5

// Callbacks receives run lifecycle notifications. Any field may be nil.
// For one run, callbacks fire in emission order from a single
// goroutine; exactly one of OnComplete or OnError fires, last.
type Callbacks struct {
	OnSafetyMode   func(mode ambience.SafetyMode)
	OnTextDelta    func(text string)
	OnToolStart    func(name string, args json.RawMessage)
	OnToolComplete func(name string, result json.RawMessage)
	OnToolError    func(name, errText string)
	OnWarning      func(msg string)
	OnComplete     func(plan ambience.AmbiencePlan)
	OnError        func(err error)
}

// ToolExecution records one tool call observed during a run.
type ToolExecution struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// RunResult is the resolved outcome of RunAsync.
type RunResult struct {
	Plan      ambience.AmbiencePlan
	Err       error
	Warnings  []string
	ToolCalls []ToolExecution
}

// DialogService drives orchestration runs: per run it derives the
// safety mode, loops turns against the model session, aggregates tool
// results and emits lifecycle callbacks.
type DialogService struct {
	session  llm.Session
	policy   *safety.Policy
	envs     *EnvRegistry
	maxDepth int
	logger   log.Logger
}

// NewDialogService wires a dialog service. maxDepth <= 0 selects
// DefaultMaxDepth.
func NewDialogService(session llm.Session, policy *safety.Policy, envs *EnvRegistry, maxDepth int, logger log.Logger) *DialogService {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &DialogService{
		session:  session,
		policy:   policy,
		envs:     envs,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// Run executes one orchestration run synchronously. In silent safety
// mode it completes with the canonical silent plan without a single
// model call: silent is a pre-filter, not post-processing.
func (d *DialogService) Run(ctx context.Context, sessionID string, env ambience.Environment, cb Callbacks) {
	mode, err := safety.ModeFromSpeed(env.Speed)
	if err != nil {
		// Environments are validated at construction; reaching this
		// means the caller bypassed NewEnvironment.
		d.emitError(cb, err)
		return
	}
	if cb.OnSafetyMode != nil {
		cb.OnSafetyMode(mode)
	}

	if mode == ambience.ModeSilent {
		d.logger.Info("silent mode, suppressing run before model call",
			"session_id", sessionID, "speed", env.Speed)
		if cb.OnComplete != nil {
			cb.OnComplete(ambience.SilentPlan(sessionID))
		}
		return
	}

	d.envs.Register(sessionID, env)
	agg := NewAggregator(sessionID, d.logger)
	d.executeTurn(ctx, sessionID, buildInitialPrompt(env), LoopState{}, agg, mode, cb)
}

// executeTurn runs one turn and decides whether to recurse.
//
// Termination rule: recurse only when the turn made at least one tool
// call AND produced no non-blank final text. A tool-calling model
// typically defers its prose summary to the turn after its last tool
// call; stopping on "no tool calls" alone would truncate plans whose
// last turn is pure tool invocation. The converse quirk (tool call plus
// filler text ends the run early) is intentional and load-bearing for
// compatibility; do not "fix" it.
func (d *DialogService) executeTurn(ctx context.Context, sessionID, prompt string, state LoopState, agg *Aggregator, mode ambience.SafetyMode, cb Callbacks) {
	if state.Depth >= d.maxDepth {
		msg := fmt.Sprintf("turn depth limit %d reached, finalizing with partial results", d.maxDepth)
		d.logger.Warn("turn depth limit reached",
			"session_id", sessionID, "depth", state.Depth, "tool_calls", state.TotalToolCalls)
		if cb.OnWarning != nil {
			cb.OnWarning(msg)
		}
		d.finalize(sessionID, agg, "", mode, cb)
		return
	}

	events, err := d.session.Send(ctx, sessionID, prompt)
	if err != nil {
		d.emitError(cb, fmt.Errorf("opening model turn: %w", err))
		return
	}

	var (
		toolCalls int
		finalText string
	)
	for ev := range events {
		switch ev.Type {
		case llm.EventTextDelta:
			if cb.OnTextDelta != nil {
				cb.OnTextDelta(ev.Text)
			}
		case llm.EventToolCallRequested:
			toolCalls++
			if cb.OnToolStart != nil {
				cb.OnToolStart(ev.ToolName, ev.ToolArgs)
			}
		case llm.EventToolCallResult:
			if ev.ToolErr != "" {
				if cb.OnToolError != nil {
					cb.OnToolError(ev.ToolName, ev.ToolErr)
				}
				continue
			}
			if cb.OnToolComplete != nil {
				cb.OnToolComplete(ev.ToolName, ev.ToolResult)
			}
			agg.Ingest(ev.ToolName, ev.ToolResult)
		case llm.EventDone:
			finalText = ev.Text
		case llm.EventError:
			d.emitError(cb, ev.Err)
			return
		}
	}
	if err := ctx.Err(); err != nil {
		d.emitError(cb, err)
		return
	}

	state = state.AddToolCalls(toolCalls)
	if toolCalls > 0 && strings.TrimSpace(finalText) == "" {
		d.executeTurn(ctx, sessionID, buildContinuePrompt(), state.IncrementDepth(), agg, mode, cb)
		return
	}
	d.finalize(sessionID, agg, finalText, mode, cb)
}

func (d *DialogService) finalize(sessionID string, agg *Aggregator, reasoning string, mode ambience.SafetyMode, cb Callbacks) {
	plan := agg.Finalize(reasoning, mode)
	plan = d.policy.Apply(plan, mode)
	d.logger.Info("run complete",
		"session_id", sessionID, "mode", mode, "filled_slots", plan.FilledSlots())
	if cb.OnComplete != nil {
		cb.OnComplete(plan)
	}
}

func (d *DialogService) emitError(cb Callbacks, err error) {
	d.logger.Error("run failed", "error", err)
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// RunAsync drives Run on a new goroutine, collecting tool executions
// and the terminal outcome into a single result. The channel is
// buffered; the worker never blocks on an absent reader.
func (d *DialogService) RunAsync(ctx context.Context, sessionID string, env ambience.Environment) <-chan RunResult {
	out := make(chan RunResult, 1)
	go func() {
		var result RunResult
		var calls []ToolExecution
		d.Run(ctx, sessionID, env, Callbacks{
			OnToolStart: func(name string, args json.RawMessage) {
				calls = append(calls, ToolExecution{Name: name, Args: args})
			},
			OnToolComplete: func(name string, res json.RawMessage) {
				for i := len(calls) - 1; i >= 0; i-- {
					if calls[i].Name == name && calls[i].Result == nil && calls[i].Error == "" {
						calls[i].Result = res
						break
					}
				}
			},
			OnToolError: func(name, errText string) {
				for i := len(calls) - 1; i >= 0; i-- {
					if calls[i].Name == name && calls[i].Result == nil && calls[i].Error == "" {
						calls[i].Error = errText
						break
					}
				}
			},
			OnWarning: func(msg string) {
				result.Warnings = append(result.Warnings, msg)
			},
			OnComplete: func(plan ambience.AmbiencePlan) {
				result.Plan = plan
			},
			OnError: func(err error) {
				result.Err = err
			},
		})
		result.ToolCalls = calls
		out <- result
	}()
	return out
}
