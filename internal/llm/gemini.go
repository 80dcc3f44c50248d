package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/vibedrive/vibedrive/internal/log"
)

// maxToolRounds bounds the model-call/tool-execution cycles inside one
// Send. The model normally converges in 2-3 rounds; the cap only guards
// against a model that keeps requesting tools forever.
const maxToolRounds = 8

var (
	// ErrUnknownTool indicates the model requested a tool that was never
	// registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrTooManyToolRounds indicates the model exceeded maxToolRounds in
	// a single turn.
	ErrTooManyToolRounds = errors.New("too many tool rounds")
)

// GeminiConfig configures a Gemini session.
type GeminiConfig struct {
	APIKey       string
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int

	// CallsPerMinute throttles outbound model requests across all
	// sessions. Zero disables throttling.
	CallsPerMinute int
}

// Gemini implements Session on the Gemini API. Safe for concurrent use;
// each session ID gets its own serialized history.
type Gemini struct {
	client  *genai.Client
	cfg     GeminiConfig
	tools   map[string]ToolDefinition
	decls   []*genai.FunctionDeclaration
	limiter *rate.Limiter
	logger  log.Logger

	mu        sync.Mutex
	histories map[string][]*genai.Content
}

// NewGemini creates a Gemini-backed session with the given tools.
func NewGemini(ctx context.Context, cfg GeminiConfig, toolDefs []ToolDefinition, logger log.Logger) (*Gemini, error) {
	if cfg.Model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	tools := make(map[string]ToolDefinition, len(toolDefs))
	decls := make([]*genai.FunctionDeclaration, 0, len(toolDefs))
	for _, def := range toolDefs {
		if _, dup := tools[def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", def.Name)
		}
		tools[def.Name] = def
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 def.Name,
			Description:          def.Description,
			ParametersJsonSchema: def.Schema,
		})
	}

	var limiter *rate.Limiter
	if cfg.CallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), cfg.CallsPerMinute)
	}

	return &Gemini{
		client:    client,
		cfg:       cfg,
		tools:     tools,
		decls:     decls,
		limiter:   limiter,
		logger:    logger,
		histories: make(map[string][]*genai.Content),
	}, nil
}

// Send implements Session. The stream is produced by a single goroutine
// that exits when the turn terminates or ctx is cancelled.
func (g *Gemini) Send(ctx context.Context, sessionID, prompt string) (<-chan Event, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt is empty")
	}

	events := make(chan Event, 16)
	go g.run(ctx, sessionID, prompt, events)
	return events, nil
}

func (g *Gemini) run(ctx context.Context, sessionID, prompt string, events chan<- Event) {
	defer close(events)

	contents := g.snapshotHistory(sessionID)
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	var finalText strings.Builder

	for round := 0; round < maxToolRounds; round++ {
		modelContent, calls, err := g.generate(ctx, contents, events, &finalText)
		if err != nil {
			g.emit(ctx, events, Event{Type: EventError, Err: err})
			return
		}
		if modelContent != nil {
			contents = append(contents, modelContent)
		}

		if len(calls) == 0 {
			g.commitHistory(sessionID, contents)
			g.emit(ctx, events, Event{Type: EventDone, Text: finalText.String()})
			return
		}

		for _, call := range calls {
			response, ok := g.executeTool(ctx, sessionID, call, events)
			if !ok {
				return // context cancelled mid-tool
			}
			contents = append(contents, genai.NewContentFromFunctionResponse(call.Name, response, genai.RoleUser))
		}
	}

	g.emit(ctx, events, Event{Type: EventError,
		Err: fmt.Errorf("%w: gave up after %d rounds", ErrTooManyToolRounds, maxToolRounds)})
}

// generate performs one streamed model call, forwarding text deltas and
// collecting any function calls from the response.
func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, events chan<- Event, finalText *strings.Builder) (*genai.Content, []*genai.FunctionCall, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens: int32(g.cfg.MaxTokens),
	}
	if g.cfg.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(g.cfg.SystemPrompt, genai.RoleUser)
	}
	if len(g.decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: g.decls}}
	}

	var (
		parts []*genai.Part
		calls []*genai.FunctionCall
	)
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.cfg.Model, contents, config) {
		if err != nil {
			return nil, nil, fmt.Errorf("generating content: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, part := range resp.Candidates[0].Content.Parts {
			parts = append(parts, part)
			if part.Text != "" {
				finalText.WriteString(part.Text)
				if !g.emit(ctx, events, Event{Type: EventTextDelta, Text: part.Text}) {
					return nil, nil, ctx.Err()
				}
			}
			if part.FunctionCall != nil {
				calls = append(calls, part.FunctionCall)
			}
		}
	}

	if len(parts) == 0 {
		return nil, nil, nil
	}
	return &genai.Content{Role: genai.RoleModel, Parts: parts}, calls, nil
}

// executeTool runs one requested tool and reports it on the stream. A
// handler failure is reported to the model as an error payload rather
// than aborting the turn; the model decides how to proceed.
func (g *Gemini) executeTool(ctx context.Context, sessionID string, call *genai.FunctionCall, events chan<- Event) (map[string]any, bool) {
	args, err := json.Marshal(call.Args)
	if err != nil {
		args = []byte("{}")
	}

	if !g.emit(ctx, events, Event{Type: EventToolCallRequested, ToolName: call.Name, ToolArgs: args}) {
		return nil, false
	}

	def, ok := g.tools[call.Name]
	if !ok {
		g.logger.Warn("model requested unregistered tool", "tool", call.Name, "session_id", sessionID)
		msg := fmt.Sprintf("%v: %s", ErrUnknownTool, call.Name)
		if !g.emit(ctx, events, Event{Type: EventToolCallResult, ToolName: call.Name, ToolArgs: args, ToolErr: msg}) {
			return nil, false
		}
		return map[string]any{"error": msg}, true
	}

	result, err := def.Handler(ctx, sessionID, args)
	if err != nil {
		g.logger.Warn("tool handler failed", "tool", call.Name, "session_id", sessionID, "error", err)
		if !g.emit(ctx, events, Event{Type: EventToolCallResult, ToolName: call.Name, ToolArgs: args, ToolErr: err.Error()}) {
			return nil, false
		}
		return map[string]any{"error": err.Error()}, true
	}

	if !g.emit(ctx, events, Event{Type: EventToolCallResult, ToolName: call.Name, ToolArgs: args, ToolResult: result}) {
		return nil, false
	}

	var response map[string]any
	if err := json.Unmarshal(result, &response); err != nil {
		// Non-object results still need an object envelope for the API.
		response = map[string]any{"result": string(result)}
	}
	return response, true
}

// emit sends one event, giving up when the caller went away.
func (g *Gemini) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (g *Gemini) snapshotHistory(sessionID string) []*genai.Content {
	g.mu.Lock()
	defer g.mu.Unlock()
	history := g.histories[sessionID]
	out := make([]*genai.Content, len(history))
	copy(out, history)
	return out
}

// commitHistory stores the turn's full transcript. Only successful
// turns commit; a failed turn leaves history at the previous state so a
// retry starts clean.
func (g *Gemini) commitHistory(sessionID string, contents []*genai.Content) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.histories[sessionID] = contents
}

// Reset drops the conversation history of one session.
func (g *Gemini) Reset(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.histories, sessionID)
}

// Close implements Session. The genai client holds no connections that
// need explicit teardown.
func (g *Gemini) Close() error {
	return nil
}
