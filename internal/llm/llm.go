// Package llm defines the model session seam used by the orchestration
// layer, plus the Gemini implementation.
//
// A Session owns per-session conversation history and streams tagged
// events back to the caller. Tool execution happens inside the session:
// when the model requests a function call the session runs the
// registered handler and feeds the result back before continuing the
// same turn. The caller only observes the call/result events.
package llm

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// EventType tags events on the Send stream.
type EventType int

const (
	// EventTextDelta carries an incremental chunk of model text.
	EventTextDelta EventType = iota

	// EventToolCallRequested is emitted when the model asks for a tool.
	EventToolCallRequested

	// EventToolCallResult is emitted after a tool handler ran.
	EventToolCallResult

	// EventDone closes a successful turn. Text holds the accumulated
	// final text, which may be blank when the model only called tools.
	EventDone

	// EventError closes a failed turn.
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventTextDelta:
		return "text_delta"
	case EventToolCallRequested:
		return "tool_call_requested"
	case EventToolCallResult:
		return "tool_call_result"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one element of a Send stream. Fields are populated per Type:
// TextDelta fills Text; ToolCallRequested fills ToolName and ToolArgs;
// ToolCallResult additionally fills ToolResult or ToolErr; Done fills
// Text with the whole final answer; Error fills Err.
type Event struct {
	Type       EventType
	Text       string
	ToolName   string
	ToolArgs   json.RawMessage
	ToolResult json.RawMessage
	ToolErr    string
	Err        error
}

// Handler executes a tool call. Receives the session the call belongs
// to explicitly; handlers must not stash session state anywhere else.
type Handler func(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error)

// ToolDefinition describes one callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     Handler
}

// Session is a stateful model conversation keyed by session ID.
//
// Send runs one full turn: it appends the prompt to the session's
// history, streams events until the model stops requesting tools, and
// closes the channel after a terminal EventDone or EventError. The
// returned channel is never nil on a nil error.
type Session interface {
	Send(ctx context.Context, sessionID, prompt string) (<-chan Event, error)
	Reset(sessionID string)
	Close() error
}
