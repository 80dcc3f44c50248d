package events

import (
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// Event type names published during an orchestration run.
const (
	TypeToolStart   = "vibe_tool_start"
	TypeToolEnd     = "vibe_tool_end"
	TypeToolError   = "vibe_tool_error"
	TypeComplete    = "vibe_complete"
	TypeError       = "vibe_error"
	TypeCancelled   = "vibe_cancelled"
	TypeSafetyMode  = "vibe_safety_mode"
	TypeTextDelta   = "vibe_text_delta"
	TypeWarning     = "vibe_warning"
	TypeEnvironment = "environment_update"
	TypeHeartbeat   = "heartbeat"
)

// Topic names subscribers can filter on instead of exact event types.
const (
	TopicAmbience    = "ambience"
	TopicSafety      = "safety"
	TopicStatus      = "status"
	TopicEnvironment = "environment"
)

// eventTopics maps event types to their coarse topic. Event types not
// listed here match only by exact name.
var eventTopics = map[string]string{
	TypeToolStart:   TopicStatus,
	TypeToolEnd:     TopicStatus,
	TypeToolError:   TopicStatus,
	TypeError:       TopicStatus,
	TypeCancelled:   TopicStatus,
	TypeTextDelta:   TopicStatus,
	TypeWarning:     TopicStatus,
	TypeComplete:    TopicAmbience,
	TypeSafetyMode:  TopicSafety,
	TypeEnvironment: TopicEnvironment,
}

// TopicOf returns the coarse topic for an event type, or "" when the
// type has no topic mapping.
func TopicOf(eventType string) string {
	return eventTopics[eventType]
}

// ToolStartPayload is the body of a vibe_tool_start event.
type ToolStartPayload struct {
	TaskID   string `json:"taskId"`
	ToolName string `json:"toolName"`
	Args     string `json:"args,omitempty"`
}

// ToolEndPayload is the body of a vibe_tool_end event.
type ToolEndPayload struct {
	TaskID   string `json:"taskId"`
	ToolName string `json:"toolName"`
	Result   string `json:"result,omitempty"`
}

// ToolErrorPayload is the body of a vibe_tool_error event.
type ToolErrorPayload struct {
	TaskID   string `json:"taskId"`
	ToolName string `json:"toolName"`
	Error    string `json:"error"`
}

// SafetyModePayload is the body of a vibe_safety_mode event.
type SafetyModePayload struct {
	TaskID string  `json:"taskId"`
	Mode   string  `json:"mode"`
	Speed  float64 `json:"speed"`
}

// TextDeltaPayload is the body of a vibe_text_delta event.
type TextDeltaPayload struct {
	TaskID string `json:"taskId"`
	Text   string `json:"text"`
}

// WarningPayload is the body of a vibe_warning event.
type WarningPayload struct {
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

// CompletePayload is the body of a vibe_complete event.
type CompletePayload struct {
	TaskID string                `json:"taskId"`
	Plan   ambience.AmbiencePlan `json:"plan"`
}

// ErrorPayload is the body of a vibe_error event.
type ErrorPayload struct {
	TaskID string `json:"taskId"`
	Error  string `json:"error"`
}

// CancelledPayload is the body of a vibe_cancelled event.
type CancelledPayload struct {
	TaskID string `json:"taskId"`
}

// HeartbeatPayload is the body of the periodic heartbeat event.
type HeartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}
