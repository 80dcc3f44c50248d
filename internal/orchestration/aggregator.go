package orchestration

import (
	"encoding/json"
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

// Aggregator accumulates named tool-call outputs into a partial plan.
// One aggregator lives for exactly one run; it is not safe for
// concurrent use and does not need to be (a run is single-threaded).
//
// The decode table must stay in sync with the tool catalog registered
// with the model session. Unrecognized names are ignored with a logged
// notice: the model may legitimately invoke search or diagnostic tools
// whose output never becomes part of the plan. A malformed payload for
// a recognized tool is logged and skipped, never fatal.
type Aggregator struct {
	sessionID string
	logger    log.Logger

	music      *ambience.MusicRecommendation
	nowPlaying *ambience.PlayResult
	light      *ambience.LightSetting
	narrative  *ambience.Narrative
	scent      *ambience.ScentSetting
	massage    *ambience.MassageSetting
}

// NewAggregator creates an empty aggregator for one run.
func NewAggregator(sessionID string, logger log.Logger) *Aggregator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Aggregator{sessionID: sessionID, logger: logger}
}

// Ingest routes one tool result into its plan slot. A later result for
// the same tool replaces the earlier one (the model corrected itself).
func (a *Aggregator) Ingest(toolName string, payload []byte) {
	switch toolName {
	case "recommendMusic":
		ingestInto(a, toolName, payload, &a.music)
	case "playMusic":
		ingestInto(a, toolName, payload, &a.nowPlaying)
	case "setLight":
		ingestInto(a, toolName, payload, &a.light)
	case "generateNarrative":
		ingestInto(a, toolName, payload, &a.narrative)
	case "setScent":
		ingestInto(a, toolName, payload, &a.scent)
	case "setMassage":
		ingestInto(a, toolName, payload, &a.massage)
	default:
		a.logger.Info("ignoring result of unrecognized tool",
			"tool", toolName, "session_id", a.sessionID)
	}
}

// ingestInto decodes a payload into a fresh value and commits it to the
// slot only on success.
func ingestInto[T any](a *Aggregator, toolName string, payload []byte, slot **T) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		a.logger.Warn("skipping malformed tool result",
			"tool", toolName, "session_id", a.sessionID, "error", err)
		return
	}
	*slot = &v
}

// Finalize assembles the accumulated fields into a plan. Called exactly
// once per run at loop termination.
func (a *Aggregator) Finalize(reasoning string, mode ambience.SafetyMode) ambience.AmbiencePlan {
	return ambience.AmbiencePlan{
		SessionID:  a.sessionID,
		Music:      a.music,
		NowPlaying: a.nowPlaying,
		Light:      a.light,
		Narrative:  a.narrative,
		Scent:      a.scent,
		Massage:    a.massage,
		SafetyMode: mode,
		Reasoning:  reasoning,
		CreatedAt:  time.Now(),
	}
}
