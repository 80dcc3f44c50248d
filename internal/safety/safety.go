// Package safety derives the speed-based restriction tier and filters
// ambience plans to comply with it.
//
// The policy is deterministic and stateless: the same speed always maps
// to the same mode, and filtering an already-compliant plan returns it
// unchanged, so it is safe to apply at every stage boundary.
package safety

import (
	"fmt"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

// Speed thresholds in km/h. At or above FocusSpeed dynamic effects are
// disabled; at or above SilentSpeed all proactive output is suppressed.
const (
	FocusSpeed  = 60.0
	SilentSpeed = 100.0
)

// ModeFromSpeed maps a validated speed reading to its restriction tier.
// Returns ambience.ErrSpeedOutOfRange for readings outside [0, 200].
func ModeFromSpeed(speed float64) (ambience.SafetyMode, error) {
	if speed < ambience.MinSpeed || speed > ambience.MaxSpeed {
		return ambience.ModeNormal, fmt.Errorf("%w: %.1f km/h", ambience.ErrSpeedOutOfRange, speed)
	}
	switch {
	case speed >= SilentSpeed:
		return ambience.ModeSilent, nil
	case speed >= FocusSpeed:
		return ambience.ModeFocus, nil
	default:
		return ambience.ModeNormal, nil
	}
}

// Policy filters ambience plans against a safety mode.
type Policy struct {
	logger log.Logger
}

// NewPolicy creates a policy. A nil logger disables logging.
func NewPolicy(logger log.Logger) *Policy {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Policy{logger: logger}
}

// Apply returns the plan adjusted to comply with mode. Idempotent: a
// plan that already complies comes back unchanged, and applying the
// same mode twice equals applying it once.
func (p *Policy) Apply(plan ambience.AmbiencePlan, mode ambience.SafetyMode) ambience.AmbiencePlan {
	switch mode {
	case ambience.ModeSilent:
		if plan.IsSilent() && plan.SafetyMode == ambience.ModeSilent {
			return plan
		}
		p.logger.Info("suppressing plan for silent mode",
			"session_id", plan.SessionID,
			"dropped_slots", plan.FilledSlots())
		return ambience.SilentPlan(plan.SessionID)

	case ambience.ModeFocus:
		adjusted := false
		if plan.Light != nil && plan.Light.Mode.IsDynamic() {
			light := plan.Light.ForFocusMode()
			plan.Light = &light
			adjusted = true
		}
		if plan.Massage != nil {
			clamped := plan.Massage.ForHighSpeed()
			if clamped.Mode != plan.Massage.Mode || clamped.Intensity != plan.Massage.Intensity {
				plan.Massage = &clamped
				adjusted = true
			}
		}
		if adjusted {
			p.logger.Info("adjusted plan for focus mode", "session_id", plan.SessionID)
		}
		plan.SafetyMode = ambience.ModeFocus
		return plan

	default:
		plan.SafetyMode = ambience.ModeNormal
		return plan
	}
}
