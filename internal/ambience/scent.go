package ambience

import "fmt"

// Scent limits and defaults.
const (
	MinScentIntensity    = 0
	MaxScentIntensity    = 10
	DefaultScentDuration = 30 // minutes
)

// ScentSetting is the fragrance part of a plan.
type ScentSetting struct {
	Type      ScentType `json:"type"`
	Intensity int       `json:"intensity"` // 0-10
	Duration  int       `json:"duration"`  // minutes
}

// NewScentSetting validates the intensity range and defaults the
// diffusion duration.
func NewScentSetting(s ScentSetting) (ScentSetting, error) {
	if s.Intensity < MinScentIntensity || s.Intensity > MaxScentIntensity {
		return ScentSetting{}, fmt.Errorf("scent intensity %d out of range [%d, %d]",
			s.Intensity, MinScentIntensity, MaxScentIntensity)
	}
	if s.Duration <= 0 {
		s.Duration = DefaultScentDuration
	}
	return s, nil
}

// IsActive reports whether the diffuser actually emits anything.
func (s ScentSetting) IsActive() bool {
	return s.Type != ScentNone && s.Intensity > 0
}
