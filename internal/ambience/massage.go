package ambience

import "fmt"

// Massage intensity limits.
const (
	MinMassageIntensity = 1
	MaxMassageIntensity = 5

	// MaxHighSpeedIntensity is the intensity cap applied in restricted
	// safety modes.
	MaxHighSpeedIntensity = 3
)

// MassageSetting is the seat massage part of a plan.
type MassageSetting struct {
	Mode      MassageMode   `json:"mode"`
	Intensity int           `json:"intensity"` // 1-5
	Zones     []MassageZone `json:"zones,omitempty"`
	Duration  int           `json:"duration,omitempty"` // minutes
}

// NewMassageSetting validates the intensity range. An OFF setting
// ignores intensity entirely.
func NewMassageSetting(s MassageSetting) (MassageSetting, error) {
	if s.Mode == MassageOff {
		s.Intensity = 0
		return s, nil
	}
	if s.Intensity < MinMassageIntensity || s.Intensity > MaxMassageIntensity {
		return MassageSetting{}, fmt.Errorf("massage intensity %d out of range [%d, %d]",
			s.Intensity, MinMassageIntensity, MaxMassageIntensity)
	}
	return s, nil
}

// ForHighSpeed clamps the program to one safe at speed: unsafe modes
// become COMFORT and intensity is capped. Settings that are already safe
// are returned unchanged.
func (s MassageSetting) ForHighSpeed() MassageSetting {
	if s.Mode.IsSafeForHighSpeed() && s.Intensity <= MaxHighSpeedIntensity {
		return s
	}
	if !s.Mode.IsSafeForHighSpeed() {
		s.Mode = MassageComfort
	}
	if s.Intensity > MaxHighSpeedIntensity {
		s.Intensity = MaxHighSpeedIntensity
	}
	return s
}

// IsActive reports whether the seat actually runs a program.
func (s MassageSetting) IsActive() bool {
	return s.Mode != MassageOff
}
