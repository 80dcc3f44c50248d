package ambience

import "fmt"

// SafetyMode is the speed-derived restriction tier. Modes are totally
// ordered by restrictiveness: Normal < Focus < Silent.
type SafetyMode int

const (
	// ModeNormal (L1, speed < 60 km/h): all features available.
	ModeNormal SafetyMode = iota

	// ModeFocus (L2, 60–100 km/h): dynamic light effects disabled,
	// intense massage programs clamped.
	ModeFocus

	// ModeSilent (L3, speed >= 100 km/h): no proactive recommendation at
	// all; narration volume reduced.
	ModeSilent
)

// safetyModeNames are the wire names, stable across the REST and SSE
// surfaces.
var safetyModeNames = map[SafetyMode]string{
	ModeNormal: "L1_NORMAL",
	ModeFocus:  "L2_FOCUS",
	ModeSilent: "L3_SILENT",
}

func (m SafetyMode) String() string {
	if name, ok := safetyModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("SafetyMode(%d)", int(m))
}

// ParseSafetyMode converts a wire name back into a SafetyMode.
func ParseSafetyMode(s string) (SafetyMode, error) {
	for mode, name := range safetyModeNames {
		if name == s {
			return mode, nil
		}
	}
	return ModeNormal, fmt.Errorf("unknown safety mode %q", s)
}

// MarshalJSON encodes the mode as its wire name.
func (m SafetyMode) MarshalJSON() ([]byte, error) {
	name, ok := safetyModeNames[m]
	if !ok {
		return nil, fmt.Errorf("cannot marshal safety mode %d", int(m))
	}
	return []byte(`"` + name + `"`), nil
}

// UnmarshalJSON decodes a wire name into the mode.
func (m *SafetyMode) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("safety mode must be a JSON string, got %s", data)
	}
	mode, err := ParseSafetyMode(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// AllowsDynamicLighting reports whether animated light effects are
// permitted in this mode.
func (m SafetyMode) AllowsDynamicLighting() bool {
	return m == ModeNormal
}

// AllowsProactiveRecommendation reports whether the agent may push an
// ambience plan without an explicit user request.
func (m SafetyMode) AllowsProactiveRecommendation() bool {
	return m != ModeSilent
}

// TTSVolumeMultiplier is the factor applied to narration volume.
func (m SafetyMode) TTSVolumeMultiplier() float64 {
	if m == ModeSilent {
		return 0.7
	}
	return 1.0
}
