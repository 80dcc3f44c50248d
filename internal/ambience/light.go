package ambience

import (
	"fmt"
	"regexp"
)

// DefaultTransitionDuration is the default color fade time in milliseconds.
const DefaultTransitionDuration = 1000

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// LightColor is a lamp color given as an RGB hex string plus an optional
// color temperature in kelvin.
type LightColor struct {
	Hex         string `json:"hex"`
	Temperature int    `json:"temperature,omitempty"`
}

// Validate checks the hex string format (#RRGGBB).
func (c LightColor) Validate() error {
	if !hexColorPattern.MatchString(c.Hex) {
		return fmt.Errorf("invalid light color %q: want #RRGGBB", c.Hex)
	}
	return nil
}

// ZoneSetting overrides color and brightness for one cabin light zone.
type ZoneSetting struct {
	Zone       string `json:"zone"`
	Color      string `json:"color"`
	Brightness int    `json:"brightness"`
}

// Cabin light zone names.
const (
	ZoneDashboard     = "dashboard"
	ZoneDoor          = "door"
	ZoneRoof          = "roof"
	ZoneFootwell      = "footwell"
	ZoneCenterConsole = "center_console"
)

// LightSetting is the ambient lighting part of a plan.
type LightSetting struct {
	Color              LightColor    `json:"color"`
	Brightness         int           `json:"brightness"` // 0-100
	Mode               LightMode     `json:"mode"`
	TransitionDuration int           `json:"transitionDuration"` // milliseconds
	Zones              []ZoneSetting `json:"zones,omitempty"`
}

// NewLightSetting validates ranges and fills defaults.
func NewLightSetting(s LightSetting) (LightSetting, error) {
	if s.Brightness < 0 || s.Brightness > 100 {
		return LightSetting{}, fmt.Errorf("brightness %d out of range [0, 100]", s.Brightness)
	}
	if err := s.Color.Validate(); err != nil {
		return LightSetting{}, err
	}
	if s.Mode == "" {
		s.Mode = LightStatic
	}
	if s.TransitionDuration <= 0 {
		s.TransitionDuration = DefaultTransitionDuration
	}
	return s, nil
}

// ForFocusMode returns the setting with any animated mode downgraded to
// static. Already-static settings are returned unchanged.
func (s LightSetting) ForFocusMode() LightSetting {
	if s.Mode.IsDynamic() {
		s.Mode = LightStatic
	}
	return s
}

// WithBrightness returns a copy with adjusted brightness.
func (s LightSetting) WithBrightness(brightness int) LightSetting {
	s.Brightness = brightness
	return s
}
