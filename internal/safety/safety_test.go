package safety

import (
	"errors"
	"testing"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/log"
)

func TestModeFromSpeed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		want  ambience.SafetyMode
	}{
		{"standstill", 0, ambience.ModeNormal},
		{"city speed", 59.9, ambience.ModeNormal},
		{"focus lower bound", 60, ambience.ModeFocus},
		{"between thresholds", 99.9, ambience.ModeFocus},
		{"silent lower bound", 100, ambience.ModeSilent},
		{"top speed", 200, ambience.ModeSilent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ModeFromSpeed(tt.speed)
			if err != nil {
				t.Fatalf("ModeFromSpeed(%v) error: %v", tt.speed, err)
			}
			if got != tt.want {
				t.Errorf("ModeFromSpeed(%v) = %v, want %v", tt.speed, got, tt.want)
			}
		})
	}
}

func TestModeFromSpeedOutOfRange(t *testing.T) {
	for _, speed := range []float64{-0.1, 200.1} {
		if _, err := ModeFromSpeed(speed); !errors.Is(err, ambience.ErrSpeedOutOfRange) {
			t.Errorf("ModeFromSpeed(%v) error = %v, want ErrSpeedOutOfRange", speed, err)
		}
	}
}

// Modes must never become less restrictive as speed rises.
func TestModeFromSpeedMonotonic(t *testing.T) {
	prev := ambience.ModeNormal
	for speed := 0.0; speed <= 200; speed += 0.5 {
		mode, err := ModeFromSpeed(speed)
		if err != nil {
			t.Fatalf("ModeFromSpeed(%v) error: %v", speed, err)
		}
		if mode < prev {
			t.Fatalf("mode decreased from %v to %v at %v km/h", prev, mode, speed)
		}
		prev = mode
	}
}

func richPlan() ambience.AmbiencePlan {
	return ambience.AmbiencePlan{
		SessionID: "sess-1",
		Music: &ambience.MusicRecommendation{
			Songs: []ambience.Song{{ID: "s1", Title: "Drive", Duration: 180}},
		},
		Light: &ambience.LightSetting{
			Color:      ambience.LightColor{Hex: "#FF8800"},
			Brightness: 70,
			Mode:       ambience.LightBreathing,
		},
		Narrative: &ambience.Narrative{Text: "Enjoy the ride.", Volume: 0.8},
		Massage:   &ambience.MassageSetting{Mode: ambience.MassageSport, Intensity: 5},
	}
}

func TestApplyNormal(t *testing.T) {
	p := NewPolicy(log.NewNop())
	got := p.Apply(richPlan(), ambience.ModeNormal)
	if got.Light.Mode != ambience.LightBreathing {
		t.Error("normal mode altered light")
	}
	if got.Massage.Mode != ambience.MassageSport {
		t.Error("normal mode altered massage")
	}
	if got.SafetyMode != ambience.ModeNormal {
		t.Errorf("SafetyMode = %v", got.SafetyMode)
	}
}

func TestApplyFocus(t *testing.T) {
	p := NewPolicy(log.NewNop())
	got := p.Apply(richPlan(), ambience.ModeFocus)

	if got.Light.Mode != ambience.LightStatic {
		t.Errorf("focus light mode = %v, want STATIC", got.Light.Mode)
	}
	if got.Massage.Mode != ambience.MassageComfort {
		t.Errorf("focus massage mode = %v, want COMFORT", got.Massage.Mode)
	}
	if got.Massage.Intensity > ambience.MaxHighSpeedIntensity {
		t.Errorf("focus massage intensity = %d", got.Massage.Intensity)
	}
	if got.Music == nil || got.Narrative == nil {
		t.Error("focus mode dropped music or narrative")
	}
	if got.SafetyMode != ambience.ModeFocus {
		t.Errorf("SafetyMode = %v", got.SafetyMode)
	}
}

func TestApplySilent(t *testing.T) {
	p := NewPolicy(log.NewNop())
	got := p.Apply(richPlan(), ambience.ModeSilent)
	if !got.IsSilent() {
		t.Error("silent mode left actuator output")
	}
	if got.SessionID != "sess-1" {
		t.Errorf("session id = %q", got.SessionID)
	}
	if got.SafetyMode != ambience.ModeSilent {
		t.Errorf("SafetyMode = %v", got.SafetyMode)
	}
}

func TestApplyIdempotent(t *testing.T) {
	p := NewPolicy(log.NewNop())
	for _, mode := range []ambience.SafetyMode{ambience.ModeNormal, ambience.ModeFocus, ambience.ModeSilent} {
		once := p.Apply(richPlan(), mode)
		twice := p.Apply(once, mode)

		if once.IsSilent() != twice.IsSilent() || once.SafetyMode != twice.SafetyMode {
			t.Errorf("mode %v: second application changed plan", mode)
		}
		if !once.IsSilent() {
			if once.Light.Mode != twice.Light.Mode {
				t.Errorf("mode %v: light mode changed on reapply", mode)
			}
			if once.Massage.Intensity != twice.Massage.Intensity {
				t.Errorf("mode %v: massage changed on reapply", mode)
			}
		}
	}
}

func TestApplyFocusDoesNotMutateInput(t *testing.T) {
	p := NewPolicy(log.NewNop())
	in := richPlan()
	_ = p.Apply(in, ambience.ModeFocus)
	if in.Light.Mode != ambience.LightBreathing {
		t.Error("Apply mutated the caller's light setting")
	}
	if in.Massage.Mode != ambience.MassageSport {
		t.Error("Apply mutated the caller's massage setting")
	}
}
