package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// SetLightInput are the arguments of the setLight tool.
type SetLightInput struct {
	Color        string `json:"color" jsonschema:"hex color in #RRGGBB format"`
	Brightness   int    `json:"brightness" jsonschema:"brightness 0-100"`
	Mode         string `json:"mode,omitempty" jsonschema:"STATIC, BREATHING, GRADIENT or PULSE"`
	TransitionMs int    `json:"transitionMs,omitempty" jsonschema:"fade duration in milliseconds"`
	Temperature  int    `json:"temperature,omitempty" jsonschema:"color temperature in kelvin"`
}

// SetLight validates and echoes the lighting configuration.
func (c *Catalog) SetLight(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in SetLightInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding setLight args: %w", err)
	}

	setting, err := ambience.NewLightSetting(ambience.LightSetting{
		Color:              ambience.LightColor{Hex: in.Color, Temperature: in.Temperature},
		Brightness:         in.Brightness,
		Mode:               ambience.LightMode(in.Mode),
		TransitionDuration: in.TransitionMs,
	})
	if err != nil {
		return nil, fmt.Errorf("setLight: %w", err)
	}
	c.logger.Debug("light configured",
		"session_id", sessionID, "color", setting.Color.Hex, "mode", setting.Mode)
	return json.Marshal(setting)
}

// SetScentInput are the arguments of the setScent tool.
type SetScentInput struct {
	Type      string `json:"type" jsonschema:"LAVENDER, PEPPERMINT, OCEAN, FOREST, CITRUS, VANILLA or NONE"`
	Intensity int    `json:"intensity" jsonschema:"diffusion intensity 0-10"`
	Duration  int    `json:"duration,omitempty" jsonschema:"diffusion duration in minutes, default 30"`
}

// SetScent validates and echoes the scent configuration.
func (c *Catalog) SetScent(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in SetScentInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding setScent args: %w", err)
	}

	setting, err := ambience.NewScentSetting(ambience.ScentSetting{
		Type:      ambience.ScentType(in.Type),
		Intensity: in.Intensity,
		Duration:  in.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("setScent: %w", err)
	}
	return json.Marshal(setting)
}

// SetMassageInput are the arguments of the setMassage tool.
type SetMassageInput struct {
	Mode      string   `json:"mode" jsonschema:"RELAX, ENERGIZE, COMFORT, SPORT or OFF"`
	Intensity int      `json:"intensity,omitempty" jsonschema:"intensity 1-5, ignored when mode is OFF"`
	Zones     []string `json:"zones,omitempty" jsonschema:"seat zones: BACK, LUMBAR, SHOULDER, THIGH, ALL"`
	Duration  int      `json:"duration,omitempty" jsonschema:"program duration in minutes"`
}

// SetMassage validates and echoes the massage configuration. The speed
// clamp happens later in the safety policy, not here; the tool reflects
// what the model asked for.
func (c *Catalog) SetMassage(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in SetMassageInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding setMassage args: %w", err)
	}

	zones := make([]ambience.MassageZone, 0, len(in.Zones))
	for _, z := range in.Zones {
		zones = append(zones, ambience.MassageZone(z))
	}
	setting, err := ambience.NewMassageSetting(ambience.MassageSetting{
		Mode:      ambience.MassageMode(in.Mode),
		Intensity: in.Intensity,
		Zones:     zones,
		Duration:  in.Duration,
	})
	if err != nil {
		return nil, fmt.Errorf("setMassage: %w", err)
	}
	return json.Marshal(setting)
}

// GenerateNarrativeInput are the arguments of the generateNarrative tool.
type GenerateNarrativeInput struct {
	Text    string  `json:"text" jsonschema:"the narration text, max 500 characters"`
	Emotion string  `json:"emotion,omitempty" jsonschema:"WARM, ENERGETIC, ROMANTIC, ADVENTUROUS or CALM"`
	Speed   float64 `json:"speed,omitempty" jsonschema:"speech rate, default 1.0"`
	Volume  float64 `json:"volume,omitempty" jsonschema:"volume 0-1, default 0.8"`
}

// GenerateNarrative validates the narration and applies voice defaults.
// In silent safety mode the volume reduction happens downstream.
func (c *Catalog) GenerateNarrative(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in GenerateNarrativeInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding generateNarrative args: %w", err)
	}

	narrative, err := ambience.NewNarrative(ambience.Narrative{
		Text:    in.Text,
		Emotion: ambience.NarrativeEmotion(in.Emotion),
		Speed:   in.Speed,
		Volume:  in.Volume,
	})
	if err != nil {
		return nil, fmt.Errorf("generateNarrative: %w", err)
	}
	return json.Marshal(narrative)
}
