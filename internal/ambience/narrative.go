package ambience

import "fmt"

// Narration defaults and limits.
const (
	DefaultVoice      = "default"
	DefaultSpeechRate = 1.0
	DefaultVolume     = 0.8
	MaxNarrativeLen   = 500
)

// Narrative is the short spoken description of the ambience, rendered by
// the cabin TTS.
type Narrative struct {
	Text    string           `json:"text"`
	Emotion NarrativeEmotion `json:"emotion"`
	Voice   string           `json:"voice"`
	Speed   float64          `json:"speed"`
	Volume  float64          `json:"volume"`
}

// NewNarrative validates the text and fills voice defaults.
func NewNarrative(n Narrative) (Narrative, error) {
	if n.Text == "" {
		return Narrative{}, fmt.Errorf("narrative text must not be empty")
	}
	if len([]rune(n.Text)) > MaxNarrativeLen {
		return Narrative{}, fmt.Errorf("narrative text exceeds %d characters", MaxNarrativeLen)
	}
	if n.Voice == "" {
		n.Voice = DefaultVoice
	}
	if n.Speed <= 0 {
		n.Speed = DefaultSpeechRate
	}
	if n.Volume <= 0 {
		n.Volume = DefaultVolume
	}
	return n, nil
}

// WithReducedVolume scales the narration volume by the given factor.
// Used when the safety mode calls for quieter speech.
func (n Narrative) WithReducedVolume(factor float64) Narrative {
	n.Volume *= factor
	return n
}
