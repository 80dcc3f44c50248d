package ambience

import "time"

// AmbiencePlan is the aggregate output of one orchestration run. Any
// subset of the pointer fields may be nil; the aggregator fills slots as
// tool results arrive and never overwrites deliberately.
type AmbiencePlan struct {
	SessionID  string               `json:"sessionId"`
	Music      *MusicRecommendation `json:"music,omitempty"`
	NowPlaying *PlayResult          `json:"nowPlaying,omitempty"`
	Light      *LightSetting        `json:"light,omitempty"`
	Narrative  *Narrative           `json:"narrative,omitempty"`
	Scent      *ScentSetting        `json:"scent,omitempty"`
	Massage    *MassageSetting      `json:"massage,omitempty"`
	SafetyMode SafetyMode           `json:"safetyMode"`
	Reasoning  string               `json:"reasoning,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// SilentPlan is the canonical plan emitted when the safety policy
// suppresses all ambience output: every actuator slot empty, mode
// silent.
func SilentPlan(sessionID string) AmbiencePlan {
	return AmbiencePlan{
		SessionID:  sessionID,
		SafetyMode: ModeSilent,
		Reasoning:  "high-speed driving detected, ambience suppressed",
		CreatedAt:  time.Now(),
	}
}

// IsSilent reports whether the plan carries no actuator output at all.
func (p AmbiencePlan) IsSilent() bool {
	return p.Music == nil && p.NowPlaying == nil && p.Light == nil &&
		p.Scent == nil && p.Massage == nil && p.Narrative == nil
}

// IsComplete reports whether every core slot (music, light, narrative)
// is filled. Advisory only: partial plans are valid output.
func (p AmbiencePlan) IsComplete() bool {
	return p.Music != nil && p.Light != nil && p.Narrative != nil
}

// HasMusic reports whether a music recommendation with at least one
// track is present.
func (p AmbiencePlan) HasMusic() bool {
	return p.Music != nil && len(p.Music.Songs) > 0
}

// HasNarrative reports whether spoken narration is present.
func (p AmbiencePlan) HasNarrative() bool {
	return p.Narrative != nil && p.Narrative.Text != ""
}

// FilledSlots counts the actuator slots the run managed to fill.
func (p AmbiencePlan) FilledSlots() int {
	n := 0
	for _, filled := range []bool{
		p.Music != nil,
		p.NowPlaying != nil,
		p.Light != nil,
		p.Narrative != nil,
		p.Scent != nil,
		p.Massage != nil,
	} {
		if filled {
			n++
		}
	}
	return n
}
