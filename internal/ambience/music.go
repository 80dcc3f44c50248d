package ambience

import "fmt"

// Song is one track in a recommendation.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"` // seconds
	BPM      int    `json:"bpm"`
	Genre    string `json:"genre,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
}

// FormattedDuration renders the track length as mm:ss.
func (s Song) FormattedDuration() string {
	return fmt.Sprintf("%d:%02d", s.Duration/60, s.Duration%60)
}

// BpmRange is the tempo band a recommendation targets.
type BpmRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether bpm falls inside the band.
func (r BpmRange) Contains(bpm int) bool {
	return bpm >= r.Min && bpm <= r.Max
}

// MusicRecommendation is the playlist the agent assembled for the
// current environment. Songs holds between 1 and 10 tracks.
type MusicRecommendation struct {
	Songs    []Song   `json:"songs"`
	Mood     string   `json:"mood,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	BpmRange BpmRange `json:"bpmRange"`
}

// TotalDuration is the playlist length in seconds.
func (m MusicRecommendation) TotalDuration() int {
	total := 0
	for _, s := range m.Songs {
		total += s.Duration
	}
	return total
}

// FirstSong returns the lead track, or a zero Song when empty.
func (m MusicRecommendation) FirstSong() Song {
	if len(m.Songs) == 0 {
		return Song{}
	}
	return m.Songs[0]
}

// PlayResult is the resolved, playable track returned by the player.
type PlayResult struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	URL      string `json:"url"`
	Duration int    `json:"duration"` // seconds
	CoverURL string `json:"coverUrl,omitempty"`
}

// HasValidURL reports whether the track resolved to a playable source.
func (p PlayResult) HasValidURL() bool {
	return p.URL != ""
}

// SearchResult is the outcome of a catalog search. Search output is
// informational for the agent and never aggregated into a plan.
type SearchResult struct {
	Query      string `json:"query"`
	Candidates []Song `json:"candidates"`
}
