package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// Recommendation size limits.
const (
	minRecommendCount     = 1
	maxRecommendCount     = 10
	defaultRecommendCount = 5
)

// songLibrary is the built-in catalog the recommendation heuristics
// draw from. A production deployment swaps this for a streaming
// provider behind the same handlers.
var songLibrary = []ambience.Song{
	{ID: "vd-001", Title: "Coastline Drift", Artist: "Aurora Lane", Album: "Open Roads", Duration: 221, BPM: 98, Genre: "chill"},
	{ID: "vd-002", Title: "Neon Interchange", Artist: "Midnight Circuit", Album: "City Pulse", Duration: 204, BPM: 124, Genre: "electronic"},
	{ID: "vd-003", Title: "Slow Rain", Artist: "Ester Vale", Album: "Quiet Hours", Duration: 256, BPM: 72, Genre: "ambient"},
	{ID: "vd-004", Title: "Ridge Runner", Artist: "The Switchbacks", Album: "Altitude", Duration: 189, BPM: 140, Genre: "rock"},
	{ID: "vd-005", Title: "Harbor Lights", Artist: "Aurora Lane", Album: "Open Roads", Duration: 233, BPM: 88, Genre: "chill"},
	{ID: "vd-006", Title: "Midnight Espresso", Artist: "Velvet Units", Album: "After Dark", Duration: 197, BPM: 112, Genre: "jazz"},
	{ID: "vd-007", Title: "Tunnel Vision", Artist: "Midnight Circuit", Album: "City Pulse", Duration: 215, BPM: 128, Genre: "electronic"},
	{ID: "vd-008", Title: "First Light", Artist: "Ester Vale", Album: "Quiet Hours", Duration: 242, BPM: 64, Genre: "ambient"},
	{ID: "vd-009", Title: "Gravel and Gold", Artist: "The Switchbacks", Album: "Altitude", Duration: 208, BPM: 132, Genre: "rock"},
	{ID: "vd-010", Title: "Soft Horizon", Artist: "Lumen Fields", Album: "Daybreak", Duration: 227, BPM: 80, Genre: "chill"},
	{ID: "vd-011", Title: "Night Market", Artist: "Velvet Units", Album: "After Dark", Duration: 185, BPM: 104, Genre: "jazz"},
	{ID: "vd-012", Title: "Summit Call", Artist: "Lumen Fields", Album: "Daybreak", Duration: 212, BPM: 118, Genre: "electronic"},
}

// RecommendMusicInput are the arguments of the recommendMusic tool.
type RecommendMusicInput struct {
	Mood   string `json:"mood,omitempty" jsonschema:"target mood, e.g. calm, energetic, focused"`
	Genre  string `json:"genre,omitempty" jsonschema:"preferred genre, e.g. chill, jazz, electronic"`
	MinBpm int    `json:"minBpm,omitempty" jsonschema:"lower bound of the tempo range"`
	MaxBpm int    `json:"maxBpm,omitempty" jsonschema:"upper bound of the tempo range"`
	Count  int    `json:"count,omitempty" jsonschema:"number of songs to return, 1-10, default 5"`
}

// RecommendMusic assembles a playlist from the library. Filters relax
// in order (genre, then tempo) until at least one song matches, so the
// tool never returns an empty recommendation.
func (c *Catalog) RecommendMusic(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in RecommendMusicInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding recommendMusic args: %w", err)
	}
	env, err := c.environment(sessionID)
	if err != nil {
		return nil, err
	}

	mood := in.Mood
	if mood == "" {
		mood = moodForEnvironment(env)
	}
	lo, hi := in.MinBpm, in.MaxBpm
	if lo == 0 && hi == 0 {
		lo, hi = bpmRangeForMood(mood)
	}
	if hi == 0 {
		hi = 200
	}

	count := in.Count
	if count < minRecommendCount || count > maxRecommendCount {
		count = defaultRecommendCount
	}

	songs := filterSongs(c.lib, in.Genre, lo, hi)
	if len(songs) == 0 {
		songs = filterSongs(c.lib, in.Genre, 0, 200)
	}
	if len(songs) == 0 {
		songs = filterSongs(c.lib, "", lo, hi)
	}
	if len(songs) == 0 {
		songs = c.lib
	}
	if len(songs) > count {
		songs = songs[:count]
	}

	rec := ambience.MusicRecommendation{
		Songs:    songs,
		Mood:     mood,
		Genre:    in.Genre,
		BpmRange: ambience.BpmRange{Min: lo, Max: hi},
	}
	c.logger.Debug("recommended playlist",
		"session_id", sessionID, "mood", mood, "songs", len(songs))
	return json.Marshal(rec)
}

// SearchMusicInput are the arguments of the searchMusic tool.
type SearchMusicInput struct {
	Query string `json:"query" jsonschema:"free-text search over title, artist and genre"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum candidates to return, default 5"`
}

// SearchMusic scans the library for matching tracks.
func (c *Catalog) SearchMusic(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in SearchMusicInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding searchMusic args: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return nil, fmt.Errorf("searchMusic: query is empty")
	}
	limit := in.Limit
	if limit <= 0 || limit > maxRecommendCount {
		limit = defaultRecommendCount
	}

	q := strings.ToLower(in.Query)
	var hits []ambience.Song
	for _, s := range c.lib {
		if strings.Contains(strings.ToLower(s.Title), q) ||
			strings.Contains(strings.ToLower(s.Artist), q) ||
			strings.Contains(strings.ToLower(s.Genre), q) {
			hits = append(hits, s)
			if len(hits) == limit {
				break
			}
		}
	}
	return json.Marshal(ambience.SearchResult{Query: in.Query, Candidates: hits})
}

// PlayMusicInput are the arguments of the playMusic tool.
type PlayMusicInput struct {
	SongID string `json:"songId,omitempty" jsonschema:"library ID of the song to play"`
	Title  string `json:"title,omitempty" jsonschema:"song title, used when songId is unknown"`
}

// PlayMusic resolves a track to a playable source.
func (c *Catalog) PlayMusic(ctx context.Context, sessionID string, args json.RawMessage) (json.RawMessage, error) {
	var in PlayMusicInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("decoding playMusic args: %w", err)
	}
	if in.SongID == "" && in.Title == "" {
		return nil, fmt.Errorf("playMusic: songId or title is required")
	}

	for _, s := range c.lib {
		if (in.SongID != "" && s.ID == in.SongID) ||
			(in.SongID == "" && strings.EqualFold(s.Title, in.Title)) {
			result := ambience.PlayResult{
				ID:       s.ID,
				Name:     s.Title,
				Artist:   s.Artist,
				URL:      "https://media.vibedrive.dev/tracks/" + s.ID,
				Duration: s.Duration,
				CoverURL: s.CoverURL,
			}
			c.logger.Debug("resolved playback", "session_id", sessionID, "song_id", s.ID)
			return json.Marshal(result)
		}
	}
	return nil, fmt.Errorf("playMusic: song %q not found", firstNonEmpty(in.SongID, in.Title))
}

// moodForEnvironment derives a default mood when the model omits one.
func moodForEnvironment(env ambience.Environment) string {
	switch {
	case env.NeedsSoothingAmbience():
		return "calm"
	case env.SuitsEnergeticAmbience():
		return "energetic"
	default:
		return "relaxed"
	}
}

// bpmRangeForMood maps a mood word to a tempo band.
func bpmRangeForMood(mood string) (int, int) {
	switch strings.ToLower(mood) {
	case "calm", "soothing", "relaxed":
		return 60, 100
	case "energetic", "upbeat", "excited":
		return 110, 160
	default:
		return 70, 130
	}
}

func filterSongs(lib []ambience.Song, genre string, lo, hi int) []ambience.Song {
	var out []ambience.Song
	for _, s := range lib {
		if genre != "" && !strings.EqualFold(s.Genre, genre) {
			continue
		}
		if s.BPM < lo || s.BPM > hi {
			continue
		}
		out = append(out, s)
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
