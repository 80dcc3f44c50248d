package tools

import (
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/llm"
	"github.com/vibedrive/vibedrive/internal/log"
)

// ErrNoEnvironment indicates a tool ran for a session that never
// registered an environment snapshot.
var ErrNoEnvironment = errors.New("no environment for session")

// EnvLookup resolves the environment snapshot a session is running
// against. Implemented by the orchestration layer.
type EnvLookup interface {
	Environment(sessionID string) (ambience.Environment, bool)
}

// Catalog builds the tool definitions handed to the model session.
type Catalog struct {
	envs   EnvLookup
	lib    []ambience.Song
	logger log.Logger
}

// NewCatalog creates a catalog backed by the built-in song library.
func NewCatalog(envs EnvLookup, logger log.Logger) *Catalog {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Catalog{envs: envs, lib: songLibrary, logger: logger}
}

// Definitions returns all tool definitions. Schema derivation from the
// input structs is infallible for these fixed types, so any error here
// is a programming bug surfaced at startup.
func (c *Catalog) Definitions() ([]llm.ToolDefinition, error) {
	recommendSchema, err := jsonschema.For[RecommendMusicInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for recommendMusic: %w", err)
	}
	searchSchema, err := jsonschema.For[SearchMusicInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for searchMusic: %w", err)
	}
	playSchema, err := jsonschema.For[PlayMusicInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for playMusic: %w", err)
	}
	lightSchema, err := jsonschema.For[SetLightInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for setLight: %w", err)
	}
	narrativeSchema, err := jsonschema.For[GenerateNarrativeInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for generateNarrative: %w", err)
	}
	scentSchema, err := jsonschema.For[SetScentInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for setScent: %w", err)
	}
	massageSchema, err := jsonschema.For[SetMassageInput](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for setMassage: %w", err)
	}

	return []llm.ToolDefinition{
		{
			Name:        "recommendMusic",
			Description: "Recommend a playlist (1-10 songs) matching the driving mood, genre and tempo range.",
			Schema:      recommendSchema,
			Handler:     c.RecommendMusic,
		},
		{
			Name:        "searchMusic",
			Description: "Search the music catalog by title, artist or genre. Informational only.",
			Schema:      searchSchema,
			Handler:     c.SearchMusic,
		},
		{
			Name:        "playMusic",
			Description: "Resolve a song to a playable track and start playback.",
			Schema:      playSchema,
			Handler:     c.PlayMusic,
		},
		{
			Name:        "setLight",
			Description: "Set the cabin ambient lighting color, brightness and animation mode.",
			Schema:      lightSchema,
			Handler:     c.SetLight,
		},
		{
			Name:        "generateNarrative",
			Description: "Compose the short spoken narration describing the ambience (max 500 characters).",
			Schema:      narrativeSchema,
			Handler:     c.GenerateNarrative,
		},
		{
			Name:        "setScent",
			Description: "Select the scent diffuser cartridge and intensity (0-10).",
			Schema:      scentSchema,
			Handler:     c.SetScent,
		},
		{
			Name:        "setMassage",
			Description: "Configure the driver seat massage program, intensity (1-5) and zones.",
			Schema:      massageSchema,
			Handler:     c.SetMassage,
		},
	}, nil
}

// environment fetches the snapshot for a session or fails the tool.
func (c *Catalog) environment(sessionID string) (ambience.Environment, error) {
	env, ok := c.envs.Environment(sessionID)
	if !ok {
		return ambience.Environment{}, fmt.Errorf("%w: %s", ErrNoEnvironment, sessionID)
	}
	return env, nil
}
