package orchestration

import (
	"sync"

	"github.com/vibedrive/vibedrive/internal/ambience"
)

// EnvRegistry maps sessions to their latest environment snapshot. Tool
// handlers resolve the snapshot through this registry using the session
// ID they receive explicitly with every call.
//
// Constructed once at startup and injected wherever needed; there is no
// package-level instance.
type EnvRegistry struct {
	mu   sync.RWMutex
	envs map[string]ambience.Environment
}

// NewEnvRegistry creates an empty registry.
func NewEnvRegistry() *EnvRegistry {
	return &EnvRegistry{envs: make(map[string]ambience.Environment)}
}

// Register stores the snapshot a session's run works against,
// replacing any previous one.
func (r *EnvRegistry) Register(sessionID string, env ambience.Environment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs[sessionID] = env
}

// Environment implements tools.EnvLookup.
func (r *EnvRegistry) Environment(sessionID string) (ambience.Environment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	env, ok := r.envs[sessionID]
	return env, ok
}

// Remove drops a session's snapshot.
func (r *EnvRegistry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.envs, sessionID)
}
