package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vibedrive/vibedrive/internal/ambience"
	"github.com/vibedrive/vibedrive/internal/history"
	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/orchestration"
	"github.com/vibedrive/vibedrive/internal/simulator"
)

// Plan listing limits.
const (
	DefaultPlanLimit = 20
	MaxPlanLimit     = 100
)

// VibeHandler handles the ambience run endpoints.
type VibeHandler struct {
	runCtx context.Context
	tasks  *orchestration.TaskManager
	store  history.Store
	sim    *simulator.Simulator
	logger log.Logger
}

// NewVibeHandler creates a new vibe handler. runCtx scopes started
// background runs to the process rather than the request that started
// them; a nil runCtx falls back to context.Background().
func NewVibeHandler(runCtx context.Context, tasks *orchestration.TaskManager, store history.Store, logger log.Logger) *VibeHandler {
	if runCtx == nil {
		runCtx = context.Background()
	}
	return &VibeHandler{runCtx: runCtx, tasks: tasks, store: store, sim: simulator.New(), logger: logger}
}

// RegisterRoutes registers vibe routes on the given mux.
func (h *VibeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/vibe/analyze", h.analyze)
	mux.HandleFunc("POST /api/vibe/simulate", h.simulate)
	mux.HandleFunc("POST /api/vibe/cancel", h.cancel)
	mux.HandleFunc("GET /api/vibe/status", h.status)
	mux.HandleFunc("GET /api/vibe/messages", h.messages)
	mux.HandleFunc("GET /api/vibe/plans", h.plans)
}

// AnalyzeRequest is the request body for starting an ambience run.
type AnalyzeRequest struct {
	SessionID   string               `json:"sessionId"`
	Environment ambience.Environment `json:"environment"`
}

// analyze starts a background ambience run for the submitted
// environment snapshot, superseding any run already in flight for the
// session, and returns 202 with the new task ID.
//
// The run is scoped to the handler's run context, not the request: the
// whole point is that it outlives this HTTP exchange.
func (h *VibeHandler) analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	env, err := ambience.NewEnvironment(req.Environment)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ENVIRONMENT", err.Error())
		return
	}

	taskID := h.tasks.StartTask(h.runCtx, req.SessionID, env)
	h.logger.Info("ambience run accepted",
		"session_id", req.SessionID, "task_id", taskID, "speed", env.Speed)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"taskId":    taskID,
		"sessionId": req.SessionID,
	})
}

// SimulateRequest is the request body for starting a simulated run.
type SimulateRequest struct {
	SessionID string `json:"sessionId"`
	Scenario  string `json:"scenario"` // LATE_NIGHT_RETURN, WEEKEND_FAMILY_TRIP, MORNING_COMMUTE or RANDOM (default)
}

// simulate synthesizes an environment for the requested scenario and
// feeds it through the same run pipeline as analyze. Demo endpoint for
// driving the system without a vehicle gateway.
func (h *VibeHandler) simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	scenario, err := simulator.ParseScenario(req.Scenario)
	if err != nil {
		writeError(w, http.StatusBadRequest, "UNKNOWN_SCENARIO", err.Error())
		return
	}
	env, err := h.sim.Generate(scenario)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SIMULATOR_ERROR", err.Error())
		return
	}

	taskID := h.tasks.StartTask(h.runCtx, req.SessionID, env)
	h.logger.Info("simulated ambience run accepted",
		"session_id", req.SessionID, "task_id", taskID, "scenario", scenario)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"taskId":      taskID,
		"sessionId":   req.SessionID,
		"scenario":    scenario,
		"environment": env,
	})
}

// CancelRequest is the request body for cancelling an ambience run.
type CancelRequest struct {
	SessionID string `json:"sessionId"`
}

// cancel stops the in-flight run for a session, if any.
func (h *VibeHandler) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	cancelled := h.tasks.CancelTask(req.SessionID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

// status reports whether a run is in flight for a session.
func (h *VibeHandler) status(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	resp := map[string]any{"running": h.tasks.IsRunning(sessionID)}
	if taskID, ok := h.tasks.CurrentTaskID(sessionID); ok {
		resp["taskId"] = taskID
	}
	writeJSON(w, http.StatusOK, resp)
}

// OutcomeMessage is the wire form of one mailbox message.
type OutcomeMessage struct {
	Kind   string                 `json:"kind"` // success, failed or cancelled
	TaskID string                 `json:"taskId"`
	Plan   *ambience.AmbiencePlan `json:"plan,omitempty"`
	Reason string                 `json:"reason,omitempty"`
	At     time.Time              `json:"at"`
}

// messages drains the session mailbox: each finished-run outcome is
// delivered exactly once, in completion order.
func (h *VibeHandler) messages(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}

	drained := h.tasks.PollMailbox(sessionID)
	out := make([]OutcomeMessage, 0, len(drained))
	for _, msg := range drained {
		switch v := msg.(type) {
		case orchestration.Success:
			plan := v.Plan
			out = append(out, OutcomeMessage{Kind: "success", TaskID: v.TaskID, Plan: &plan, At: v.At})
		case orchestration.Failed:
			out = append(out, OutcomeMessage{Kind: "failed", TaskID: v.TaskID, Reason: v.Reason, At: v.At})
		case orchestration.Cancelled:
			out = append(out, OutcomeMessage{Kind: "cancelled", TaskID: v.TaskID, At: v.At})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": out, "total": len(out)})
}

// plans lists the most recent persisted ambience plans for a session,
// newest first.
func (h *VibeHandler) plans(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	limit := parseIntParam(r, "limit", DefaultPlanLimit, 1, MaxPlanLimit)

	records, err := h.store.ListPlans(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("failed to list plans", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list plans")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": records, "total": len(records)})
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
