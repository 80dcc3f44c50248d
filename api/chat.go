package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vibedrive/vibedrive/internal/log"
	"github.com/vibedrive/vibedrive/internal/orchestration"
)

// ChatHandler handles the master dialog endpoint.
//
// POST /api/chat streams the assistant reply over SSE. Finished
// background-run outcomes queued for the session are injected into the
// model's context by the master service before the turn runs.
type ChatHandler struct {
	master *orchestration.MasterService
	logger log.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(master *orchestration.MasterService, logger log.Logger) *ChatHandler {
	return &ChatHandler{master: master, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
}

// ChatRequest is the request body for a master dialog turn.
type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleChat runs one master dialog turn and streams the reply.
//
// Response: Server-Sent Events stream
//
// Event types:
//   - chunk: partial text {"text": "..."}
//   - done:  final reply {"response": "...", "sessionId": "..."}
//   - error: turn failed {"code": "...", "message": "..."}
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" {
		h.writeSSEError(w, flusher, "MISSING_SESSION_ID", "sessionId is required")
		return
	}
	if req.Message == "" {
		h.writeSSEError(w, flusher, "MISSING_MESSAGE", "message is required")
		return
	}

	ctx := r.Context()
	h.logger.Info("chat turn started", "session_id", req.SessionID)

	reply, err := h.master.ChatStream(ctx, req.SessionID, req.Message, func(text string) {
		h.writeSSEChunk(w, flusher, text)
	})
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "error", err)
		h.writeSSEError(w, flusher, "CHAT_ERROR", err.Error())
		return
	}

	h.writeSSEDone(w, flusher, reply, req.SessionID)
	h.logger.Info("chat turn completed",
		"session_id", req.SessionID, "responseLen", len(reply))
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, response, sessionID string) {
	data, _ := json.Marshal(SSEDoneData{Response: response, SessionID: sessionID})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
