package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/yourusername/tttengine/pkg/engine"
)

// RolloutSSE handles Server-Sent Events for streaming rollout progress.
// GET /api/rollout/stream?position=...&trials=...&x=...&o=...
func (h *Handlers) RolloutSSE(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	query := r.URL.Query()
	req := RolloutRequest{
		Position: query.Get("position"),
		Trials:   parseIntParam(query.Get("trials"), 0),
		Workers:  parseIntParam(query.Get("workers"), 0),
		Seed:     int64(parseIntParam(query.Get("seed"), 0)),
		X:        query.Get("x"),
		O:        query.Get("o"),
	}

	gs, opts, err := rolloutRequest(req)
	if err != nil {
		writeSSEError(w, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeSSEError(w, "streaming not supported")
		return
	}

	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeSSEError(w, "server busy")
			return
		}
		defer h.pool.ReleaseSlow()
	}

	// Callbacks come from the aggregating goroutine only
	callback := func(p engine.RolloutProgress) {
		writeSSEEvent(w, "progress", WSRolloutProgress{
			TrialsCompleted: p.TrialsCompleted,
			TrialsTotal:     p.TrialsTotal,
			Percent:         p.Percent,
			CurrentScore:    p.CurrentScore,
			CurrentCI:       p.CurrentCI,
		})
		flusher.Flush()
	}

	result, err := h.engine.RolloutWithProgress(gs, opts, callback)
	if err != nil {
		writeSSEError(w, "rollout failed: "+err.Error())
		return
	}

	writeSSEEvent(w, "result", RolloutToResponse(result, opts))
	flusher.Flush()

	// Send done event to signal completion
	writeSSEEvent(w, "done", nil)
	flusher.Flush()
}

// writeSSEEvent writes a Server-Sent Event to the response.
func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	fmt.Fprintf(w, "event: %s\n", event)
	if data != nil {
		jsonData, _ := json.Marshal(data)
		fmt.Fprintf(w, "data: %s\n", jsonData)
	}
	fmt.Fprintf(w, "\n")
}

// writeSSEError writes an error event and closes the stream.
func writeSSEError(w http.ResponseWriter, message string) {
	writeSSEEvent(w, "error", map[string]string{"error": message})
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// parseIntParam parses an integer from a string with a default value.
func parseIntParam(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}
