package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"snake-pit/internal/control"
	"snake-pit/internal/game"
)

const maxBodyBytes = 1 << 10

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.GetSnapshot()
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"tick":   snap.Tick,
		"game":   snap.Status,
	})
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.GetSnapshot())
}

func (h *routerHandlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Settings())
}

// handleGetRuns lists finished runs: ?order=top|recent (default top), ?limit=N (default 10, max 100)
func (h *routerHandlers) handleGetRuns(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, 100)
	}

	history := h.engine.History()
	var runs []game.RunRecord
	switch order := r.URL.Query().Get("order"); order {
	case "", "top":
		runs = history.Top(limit)
	case "recent":
		runs = history.Recent(limit)
	default:
		writeError(w, "order must be top or recent", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"runs":  runs,
		"best":  history.Best(),
		"total": history.Total(),
	})
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "Rendering is not enabled", http.StatusNotFound)
		return
	}

	start := time.Now()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.RenderPNG(w, h.engine.GetSnapshot()); err != nil {
		log.Printf("⚠️ Frame render failed: %v", err)
		return
	}
	RecordRender(time.Since(start))
}

func (h *routerHandlers) handleDirection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	dir, err := control.ParseDirection(req.Direction)
	if err != nil {
		RecordCommand("http", "invalid")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.apply(w, r, control.Command{Kind: control.KindDirection, Direction: dir})
}

func (h *routerHandlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	cmd, err := control.ParseCommand(req.Command)
	if err != nil {
		RecordCommand("http", "invalid")
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.apply(w, r, cmd)
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, control.Command{Kind: control.KindReset})
}

// apply runs cmd for the requesting client and writes the result
func (h *routerHandlers) apply(w http.ResponseWriter, r *http.Request, cmd control.Command) {
	source := "http:" + GetClientIP(r)

	if err := h.commands.Apply(source, cmd); err != nil {
		status := commandErrorStatus(err)
		RecordCommand("http", commandResult(err))
		writeError(w, err.Error(), status)
		return
	}
	RecordCommand("http", "accepted")

	resp := map[string]interface{}{
		"accepted": true,
		"command":  cmd.Kind.String(),
	}
	if cmd.Kind == control.KindDirection {
		resp["direction"] = cmd.Direction
	} else {
		RecordReset()
		resp["state"] = h.engine.GetSnapshot()
	}
	writeJSON(w, resp)
}

func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, control.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, control.ErrRejected):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func commandResult(err error) string {
	switch {
	case errors.Is(err, control.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, control.ErrRejected):
		return "rejected"
	default:
		return "invalid"
	}
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
