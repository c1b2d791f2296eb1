package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/ports/driving"
	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/logger"
)

// Handler implements the status endpoints.
type Handler struct {
	status  driving.StatusProvider
	version string
	now     func() time.Time
}

// NewHandler creates a Handler reading from status.
func NewHandler(status driving.StatusProvider, version string) *Handler {
	return &Handler{status: status, version: version, now: time.Now}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	// Health is "ok" until a pass ends abandoned or failed, then "degraded".
	Health     string             `json:"health"`
	LastPass   *domain.PassReport `json:"last_pass"`
	Watermarks domain.Watermarks  `json:"watermarks"`
	Time       time.Time          `json:"time"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	marks, err := h.status.Watermarks(r.Context())
	if err != nil {
		logger.Error("status: reading watermarks", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Watermarks unavailable")
		return
	}
	if marks == nil {
		marks = domain.Watermarks{}
	}

	resp := StatusResponse{
		Health:     "ok",
		LastPass:   h.status.LastReport(),
		Watermarks: marks,
		Time:       h.now().UTC(),
	}
	if resp.LastPass != nil && resp.LastPass.Status != domain.PassCompleted {
		resp.Health = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
