// Package handler contains the HTTP request handlers of the user service.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers hold no business rules. Domain errors coming back from the
// service are translated to status codes in one place, WriteError.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// pingTimeout bounds the database check of one health request.
const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

// HandleHealth pings the database.
//
// HTTP: GET /healthz
// 200 {"status":"ok","database":"up"} or 503 {"status":"unavailable","database":"down"}
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}
