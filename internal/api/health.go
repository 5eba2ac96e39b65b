// Package api provides HTTP handlers for the commitlens REST API.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/commitlens/commitlens/internal/events"
	"github.com/commitlens/commitlens/internal/store"
)

// HealthHandler provides the health endpoint.
type HealthHandler struct {
	db        *store.DB
	nats      *events.Client
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *store.DB, natsClient *events.Client) *HealthHandler {
	return &HealthHandler{
		db:        db,
		nats:      natsClient,
		startTime: time.Now(),
	}
}

// Health returns the service health status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus := "connected"
	if err := h.db.HealthCheck(ctx); err != nil {
		dbStatus = "disconnected"
	}

	natsStatus := "disconnected"
	if h.nats != nil && h.nats.IsConnected() {
		natsStatus = "connected"
	}

	status := "healthy"
	if dbStatus == "disconnected" {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         status,
		"database":       dbStatus,
		"nats":           natsStatus,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the standard error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"status":  "error",
		"message": message,
	})
}

// writeSuccess writes the standard success envelope with extra fields merged in.
func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}
