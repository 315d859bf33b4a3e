// internal/app/features/health/handler.go
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler reports whether the service can reach MongoDB. The metadata
// source is reported but never fails the check: actions that need it
// degrade to upstream errors on their own.
type Handler struct {
	Client *mongo.Client
	Log    *zap.Logger

	// MetadataEnabled is false when no TMDB credential is configured.
	MetadataEnabled bool

	started time.Time
}

// NewHandler constructs a health Handler.
func NewHandler(client *mongo.Client, metadataEnabled bool, logger *zap.Logger) *Handler {
	return &Handler{
		Client:          client,
		Log:             logger,
		MetadataEnabled: metadataEnabled,
		started:         time.Now(),
	}
}

// Report is the JSON body of GET /health.
type Report struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	Metadata      string `json:"metadata"`
	PingMS        int64  `json:"ping_ms"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Error         string `json:"error,omitempty"`
}

// Check pings the primary and builds the report. ok is false when the
// database is unreachable.
func (h *Handler) Check(ctx context.Context) (rep Report, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	rep = Report{
		Status:        "ok",
		Database:      "connected",
		Metadata:      "disabled",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.MetadataEnabled {
		rep.Metadata = "configured"
	}

	start := time.Now()
	err := h.Client.Ping(ctx, readpref.Primary())
	rep.PingMS = time.Since(start).Milliseconds()
	if err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		rep.Status = "error"
		rep.Database = "disconnected"
		rep.Error = "Database unavailable"
		return rep, false
	}
	return rep, true
}

// Serve handles GET /health: 200 with the report, or 503 when the
// database cannot be pinged.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(rep)
}

// Probe handles HEAD /health for load balancers that only read the status.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Check(r.Context()); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
