// internal/app/features/api/handler.go
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auditlog"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
	"github.com/dalemusser/cineshelf/internal/app/system/metrics"
	"github.com/dalemusser/cineshelf/internal/app/system/rpc"
	"go.uber.org/zap"
)

// LegacyResolver resolves the deprecated `user` body field to a principal,
// creating the user on first use.
type LegacyResolver interface {
	FetchLegacy(ctx context.Context, username string) (*auth.Principal, error)
}

// Handler is the single action endpoint: it decodes the envelope, finds
// the caller, dispatches and writes the uniform response.
type Handler struct {
	Registry *rpc.Registry
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	// Legacy is consulted only when no token principal is present.
	// Nil disables the `user` field.
	Legacy LegacyResolver
}

// NewHandler constructs the API handler. legacy may be nil.
func NewHandler(reg *rpc.Registry, legacy LegacyResolver, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Registry: reg,
		Metrics:  m,
		Log:      logger,
		Legacy:   legacy,
	}
}

// Serve handles POST /api.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	req, legacyUser, err := rpc.ReadRequest(r)
	if err != nil {
		h.finish(w, req.Action, nil, err, start)
		return
	}

	ctx := auditlog.WithRequest(r.Context(), r)
	p, ok := auth.CurrentPrincipal(ctx)
	if !ok {
		p = h.legacyPrincipal(ctx, legacyUser)
	}

	data, err := h.Registry.Dispatch(ctx, p, req)
	h.finish(w, req.Action, data, err, start)
}

func (h *Handler) legacyPrincipal(ctx context.Context, username string) *auth.Principal {
	if h.Legacy == nil || username == "" {
		return nil
	}
	p, err := h.Legacy.FetchLegacy(ctx, username)
	if err != nil {
		h.Log.Warn("legacy user lookup failed", zap.String("user", username), zap.Error(err))
		return nil
	}
	return p
}

func (h *Handler) finish(w http.ResponseWriter, action string, data any, err error, start time.Time) {
	label := action
	if !h.Registry.Has(action) {
		// Client-supplied names never become label values.
		label = "unknown"
	}
	if err == nil {
		h.Metrics.ObserveAction(label, "ok", time.Since(start))
		rpc.Write(w, rpc.Success(data))
		return
	}

	env, internal := rpc.Failure(err)
	if internal {
		h.Log.Error("action failed", zap.String("action", action), zap.Error(err))
	}
	h.Metrics.ObserveAction(label, string(apperr.KindOf(err)), time.Since(start))
	rpc.Write(w, env)
}
