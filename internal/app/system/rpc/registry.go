// internal/app/system/rpc/registry.go
package rpc

import (
	"context"
	"fmt"
	"sort"

	"github.com/dalemusser/cineshelf/internal/app/system/apperr"
	"github.com/dalemusser/cineshelf/internal/app/system/auth"
)

// Handler runs one action for an authenticated principal. The returned value
// becomes the envelope's data on success.
type Handler func(ctx context.Context, p *auth.Principal, req Request) (any, error)

// Registrar is implemented by feature services that expose actions.
type Registrar interface {
	Register(reg *Registry)
}

// Registry maps action names to handlers.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry and registers each of rs into it.
func NewRegistry(rs ...Registrar) *Registry {
	reg := &Registry{handlers: make(map[string]Handler)}
	for _, r := range rs {
		r.Register(reg)
	}
	return reg
}

// Handle registers h under name. Registering the same name twice panics,
// since it can only be a wiring mistake.
func (r *Registry) Handle(name string, h Handler) {
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("rpc: action %q registered twice", name))
	}
	r.handlers[name] = h
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch routes req to its handler. A missing action is reported before
// authentication, an unknown one after.
func (r *Registry) Dispatch(ctx context.Context, p *auth.Principal, req Request) (any, error) {
	if req.Action == "" {
		return nil, apperr.Validation("Action required")
	}
	if p == nil {
		return nil, apperr.Authorization("Authentication required")
	}
	h, ok := r.handlers[req.Action]
	if !ok {
		return nil, apperr.Validation("Unknown action: %s", req.Action)
	}
	return h(ctx, p, req)
}
