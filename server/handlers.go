// Package server exposes the HTTP API handlers.
package server

import (
	"context"

	"github.com/onnwee/tempvoice/db"
	"github.com/onnwee/tempvoice/lifecycle"
	"github.com/onnwee/tempvoice/registry"
)

// History reads recent journal events.
type History interface {
	Recent(ctx context.Context, limit int) ([]db.Event, error)
	Ping(ctx context.Context) error
}

// Sweeper runs an on-demand sweep of tracked channels.
type Sweeper interface {
	Sweep(ctx context.Context) lifecycle.Report
}

// Deps are the collaborators the HTTP handlers read from. Registry and Ready
// are required; History and Sweeper may be nil.
type Deps struct {
	Registry   *registry.Registry
	Ready      func() bool
	History    History
	Sweeper    Sweeper
	AdminToken string
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	if deps.Ready == nil {
		deps.Ready = func() bool { return true }
	}
	if deps.Registry == nil {
		deps.Registry = registry.New()
	}
	return &Handlers{deps: deps}
}
