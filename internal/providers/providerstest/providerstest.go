// Package providerstest provides scripted adapters for exercising the
// registry, the router and the HTTP handlers without real backends.
package providerstest

import (
	"context"
	"sync/atomic"

	"github.com/lifecompass/backend/internal/providers"
)

// Adapter wraps providers.Stub with a scripted failure, an optional
// unconfigured state and a call counter.
type Adapter struct {
	*providers.Stub
	failure      string
	unconfigured bool
	calls        atomic.Int64
}

// New returns an adapter that always succeeds with reply
func New(id, reply string) *Adapter {
	return &Adapter{Stub: providers.NewStub(id, reply)}
}

// Failing returns an adapter that always fails with message
func Failing(id, message string) *Adapter {
	if message == "" {
		message = "stub failure"
	}
	return &Adapter{Stub: providers.NewStub(id, ""), failure: message}
}

// Unconfigured makes the adapter report itself as not configured
func (a *Adapter) Unconfigured() *Adapter {
	a.unconfigured = true
	return a
}

// Calls reports how many times GenerateText ran
func (a *Adapter) Calls() int64 {
	return a.calls.Load()
}

func (a *Adapter) IsConfigured(ctx context.Context) bool {
	return !a.unconfigured
}

func (a *Adapter) GenerateText(ctx context.Context, prompt string) providers.GenerationResult {
	a.calls.Add(1)
	if a.failure != "" && ctx.Err() == nil {
		return providers.Failed(a.ID(), a.failure)
	}
	return a.Stub.GenerateText(ctx, prompt)
}
