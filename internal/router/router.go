// Package router dispatches prompts to a provider adapter with a single
// fallback to the default adapter
package router

import (
	"context"
	"time"

	"github.com/lifecompass/backend/internal/providers"
	"github.com/lifecompass/backend/pkg/utils"
)

// NoProviderID is the provider reported when the registry is empty
const NoProviderID = "none"

// NoProviderMessage is returned when no adapter is configured
const NoProviderMessage = "No AI provider configured. Please set up at least one AI API key."

// Router routes generation requests over a provider registry
type Router struct {
	registry *providers.Registry
	logger   *utils.Logger
	stats    *stats
}

// New creates a router over registry
func New(registry *providers.Registry, logger *utils.Logger) *Router {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Router{
		registry: registry,
		logger:   logger,
		stats:    newStats(),
	}
}

// Registry returns the registry the router dispatches over
func (r *Router) Registry() *providers.Registry {
	return r.registry
}

// Available reports whether at least one adapter is configured
func (r *Router) Available() bool {
	return r.registry != nil && r.registry.Len() > 0
}

// Generate sends prompt to the adapter named by explicitID (or the default).
// When an explicitly requested adapter fails, the default adapter is tried
// once if it is a different adapter; a successful retry is marked Fallback.
// Otherwise the first failure is returned unchanged.
func (r *Router) Generate(ctx context.Context, prompt, explicitID string) providers.GenerationResult {
	if !r.Available() {
		return providers.Failed(NoProviderID, NoProviderMessage)
	}

	adapter := r.registry.Get(explicitID)
	result := r.call(ctx, adapter, prompt)
	if result.Success || explicitID == "" {
		return result
	}

	fallback := r.registry.Default()
	if fallback == nil || fallback.ID() == adapter.ID() {
		return result
	}

	r.logger.WithProvider(adapter.ID()).
		WithField("fallback_provider", fallback.ID()).
		WithField("error", result.ErrorMessage).
		Warn("Provider failed, retrying with default provider")

	retry := r.call(ctx, fallback, prompt)
	if !retry.Success {
		return result
	}

	retry.Fallback = true
	r.stats.recordFallback(fallback.ID())
	return retry
}

// call runs one adapter invocation and records its outcome
func (r *Router) call(ctx context.Context, adapter providers.Adapter, prompt string) providers.GenerationResult {
	id := adapter.ID()
	r.logger.LogProviderCall(ctx, id, adapter.Name())

	start := time.Now()
	result := adapter.GenerateText(ctx, prompt)
	latency := time.Since(start)

	r.stats.record(id, result, latency)
	r.logger.LogProviderResult(ctx, id, result.Success, latency, result.ErrorMessage)
	return result
}

// Stats returns a copy of the per-provider call statistics
func (r *Router) Stats() Snapshot {
	return r.stats.snapshot()
}
