package providers

import (
	"context"

	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// Registry is the process-lifetime catalog of usable adapters.
// It is built once and never mutated, so concurrent reads need no locking.
type Registry struct {
	adapters  map[string]Adapter
	order     []string
	defaultID string
}

// ProviderStatus describes one configured adapter
type ProviderStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Status is a read-only snapshot of the registry
type Status struct {
	Configured      []ProviderStatus `json:"configured_providers"`
	Available       []string         `json:"available_providers"`
	Primary         string           `json:"primary_provider"`
	TotalConfigured int              `json:"total_configured"`
}

// NewRegistry keeps the candidates that report themselves configured and
// picks the default: override when it names a kept adapter, otherwise the
// first kept candidate.
func NewRegistry(ctx context.Context, candidates []Adapter, override string, logger *utils.Logger) *Registry {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	r := &Registry{adapters: make(map[string]Adapter, len(candidates))}
	for _, adapter := range candidates {
		if adapter == nil {
			continue
		}
		id := adapter.ID()
		if _, exists := r.adapters[id]; exists {
			logger.WithProvider(id).Warn("Duplicate provider ignored")
			continue
		}
		if !adapter.IsConfigured(ctx) {
			logger.WithProvider(id).Debug("Provider not configured, skipping")
			continue
		}
		r.adapters[id] = adapter
		r.order = append(r.order, id)
		logger.WithProvider(id).WithField("name", adapter.Name()).Info("Provider registered")
	}

	switch {
	case override != "" && r.adapters[override] != nil:
		r.defaultID = override
	case len(r.order) > 0:
		if override != "" {
			logger.WithProvider(override).Warn("Primary provider is not configured, using first available")
		}
		r.defaultID = r.order[0]
	default:
		logger.Warn("No AI provider configured")
	}

	if r.defaultID != "" {
		logger.WithProvider(r.defaultID).Info("Default provider selected")
	}
	return r
}

// NewRegistryFromConfig builds every adapter the configuration mentions, in
// preference order, and keeps those that are usable. Adapters without a
// key are never instantiated; Ollama is always checked.
func NewRegistryFromConfig(ctx context.Context, cfg *types.ProvidersConfig, logger *utils.Logger) *Registry {
	var candidates []Adapter

	if cfg.Google.APIKey != "" {
		candidates = append(candidates, NewGemini(ctx, cfg.Google))
	}
	if cfg.OpenAI.APIKey != "" {
		candidates = append(candidates, NewOpenAI(cfg.OpenAI))
	}
	if cfg.Anthropic.APIKey != "" {
		candidates = append(candidates, NewAnthropic(cfg.Anthropic))
	}
	if cfg.HuggingFace.APIKey != "" {
		candidates = append(candidates, NewHuggingFace(cfg.HuggingFace))
	}
	if cfg.OpenRouter.APIKey != "" {
		candidates = append(candidates, NewOpenRouter(cfg.OpenRouter))
	}
	if cfg.XAI.APIKey != "" {
		candidates = append(candidates, NewXAI(cfg.XAI))
	}
	candidates = append(candidates, NewOllama(cfg.Ollama))
	if cfg.Stub.Enabled {
		candidates = append(candidates, NewStub(IDStub, cfg.Stub.Reply))
	}

	return NewRegistry(ctx, candidates, cfg.Primary, logger)
}

// Get returns the named adapter if present, else the default, else nil
func (r *Registry) Get(id string) Adapter {
	if adapter, ok := r.adapters[id]; ok {
		return adapter
	}
	return r.Default()
}

// Lookup returns the named adapter without falling back to the default
func (r *Registry) Lookup(id string) (Adapter, bool) {
	adapter, ok := r.adapters[id]
	return adapter, ok
}

// Default returns the default adapter or nil when none is configured
func (r *Registry) Default() Adapter {
	if r.defaultID == "" {
		return nil
	}
	return r.adapters[r.defaultID]
}

// DefaultID returns the default adapter's identifier ("" when none)
func (r *Registry) DefaultID() string {
	return r.defaultID
}

// IDs returns the configured identifiers in preference order
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of configured adapters
func (r *Registry) Len() int {
	return len(r.order)
}

// Status returns a snapshot of the configured adapters
func (r *Registry) Status() Status {
	status := Status{
		Configured: make([]ProviderStatus, 0, len(r.order)),
		Available:  append([]string(nil), PreferenceOrder...),
		Primary:    r.defaultID,
	}
	for _, id := range r.order {
		status.Configured = append(status.Configured, ProviderStatus{
			ID:     id,
			Name:   r.adapters[id].Name(),
			Status: "ready",
		})
	}
	status.TotalConfigured = len(status.Configured)
	return status
}
