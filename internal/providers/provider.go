// Package providers wraps the external text generation APIs behind one call shape
package providers

import (
	"context"
	"net/http"
	"time"
)

// Identifiers of the supported adapters, in default preference order
const (
	IDGoogle      = "google"
	IDOpenAI      = "openai"
	IDAnthropic   = "anthropic"
	IDHuggingFace = "huggingface"
	IDOpenRouter  = "openrouter"
	IDXAI         = "xai"
	IDOllama      = "ollama"
	IDStub        = "stub"
)

// PreferenceOrder is the order in which a default adapter is chosen
var PreferenceOrder = []string{
	IDGoogle,
	IDOpenAI,
	IDAnthropic,
	IDHuggingFace,
	IDOpenRouter,
	IDXAI,
	IDOllama,
	IDStub,
}

const (
	defaultTimeout     = 30 * time.Second
	ollamaTimeout      = 60 * time.Second
	healthCheckTimeout = 5 * time.Second

	defaultMaxTokens   = 1000
	defaultTemperature = 0.7

	userAgent = "LifeCompass-Backend/1.0"
)

// Adapter is one text generation backend.
//
// The set of adapters is closed: only the variants in this package
// implement it. GenerateText never panics; every failure is reported
// through the returned GenerationResult.
type Adapter interface {
	ID() string
	Name() string
	IsConfigured(ctx context.Context) bool
	GenerateText(ctx context.Context, prompt string) GenerationResult

	sealed()
}

// GenerationResult is the uniform outcome of a GenerateText call
type GenerationResult struct {
	Success      bool                   `json:"success"`
	Text         string                 `json:"text,omitempty"`
	ErrorMessage string                 `json:"error,omitempty"`
	Provider     string                 `json:"provider"`
	Usage        map[string]interface{} `json:"usage,omitempty"`
	Fallback     bool                   `json:"fallback,omitempty"`
}

// Succeeded builds a successful result. An empty text is reported as a
// failure so that a successful result always carries text.
func Succeeded(provider, text string, usage map[string]interface{}) GenerationResult {
	if text == "" {
		return Failed(provider, "empty response text")
	}
	return GenerationResult{
		Success:  true,
		Text:     text,
		Provider: provider,
		Usage:    usage,
	}
}

// Failed builds a failed result
func Failed(provider, message string) GenerationResult {
	if message == "" {
		message = "unknown error"
	}
	return GenerationResult{
		Success:      false,
		ErrorMessage: message,
		Provider:     provider,
	}
}

// Option customises an HTTP backed adapter
type Option func(*options)

type options struct {
	client  *http.Client
	timeout time.Duration
}

// WithHTTPClient replaces the adapter's HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTimeout overrides the adapter's request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func buildOptions(timeout time.Duration, opts []Option) options {
	o := options{timeout: timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: o.timeout}
	}
	return o
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
