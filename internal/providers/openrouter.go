package providers

import (
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter proxies many hosted models through one chat completions API
type OpenRouter struct {
	chatCompletions
}

// NewOpenRouter creates the OpenRouter adapter
func NewOpenRouter(cfg types.ProviderConfig, opts ...Option) *OpenRouter {
	o := buildOptions(defaultTimeout, opts)
	return &OpenRouter{chatCompletions{
		id:      IDOpenRouter,
		label:   "OpenRouter",
		apiKey:  cfg.APIKey,
		model:   orDefault(cfg.Model, "google/gemini-flash-1.5"),
		baseURL: strings.TrimRight(orDefault(cfg.BaseURL, openRouterBaseURL), "/"),
		// Attribution headers OpenRouter uses for app rankings.
		headers: map[string]string{
			"HTTP-Referer": "https://lifecompass-ai.com",
			"X-Title":      "LifeCompass AI",
		},
		client: o.client,
	}}
}

func (*OpenRouter) sealed() {}
