package providers

import (
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const xaiBaseURL = "https://api.x.ai/v1"

// XAI calls the Grok models through xAI's OpenAI compatible API
type XAI struct {
	chatCompletions
}

// NewXAI creates the xAI adapter
func NewXAI(cfg types.ProviderConfig, opts ...Option) *XAI {
	o := buildOptions(defaultTimeout, opts)
	return &XAI{chatCompletions{
		id:      IDXAI,
		label:   "xAI",
		apiKey:  cfg.APIKey,
		model:   orDefault(cfg.Model, "grok-3-latest"),
		baseURL: strings.TrimRight(orDefault(cfg.BaseURL, xaiBaseURL), "/"),
		client:  o.client,
	}}
}

func (*XAI) sealed() {}
