package providers

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"

	"github.com/lifecompass/backend/pkg/types"
)

// Gemini calls Google's Gemini models through the langchaingo client
type Gemini struct {
	apiKey  string
	model   string
	llm     llms.Model
	initErr error
}

// NewGemini creates the Gemini adapter. A client that fails to initialise
// leaves the adapter configured but every call fails with the init error.
func NewGemini(ctx context.Context, cfg types.ProviderConfig) *Gemini {
	g := &Gemini{
		apiKey: cfg.APIKey,
		model:  orDefault(cfg.Model, "gemini-1.5-flash"),
	}
	if strings.TrimSpace(g.apiKey) == "" {
		return g
	}

	client, err := googleai.New(ctx,
		googleai.WithAPIKey(g.apiKey),
		googleai.WithDefaultModel(g.model),
	)
	if err != nil {
		g.initErr = err
		return g
	}
	g.llm = client
	return g
}

// newGeminiWithModel wires an already built model, used by tests
func newGeminiWithModel(apiKey, model string, llm llms.Model) *Gemini {
	return &Gemini{apiKey: apiKey, model: model, llm: llm}
}

func (g *Gemini) ID() string { return IDGoogle }

func (g *Gemini) Name() string { return "Google Gemini" }

func (g *Gemini) IsConfigured(ctx context.Context) bool {
	return strings.TrimSpace(g.apiKey) != ""
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) GenerationResult {
	if g.llm == nil {
		if g.initErr != nil {
			return Failed(IDGoogle, transportError("Google Gemini", g.initErr))
		}
		return Failed(IDGoogle, "Google Gemini not properly configured")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	resp, err := g.llm.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)},
		llms.WithMaxTokens(defaultMaxTokens),
		llms.WithTemperature(defaultTemperature),
	)
	if err != nil {
		return Failed(IDGoogle, transportError("Google Gemini", err))
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return Failed(IDGoogle, "No response content from Google Gemini")
	}

	choice := resp.Choices[0]
	var usage map[string]interface{}
	if len(choice.GenerationInfo) > 0 {
		usage = make(map[string]interface{}, len(choice.GenerationInfo))
		for k, v := range choice.GenerationInfo {
			usage[k] = v
		}
	}
	return Succeeded(IDGoogle, choice.Content, usage)
}

func (*Gemini) sealed() {}
