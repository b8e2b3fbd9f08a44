package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Anthropic calls the Claude messages API
type Anthropic struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type anthropicRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage map[string]interface{} `json:"usage"`
}

// NewAnthropic creates the Anthropic adapter
func NewAnthropic(cfg types.ProviderConfig, opts ...Option) *Anthropic {
	o := buildOptions(defaultTimeout, opts)
	return &Anthropic{
		apiKey:  cfg.APIKey,
		model:   orDefault(cfg.Model, "claude-3-sonnet-20240229"),
		baseURL: strings.TrimRight(orDefault(cfg.BaseURL, anthropicBaseURL), "/"),
		client:  o.client,
	}
}

func (a *Anthropic) ID() string { return IDAnthropic }

func (a *Anthropic) Name() string { return fmt.Sprintf("Anthropic (%s)", a.model) }

func (a *Anthropic) IsConfigured(ctx context.Context) bool {
	return strings.TrimSpace(a.apiKey) != ""
}

func (a *Anthropic) GenerateText(ctx context.Context, prompt string) GenerationResult {
	if !a.IsConfigured(ctx) {
		return Failed(IDAnthropic, "Anthropic API key not configured")
	}

	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}
	body := anthropicRequest{
		Model:     a.model,
		MaxTokens: defaultMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}

	status, data, err := postJSON(ctx, a.client, a.baseURL+"/messages", headers, body)
	if err != nil {
		return Failed(IDAnthropic, transportError("Anthropic", err))
	}
	if status != http.StatusOK {
		return Failed(IDAnthropic, apiError("Anthropic", status, data))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Failed(IDAnthropic, decodeError("Anthropic", err))
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return Failed(IDAnthropic, "No response content from Anthropic")
	}

	return Succeeded(IDAnthropic, resp.Content[0].Text, resp.Usage)
}

func (*Anthropic) sealed() {}
