package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const openAIBaseURL = "https://api.openai.com/v1"

// chatCompletions speaks the OpenAI chat completions protocol, which
// OpenAI, OpenRouter and xAI all expose.
type chatCompletions struct {
	id      string
	label   string
	apiKey  string
	model   string
	baseURL string
	headers map[string]string
	client  *http.Client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage map[string]interface{} `json:"usage"`
}

func (c *chatCompletions) ID() string { return c.id }

func (c *chatCompletions) Name() string { return fmt.Sprintf("%s (%s)", c.label, c.model) }

func (c *chatCompletions) IsConfigured(ctx context.Context) bool {
	return strings.TrimSpace(c.apiKey) != ""
}

func (c *chatCompletions) GenerateText(ctx context.Context, prompt string) GenerationResult {
	if !c.IsConfigured(ctx) {
		return Failed(c.id, c.label+" API key not configured")
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	for k, v := range c.headers {
		headers[k] = v
	}

	body := chatCompletionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	status, data, err := postJSON(ctx, c.client, c.baseURL+"/chat/completions", headers, body)
	if err != nil {
		return Failed(c.id, transportError(c.label, err))
	}
	if status != http.StatusOK {
		return Failed(c.id, apiError(c.label, status, data))
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Failed(c.id, decodeError(c.label, err))
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Failed(c.id, "No response content from "+c.label)
	}

	return Succeeded(c.id, resp.Choices[0].Message.Content, resp.Usage)
}

// OpenAI calls the OpenAI chat completions API
type OpenAI struct {
	chatCompletions
}

// NewOpenAI creates the OpenAI adapter
func NewOpenAI(cfg types.ProviderConfig, opts ...Option) *OpenAI {
	o := buildOptions(defaultTimeout, opts)
	return &OpenAI{chatCompletions{
		id:      IDOpenAI,
		label:   "OpenAI",
		apiKey:  cfg.APIKey,
		model:   orDefault(cfg.Model, "gpt-3.5-turbo"),
		baseURL: strings.TrimRight(orDefault(cfg.BaseURL, openAIBaseURL), "/"),
		client:  o.client,
	}}
}

func (*OpenAI) sealed() {}
