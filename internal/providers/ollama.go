package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const ollamaBaseURL = "http://localhost:11434"

// Ollama calls a local Ollama model server. It has no credential, so it
// counts as configured only while the server answers.
type Ollama struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response        string `json:"response"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

// NewOllama creates the Ollama adapter
func NewOllama(cfg types.OllamaConfig, opts ...Option) *Ollama {
	o := buildOptions(ollamaTimeout, opts)
	return &Ollama{
		model:   orDefault(cfg.Model, "llama2"),
		baseURL: strings.TrimRight(orDefault(cfg.URL, ollamaBaseURL), "/"),
		client:  o.client,
	}
}

func (o *Ollama) ID() string { return IDOllama }

func (o *Ollama) Name() string { return fmt.Sprintf("Ollama (%s)", o.model) }

// IsConfigured checks GET /api/tags. Any failure means not configured.
func (o *Ollama) IsConfigured(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *Ollama) GenerateText(ctx context.Context, prompt string) GenerationResult {
	body := ollamaRequest{Model: o.model, Prompt: prompt, Stream: false}

	status, data, err := postJSON(ctx, o.client, o.baseURL+"/api/generate", nil, body)
	if err != nil {
		return Failed(IDOllama, transportError("Ollama", err)+". Make sure Ollama is running locally.")
	}
	if status != http.StatusOK {
		return Failed(IDOllama, apiError("Ollama", status, data))
	}

	var resp ollamaResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return Failed(IDOllama, decodeError("Ollama", err))
	}
	if resp.Response == "" {
		return Failed(IDOllama, "No response content from Ollama")
	}

	usage := map[string]interface{}{
		"prompt_tokens":     resp.PromptEvalCount,
		"completion_tokens": resp.EvalCount,
	}
	return Succeeded(IDOllama, resp.Response, usage)
}

func (*Ollama) sealed() {}
