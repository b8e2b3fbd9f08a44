package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/lifecompass/backend/pkg/types"
)

const huggingFaceBaseURL = "https://api-inference.huggingface.co/models"

// HuggingFace calls the hosted Inference API for a text generation model
type HuggingFace struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature"`
	DoSample    bool    `json:"do_sample"`
}

type huggingFaceCandidate struct {
	GeneratedText string `json:"generated_text"`
}

// NewHuggingFace creates the Hugging Face adapter
func NewHuggingFace(cfg types.ProviderConfig, opts ...Option) *HuggingFace {
	o := buildOptions(defaultTimeout, opts)
	return &HuggingFace{
		apiKey:  cfg.APIKey,
		model:   orDefault(cfg.Model, "microsoft/DialoGPT-medium"),
		baseURL: strings.TrimRight(orDefault(cfg.BaseURL, huggingFaceBaseURL), "/"),
		client:  o.client,
	}
}

func (h *HuggingFace) ID() string { return IDHuggingFace }

func (h *HuggingFace) Name() string { return fmt.Sprintf("Hugging Face (%s)", h.model) }

func (h *HuggingFace) IsConfigured(ctx context.Context) bool {
	return strings.TrimSpace(h.apiKey) != ""
}

func (h *HuggingFace) GenerateText(ctx context.Context, prompt string) GenerationResult {
	if !h.IsConfigured(ctx) {
		return Failed(IDHuggingFace, "Hugging Face API key not configured")
	}

	body := huggingFaceRequest{
		Inputs: prompt,
		Parameters: huggingFaceParameters{
			MaxLength:   200,
			Temperature: defaultTemperature,
			DoSample:    true,
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + h.apiKey}

	status, data, err := postJSON(ctx, h.client, h.baseURL+"/"+h.model, headers, body)
	if err != nil {
		return Failed(IDHuggingFace, transportError("Hugging Face", err))
	}
	if status != http.StatusOK {
		return Failed(IDHuggingFace, apiError("Hugging Face", status, data))
	}

	// Text generation models answer with an array of candidates; anything
	// else (an object, a loading notice) is not a usable reply.
	var candidates []huggingFaceCandidate
	if err := json.Unmarshal(data, &candidates); err != nil || len(candidates) == 0 {
		return Failed(IDHuggingFace, "Unexpected response format from Hugging Face")
	}

	text := candidates[0].GeneratedText
	if strings.HasPrefix(text, prompt) {
		text = strings.TrimSpace(text[len(prompt):])
	}
	if text == "" {
		return Failed(IDHuggingFace, "No response content from Hugging Face")
	}

	return Succeeded(IDHuggingFace, text, nil)
}

func (*HuggingFace) sealed() {}
