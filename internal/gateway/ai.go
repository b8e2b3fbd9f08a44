package gateway

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/middleware"
	"github.com/lifecompass/backend/internal/prompt"
	"github.com/lifecompass/backend/internal/providers"
	"github.com/lifecompass/backend/internal/router"
	"github.com/lifecompass/backend/pkg/errors"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// AIHandlers serves the career advice endpoints
type AIHandlers struct {
	router *router.Router
	logger *utils.Logger
}

// NewAIHandlers creates the handlers; router may be nil, in which case every
// generation request reports that no provider is configured
func NewAIHandlers(r *router.Router, logger *utils.Logger) *AIHandlers {
	return &AIHandlers{router: r, logger: logger}
}

// ListProviders reports the configured providers and the default
func (h *AIHandlers) ListProviders(c *gin.Context) {
	if h.router == nil {
		c.JSON(http.StatusOK, providers.Status{
			Configured: []providers.ProviderStatus{},
			Available:  []string{},
		})
		return
	}
	c.JSON(http.StatusOK, h.router.Registry().Status())
}

// Chat answers a career question
func (h *AIHandlers) Chat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := prompt.CareerAdvice(req.Message)
	if err != nil {
		h.rejectPrompt(c, err, "message")
		return
	}

	result, ok := h.generate(c, p, req.Provider)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.ChatResponse{
		Reply:    result.Text,
		Provider: result.Provider,
		Success:  true,
		Fallback: result.Fallback,
	})
}

// AnalyzeResume reviews pasted resume text
func (h *AIHandlers) AnalyzeResume(c *gin.Context) {
	var req types.ResumeAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := prompt.ResumeAnalysis(req.ResumeText)
	if err != nil {
		h.rejectPrompt(c, err, "resume_text")
		return
	}

	result, ok := h.generate(c, p, req.Provider)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis": result.Text,
		"provider": result.Provider,
		"success":  true,
		"fallback": result.Fallback,
	})
}

// RecommendJobs suggests roles for a list of skills
func (h *AIHandlers) RecommendJobs(c *gin.Context) {
	var req types.JobRecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := prompt.JobRecommendations(req.Skills)
	if err != nil {
		h.rejectPrompt(c, err, "skills")
		return
	}

	result, ok := h.generate(c, p, req.Provider)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recommendations": result.Text,
		"provider":        result.Provider,
		"success":         true,
		"fallback":        result.Fallback,
	})
}

// rejectPrompt reports why the request field could not become a prompt
func (h *AIHandlers) rejectPrompt(c *gin.Context, err error, field string) {
	if stderrors.Is(err, prompt.ErrEmptyInput) {
		middleware.RespondWithError(c, errors.New(errors.ErrInvalidRequest, field+" must not be empty"))
		return
	}
	respondError(c, h.logger, err)
}

// generate runs the prompt through the router and writes the error response
// itself when no text came back
func (h *AIHandlers) generate(c *gin.Context, p, providerID string) (providers.GenerationResult, bool) {
	var result providers.GenerationResult
	if h.router == nil {
		result = providers.Failed(router.NoProviderID, router.NoProviderMessage)
	} else {
		result = h.router.Generate(c.Request.Context(), p, providerID)
	}
	if result.Success {
		return result, true
	}

	if result.Provider == router.NoProviderID {
		middleware.RespondWithError(c, errors.New(errors.ErrNoProviderConfigured, result.ErrorMessage))
		return result, false
	}

	h.logger.WithRequestID(middleware.GetRequestIDFromContext(c)).
		WithField("provider", result.Provider).
		WithField("error", result.ErrorMessage).
		Warn("Generation failed")
	middleware.RespondWithError(c, errors.NewWithDetails(errors.ErrGenerationFailed, result.ErrorMessage, result.Provider))
	return result, false
}
