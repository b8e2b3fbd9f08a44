package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/middleware"
	"github.com/lifecompass/backend/internal/router"
	"github.com/lifecompass/backend/pkg/errors"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// AuthHandlers provides authentication related HTTP handlers
type AuthHandlers struct {
	authService *auth.AuthService
	logger      *utils.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *auth.AuthService, logger *utils.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req types.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RefreshToken handles token refresh
func (h *AuthHandlers) RefreshToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	response, err := h.authService.RefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// Me returns the profile of the caller
func (h *AuthHandlers) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	user, err := h.authService.CurrentUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"permissions": auth.Permissions(user.Role),
	})
}

// AdminHandlers provides admin-only HTTP handlers
type AdminHandlers struct {
	router        *router.Router
	authService   *auth.AuthService
	configManager *ConfigManager
	logger        *utils.Logger
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(r *router.Router, authService *auth.AuthService, configManager *ConfigManager, logger *utils.Logger) *AdminHandlers {
	return &AdminHandlers{
		router:        r,
		authService:   authService,
		configManager: configManager,
		logger:        logger,
	}
}

// ProviderStats reports per provider call statistics
func (h *AdminHandlers) ProviderStats(c *gin.Context) {
	if h.router == nil {
		c.JSON(http.StatusOK, router.Snapshot{Providers: map[string]router.ProviderStats{}})
		return
	}
	c.JSON(http.StatusOK, h.router.Stats())
}

// GetConfig returns the running configuration with secrets masked
func (h *AdminHandlers) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.configManager.GetConfigSummary())
}

// UpdateConfig changes runtime adjustable settings
func (h *AdminHandlers) UpdateConfig(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.configManager.UpdateConfig(updates); err != nil {
		middleware.RespondWithError(c, errors.NewWithDetails(errors.ErrInvalidRequest, "Invalid configuration update", err.Error()))
		return
	}

	c.JSON(http.StatusOK, h.configManager.GetConfigSummary())
}

// ChangeRole assigns a new role to a user
func (h *AdminHandlers) ChangeRole(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req types.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.ChangeRole(c.Request.Context(), id, c.Param("id"), req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user.Info())
}
