// Package middleware provides HTTP middleware for the LifeCompass API
package middleware

import (
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/pkg/errors"
	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// TokenValidator turns a bearer token into claims
type TokenValidator interface {
	ValidateJWT(token string) (*auth.Claims, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	tokens TokenValidator
	logger *utils.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens TokenValidator, logger *utils.Logger) *AuthMiddleware {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &AuthMiddleware{
		tokens: tokens,
		logger: logger,
	}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's identity in the request context
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := am.authenticate(c)
		if err != nil {
			am.logger.LogAuthFailure(c.Request.Context(), err.Message, c.ClientIP(), c.Request.UserAgent())
			RespondWithError(c, err)
			return
		}

		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := am.authenticate(c); err == nil {
			setIdentity(c, id)
		}
		c.Next()
	}
}

// RequireRole allows only the listed roles. It must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			RespondWithError(c, errors.ErrAuthenticationRequired)
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}

		am.logger.LogAuthFailure(c.Request.Context(), "insufficient_privileges", c.ClientIP(), c.Request.UserAgent())
		RespondWithError(c, errors.ErrAccessDenied)
	}
}

// RequirePermission allows callers whose role grants p. It must run after RequireAuth.
func (am *AuthMiddleware) RequirePermission(p auth.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok {
			RespondWithError(c, errors.ErrAuthenticationRequired)
			return
		}
		if !auth.Can(id, p) {
			am.logger.LogAuthFailure(c.Request.Context(), "missing_permission:"+string(p), c.ClientIP(), c.Request.UserAgent())
			RespondWithError(c, errors.ErrAccessDenied)
			return
		}
		c.Next()
	}
}

// authenticate validates the bearer token of the request
func (am *AuthMiddleware) authenticate(c *gin.Context) (auth.Identity, *errors.AppError) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return auth.Identity{}, errors.New(errors.ErrUnauthorized, "Bearer token required")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return auth.Identity{}, errors.New(errors.ErrUnauthorized, "Token is empty")
	}
	if am.tokens == nil {
		return auth.Identity{}, errors.New(errors.ErrServiceUnavailable, "Authentication is not configured")
	}

	claims, err := am.tokens.ValidateJWT(tokenString)
	if err != nil {
		if stderrors.Is(err, auth.ErrTokenExpired) {
			return auth.Identity{}, errors.New(errors.ErrExpiredToken, "Token has expired")
		}
		return auth.Identity{}, errors.New(errors.ErrUnauthorized, "Invalid token")
	}
	return claims.Identity(), nil
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

// IdentityFromContext returns the authenticated caller of the request
func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	return auth.IdentityFromContext(c.Request.Context())
}

// RespondWithError writes the standard error envelope and aborts the chain
func RespondWithError(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatusCode, gin.H{
		"error": errorBody(err),
	})
}

func errorBody(err *errors.AppError) gin.H {
	body := gin.H{
		"code":    err.Code,
		"message": err.Message,
		"details": err.Details,
	}
	if len(err.Fields) > 0 {
		body["fields"] = err.Fields
	}
	return body
}
