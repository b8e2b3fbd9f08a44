package gateway

import (
	stderrors "errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/internal/ats"
	"github.com/lifecompass/backend/internal/auth"
	"github.com/lifecompass/backend/internal/middleware"
	"github.com/lifecompass/backend/internal/storage"
	"github.com/lifecompass/backend/pkg/errors"
	"github.com/lifecompass/backend/pkg/utils"
)

var (
	notFoundErrors = []error{
		ats.ErrJobNotFound, ats.ErrApplicationNotFound, ats.ErrMessageNotFound,
		ats.ErrUserNotFound, auth.ErrUserNotFound, storage.ErrNotFound,
	}
	forbiddenErrors = []error{
		ats.ErrForbidden, ats.ErrChatNotAllowed, auth.ErrForbidden, auth.ErrAccountInactive,
	}
	conflictErrors = []error{
		ats.ErrAlreadyApplied, ats.ErrAlreadySaved, auth.ErrEmailTaken,
	}
	badRequestErrors = []error{
		ats.ErrJobNotActive, ats.ErrInvalidStatus, ats.ErrInvalidRating,
		ats.ErrCannotWithdraw, auth.ErrInvalidRole,
	}
)

func matches(err error, targets []error) bool {
	for _, t := range targets {
		if stderrors.Is(err, t) {
			return true
		}
	}
	return false
}

// toAppError maps service errors onto the public error envelope. Anything
// unrecognised becomes a generic internal error.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var verr *ats.ValidationError
	if stderrors.As(err, &verr) {
		return errors.NewValidation(verr.Fields)
	}

	switch {
	case matches(err, notFoundErrors):
		return errors.New(errors.ErrNotFound, err.Error())
	case matches(err, forbiddenErrors):
		return errors.New(errors.ErrForbidden, err.Error())
	case matches(err, conflictErrors):
		return errors.New(errors.ErrConflict, err.Error())
	case matches(err, badRequestErrors):
		return errors.New(errors.ErrInvalidRequest, err.Error())
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return errors.ErrInvalidCredentials
	case stderrors.Is(err, auth.ErrTokenExpired):
		return errors.New(errors.ErrExpiredToken, "Token has expired")
	case stderrors.Is(err, auth.ErrInvalidToken):
		return errors.New(errors.ErrUnauthorized, "Invalid token")
	case stderrors.Is(err, auth.ErrNoUserStore):
		return errors.New(errors.ErrServiceUnavailable, "User accounts are not available")
	}
	return errors.ErrInternal
}

// respondError writes err as the standard error envelope, logging it when
// it is not an expected client error
func respondError(c *gin.Context, logger *utils.Logger, err error) {
	appErr := toAppError(err)
	if appErr.HTTPStatusCode >= 500 && logger != nil {
		logger.LogSystemError(c.Request.Context(), "http", err, map[string]interface{}{
			"path":       c.FullPath(),
			"request_id": middleware.GetRequestIDFromContext(c),
		})
	}
	middleware.RespondWithError(c, appErr)
}

// badRequest reports a body or query that failed to bind
func badRequest(c *gin.Context, err error) {
	middleware.RespondWithError(c, errors.NewWithDetails(errors.ErrInvalidRequest, "Invalid request format", err.Error()))
}

// identity returns the caller set by the auth middleware
func identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.IdentityFromContext(c)
	if !ok {
		middleware.RespondWithError(c, errors.ErrAuthenticationRequired)
	}
	return id, ok
}

// queryInt reads an integer query parameter, falling back to def
func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return def
}
