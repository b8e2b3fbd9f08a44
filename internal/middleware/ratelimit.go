package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifecompass/backend/pkg/errors"
	"github.com/lifecompass/backend/pkg/utils"
)

// Limiter decides whether one more request fits in the window
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, error)
}

// RateLimitMiddleware provides rate limiting functionality
type RateLimitMiddleware struct {
	limiter Limiter
	logger  *utils.Logger
}

// NewRateLimitMiddleware creates a new rate limiting middleware; a nil limiter disables it
func NewRateLimitMiddleware(limiter Limiter, logger *utils.Logger) *RateLimitMiddleware {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// RateLimit caps requests per caller and path. Limiter failures let the
// request through.
func (rlm *RateLimitMiddleware) RateLimit(limit int64, window time.Duration) gin.HandlerFunc {
	return rlm.RateLimitFunc(func() (int64, time.Duration) { return limit, window })
}

// RateLimitFunc is RateLimit with bounds read on every request, so they can
// change at runtime
func (rlm *RateLimitMiddleware) RateLimitFunc(bounds func() (int64, time.Duration)) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, window := bounds()
		if rlm.limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if id, ok := IdentityFromContext(c); ok {
			subject = "user:" + id.UserID
		}
		key := fmt.Sprintf("%s:%s", subject, c.FullPath())

		allowed, err := rlm.limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			rlm.logger.WithError(err).Warn("Rate limit check failed, allowing request")
			c.Next()
			return
		}
		if !allowed {
			rlm.logger.LogRateLimitExceeded(c.Request.Context(), subject, c.Request.URL.Path)
			RespondWithError(c, errors.New(errors.ErrRateLimited, "Rate limit exceeded"))
			return
		}

		c.Next()
	}
}
