package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumina-dash/lumina/internal/infrastructure/ratelimit"
	"github.com/lumina-dash/lumina/internal/shared/logger"
	"github.com/lumina-dash/lumina/internal/shared/utils"
)

// RateLimitMiddleware enforces per-bucket request limits. Authenticated
// requests are limited per subject; the unauthenticated callback is limited
// per client IP.
type RateLimitMiddleware struct {
	governor *ratelimit.Governor
	logger   logger.Interface
}

func NewRateLimitMiddleware(governor *ratelimit.Governor, logger logger.Interface) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		governor: governor,
		logger:   logger,
	}
}

// Limit returns a middleware enforcing the named bucket.
func (m *RateLimitMiddleware) Limit(bucket ratelimit.Bucket) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("subject_id")
		if key == "" {
			key = c.ClientIP()
		}

		decision, err := m.governor.Admit(c.Request.Context(), bucket, key)
		if err != nil {
			// If the counter store is unavailable, allow the request
			// rather than blocking all traffic.
			m.logger.Warnw("rate limit check failed, allowing request", "bucket", bucket, "error", err)
			c.Next()
			return
		}

		if !decision.Allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(decision.RetryAfter.Seconds())))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
