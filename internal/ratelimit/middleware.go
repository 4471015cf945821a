package ratelimit

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/luwero-crop-advisor/internal/errors"
)

// KeyFunc picks the subject a request is counted against.
type KeyFunc func(c *gin.Context) string

// ClientIP counts requests per client address.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// Middleware enforces limit per subject and answers 429 with message when the
// subject is over budget. Limiter failures let the request through.
func (rl *RateLimiter) Middleware(limit Limit, key KeyFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := key(c)

		result, err := rl.Allow(c.Request.Context(), limit, subject)
		if err != nil {
			slog.Error("Rate limit check failed", "limit", limit.Name, "subject", subject, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitBlock()
			}
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(result.RetryAfter)))
			apperrors.Respond(c, apperrors.NewRateLimitError(message, result.RetryAfter))
			return
		}

		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
