package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"woonruil/internal/infrastructure/metrics"
	"woonruil/internal/infrastructure/ratelimit"
	"woonruil/pkg/logger"
)

// RateLimiter applies a fixed-window budget per client IP.
type RateLimiter struct {
	window *ratelimit.FixedWindow
	now    func() time.Time
}

func NewRateLimiter(window *ratelimit.FixedWindow) *RateLimiter {
	return &RateLimiter{
		window: window,
		now:    time.Now,
	}
}

// RateLimitMiddleware returns Echo middleware for rate limiting
func (rl *RateLimiter) RateLimitMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			decision, err := rl.window.Allow(c.Request().Context(), "ip:"+ip)
			if err != nil {
				// the store is down; serve rather than reject everyone
				logger.Error("Rate limit store failed for %s: %v", ip, err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				metrics.RateLimitHits.WithLabelValues("api").Inc()
				logger.Warn("RATE LIMIT: blocked request from %s", ip)

				h.Set("Retry-After", strconv.Itoa(int(decision.RetryAfter(rl.now()).Seconds())))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"message": "Too many requests, please try again later.",
				})
			}

			return next(c)
		}
	}
}
