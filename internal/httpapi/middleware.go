// Package httpapi is the thin Gin HTTP surface over the core's inbound
// operations (§6): submit_application, get_application_status, match,
// system_metrics, and control. Routing itself is explicitly out of
// scope for the core per §1 — this package only wires C6 admission
// control in front of the handlers and translates requests/results to
// JSON, mirroring the teacher's gin.Context handler shape
// (internal/api/rest/auth_handler.go) and the dual-server,
// mark-not-ready-then-drain shutdown staging of cmd/authz-server.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alphacv/matchcore/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ginHeaderSource adapts *gin.Context to ratelimit.HeaderSource so C6
// stays framework-agnostic.
type ginHeaderSource struct{ c *gin.Context }

func (g ginHeaderSource) Header(name string) string { return g.c.GetHeader(name) }
func (g ginHeaderSource) RemoteAddr() string         { return g.c.Request.RemoteAddr }

// AdmissionMiddleware classifies the request, checks it against C6,
// and releases the concurrency slot once the handler returns. Rejected
// requests never reach the handler and never touch any core resource,
// per §5's backpressure requirement that admission is the single
// point of backpressure checked before anything is committed.
func AdmissionMiddleware(limiter *ratelimit.Controller, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		class := ratelimit.ClassifyRequest(c.Request.Method, c.Request.URL.Path, c.GetHeader("Authorization"))
		clientID := ratelimit.ClientIP(ginHeaderSource{c})

		decision := limiter.Admit(c.Request.Context(), clientID, class)
		if !decision.Admitted {
			if decision.RetryAfter > 0 {
				c.Header("Retry-After", formatRetryAfter(decision.RetryAfter))
			}
			logger.Info("admission rejected",
				zap.String("client_id", clientID),
				zap.String("class", string(class)),
				zap.String("reason", decision.Reason))
			c.AbortWithStatusJSON(statusFor(decision.Reason), gin.H{
				"error":       decision.Reason,
				"retry_after": decision.RetryAfter.Seconds(),
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		defer limiter.Release(clientID, class)
		c.Next()
	}
}

func statusFor(reason string) int {
	switch reason {
	case "circuit_open":
		return http.StatusServiceUnavailable
	case "hourly_limit_exceeded", "concurrency_limit_exceeded", "global_concurrency_exceeded":
		return http.StatusTooManyRequests
	default:
		return http.StatusTooManyRequests
	}
}

func formatRetryAfter(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
