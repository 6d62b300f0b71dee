package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naksha/availability-core/pkg/logger"
)

// Identity is a thin context-setter, not an authenticator: the core never
// verifies credentials (SPEC_FULL.md §1/§6a). It trusts that an upstream
// gateway has already authenticated the caller and forwards the resolved
// consultant identity as headers, grounded on the teacher's AuthMiddleware
// (internal/middleware/auth.go) shape but stripped of JWT verification.
type Identity struct {
	logger logger.Logger
}

func NewIdentity(log logger.Logger) *Identity {
	return &Identity{logger: logger.ComponentLogger(log, "identity")}
}

// RequireConsultant rejects the request unless an upstream-resolved
// consultant identity is present, and makes it available to handlers via
// consultantID(c)/consultantSlug(c).
func (id *Identity) RequireConsultant() gin.HandlerFunc {
	return func(c *gin.Context) {
		consultantID := c.GetHeader("X-Consultant-Id")
		consultantSlug := c.GetHeader("X-Consultant-Slug")
		if consultantID == "" || consultantSlug == "" {
			id.respondUnauthorized(c, "MISSING_IDENTITY", "consultant identity required")
			return
		}

		c.Set("consultant_id", consultantID)
		c.Set("consultant_slug", consultantSlug)

		id.logger.Debug("consultant identity attached",
			"consultantId", consultantID,
			"path", c.Request.URL.Path,
		)

		c.Next()
	}
}

func (id *Identity) respondUnauthorized(c *gin.Context, code, message string) {
	id.logger.Warn("request missing upstream identity",
		"error_code", code,
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	c.JSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	c.Abort()
}
