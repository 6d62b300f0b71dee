package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naksha/availability-core/internal/coreerr"
)

// respond mirrors the teacher's {success, data|error, timestamp} envelope
// (internal/middleware/auth.go's respondUnauthorized/respondForbidden),
// generalized into one helper every handler shares.
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps a coreerr.Kind to its HTTP status per SPEC_FULL.md §7.
func statusFor(err error) (int, string) {
	ce, ok := coreerr.As(err)
	if !ok {
		return http.StatusInternalServerError, string(coreerr.Internal)
	}
	switch ce.Kind {
	case coreerr.BadInput:
		return http.StatusBadRequest, string(coreerr.BadInput)
	case coreerr.NotFound:
		return http.StatusNotFound, string(coreerr.NotFound)
	case coreerr.Overlap:
		return http.StatusBadRequest, string(coreerr.Overlap)
	case coreerr.SlotTaken:
		return http.StatusConflict, string(coreerr.SlotTaken)
	case coreerr.Busy:
		return http.StatusLocked, string(coreerr.Busy)
	case coreerr.Deadline:
		return http.StatusGatewayTimeout, string(coreerr.Deadline)
	case coreerr.Infra:
		return http.StatusServiceUnavailable, string(coreerr.Infra)
	default:
		return http.StatusInternalServerError, string(coreerr.Internal)
	}
}
