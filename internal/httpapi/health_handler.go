package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/naksha/availability-core/pkg/logger"
	"gorm.io/gorm"
)

// HealthHandler reports readiness of the two hard dependencies (Postgres,
// Redis); NATS is allowed to be absent (the Publisher degrades to a no-op).
type HealthHandler struct {
	db        *gorm.DB
	redis     *redis.Client
	startedAt time.Time
	log       logger.Logger
}

func NewHealthHandler(db *gorm.DB, redis *redis.Client, log logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, startedAt: time.Now(), log: logger.ComponentLogger(log, "health_handler")}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health reports liveness only: if this handler runs, the process is alive.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"uptime": time.Since(h.startedAt).String(),
	})
}

// Readiness reports whether the service can actually serve traffic.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := gin.H{
		"database": h.checkDatabase(),
		"redis":    h.checkRedis(),
	}
	ready := checks["database"].(checkResult).Status == "healthy" && checks["redis"].(checkResult).Status == "healthy"

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "checks": checks})
}

func (h *HealthHandler) checkDatabase() checkResult {
	sqlDB, err := h.db.DB()
	if err != nil {
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	if err := sqlDB.Ping(); err != nil {
		h.log.Error("database health check failed", "error", err)
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	return checkResult{Status: "healthy"}
}

func (h *HealthHandler) checkRedis() checkResult {
	if h.redis == nil {
		return checkResult{Status: "healthy", Message: "redis not configured"}
	}
	if err := h.redis.Ping(context.Background()).Err(); err != nil {
		h.log.Error("redis health check failed", "error", err)
		return checkResult{Status: "unhealthy", Message: err.Error()}
	}
	return checkResult{Status: "healthy"}
}
