package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/naksha/availability-core/internal/bookingengine"
	"github.com/naksha/availability-core/internal/config"
	"github.com/naksha/availability-core/internal/coreerr"
	"github.com/naksha/availability-core/internal/middleware"
	"github.com/naksha/availability-core/internal/patternengine"
	"github.com/naksha/availability-core/internal/queryfacade"
	"github.com/naksha/availability-core/internal/realtime"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/pkg/logger"
	"gorm.io/gorm"
)

// RouterConfig holds everything SetupRouter needs to wire the transport
// adapter (SPEC_FULL.md §6a) over the core's engines.
type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Config      *config.Config
	Logger      logger.Logger
	Patterns    *patternengine.Engine
	Generator   *slotgen.Generator
	Facade      *queryfacade.Facade
	Bookings    *bookingengine.Engine
	Subscriber  *realtime.SubscriptionManager
}

// SetupRouter assembles the Gin engine: recovery, CORS, logging, rate
// limiting, then routes, following the teacher's router.go ordering.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Config.Environment == "production" {
		router.Use(middleware.ProductionCORS([]string{}))
	} else {
		router.Use(middleware.DevelopmentCORS())
	}

	router.Use(middleware.DefaultRequestLogging(cfg.Logger))
	router.Use(middleware.ErrorLogging(cfg.Logger))
	router.Use(middleware.GeneralRateLimit(cfg.Redis, cfg.Logger, 120))

	identity := middleware.NewIdentity(cfg.Logger)

	patternHandler := NewPatternHandler(cfg.Patterns, cfg.Logger)
	slotHandler := NewSlotHandler(cfg.Generator, cfg.Facade, cfg.Config.Core.GenerationHorizonDays, cfg.Logger)
	sessionHandler := NewSessionHandler(cfg.Bookings, cfg.Logger)
	healthHandler := NewHealthHandler(cfg.DB, cfg.Redis, cfg.Logger)
	wsHandler := NewWebSocketHandler(cfg.Subscriber, cfg.Logger)

	health := router.Group("/health")
	{
		health.GET("", healthHandler.Health)
		health.GET("/readiness", healthHandler.Readiness)
	}

	router.GET("/ws/availability", wsHandler.HandleConnections)

	v1 := router.Group("/api/v1")
	{
		// Public booking and slot-browsing surface — no identity required.
		v1.GET("/availability/slots/:slug", slotHandler.PublicSlots)
		v1.POST("/sessions/book", sessionHandler.Book)

		// Consultant-authenticated surface: identity already resolved by an
		// upstream gateway and forwarded as headers (SPEC_FULL.md §6a).
		authed := v1.Group("/")
		authed.Use(identity.RequireConsultant())
		authed.Use(middleware.ConsultantBasedRateLimit(cfg.Redis, 120, time.Minute, cfg.Logger))
		{
			patterns := authed.Group("/availability/patterns")
			patterns.GET("", patternHandler.List)
			patterns.POST("", patternHandler.Create)
			patterns.PUT("/:id", patternHandler.Update)
			patterns.DELETE("/:id", patternHandler.Delete)
			patterns.POST("/bulk", patternHandler.BulkReplace)

			authed.POST("/availability/generate-slots", slotHandler.GenerateSlots)

			authed.POST("/sessions", sessionHandler.Create)
			authed.DELETE("/sessions/:id", sessionHandler.Cancel)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		respondError(c, coreerr.New(coreerr.NotFound, "endpoint not found"))
	})
	router.NoMethod(func(c *gin.Context) {
		respondError(c, coreerr.New(coreerr.BadInput, "method not allowed"))
	})

	return router
}
