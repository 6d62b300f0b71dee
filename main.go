package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/naksha/availability-core/internal/bookingengine"
	"github.com/naksha/availability-core/internal/cache"
	"github.com/naksha/availability-core/internal/client"
	"github.com/naksha/availability-core/internal/coherence"
	"github.com/naksha/availability-core/internal/config"
	"github.com/naksha/availability-core/internal/coreclock"
	"github.com/naksha/availability-core/internal/database"
	"github.com/naksha/availability-core/internal/httpapi"
	"github.com/naksha/availability-core/internal/patternengine"
	"github.com/naksha/availability-core/internal/queryfacade"
	"github.com/naksha/availability-core/internal/realtime"
	"github.com/naksha/availability-core/internal/slotgen"
	"github.com/naksha/availability-core/internal/store"
	"github.com/naksha/availability-core/internal/subscribers"
	"github.com/naksha/availability-core/pkg/events"
	"github.com/naksha/availability-core/pkg/logger"
	"github.com/naksha/availability-core/pkg/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	log := logger.New(cfg.LogLevel)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to run database migrations", "error", err)
	}

	var redisClient *redis.Client
	redisClient, err = database.ConnectRedis(cfg.Redis)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("failed to connect to redis, continuing without cache", "error", err)
			redisClient = nil
		} else {
			log.Fatal("failed to connect to redis", "error", err)
		}
	}

	var natsConn *nats.Conn
	var eventPublisher *events.Publisher
	var eventSubscriber *events.Subscriber

	natsConn, err = events.Connect(cfg.NATS)
	if err != nil {
		if cfg.Environment == "development" {
			log.Warn("failed to connect to NATS, continuing without eventing", "error", err)
			eventPublisher = events.NewNullPublisher(log)
		} else {
			log.Fatal("failed to connect to NATS", "error", err)
		}
	} else {
		defer natsConn.Close()
		eventPublisher = events.NewPublisher(natsConn, log)
		eventSubscriber = events.NewSubscriber(natsConn, log)
	}

	coreStore := store.New(db)
	coreCache := cache.New(redisClient, log)
	clock := coreclock.System{}

	subscriptionManager := realtime.NewSubscriptionManager(log, eventSubscriber)
	go subscriptionManager.Run()
	if eventSubscriber != nil {
		subscriptionManager.StartEventSubscriptions()
	}

	coherenceController := coherence.New(coreCache, eventPublisher, subscriptionManager, clock, log)

	slotGenerator := slotgen.New(coreStore, cfg.Core.SlotBatchSize)
	patternEngine := patternengine.New(
		coreStore, coreCache, slotGenerator, coherenceController, clock, log,
		cfg.Core.LockTTLSeconds, cfg.Core.StaleLockSeconds, cfg.Core.BulkReplaceRegenDays,
	)
	queryFacade := queryfacade.New(coreStore, coreCache, clock, cfg.Core.PublicSlotPageTTLSecs, log)

	notifier := client.NewNotificationServiceClient(cfg, log)
	bookingEngine := bookingengine.New(coreStore, coherenceController, notifier, client.NoopMeetingProvisioner{}, clock, log)

	if natsConn != nil {
		natsEventHandlers := subscribers.NewNatsEventHandlers(coreStore, log)
		if err := eventSubscriber.Subscribe(events.ConsultantLifecycleSubject, natsEventHandlers.HandleConsultantLifecycle); err != nil {
			log.Fatal("failed to subscribe to consultant lifecycle events", "error", err)
		}
	} else {
		log.Warn("skipping consultant lifecycle subscription (no NATS connection)")
	}

	horizonScheduler := scheduler.New(coreStore, slotGenerator, cfg.Core.ScheduledHorizonRunDays, cfg.Core.GenerationHorizonDays, log)
	horizonScheduler.Start()
	defer horizonScheduler.Stop()

	router := httpapi.SetupRouter(httpapi.RouterConfig{
		DB:         db,
		Redis:      redisClient,
		Config:     cfg,
		Logger:     log,
		Patterns:   patternEngine,
		Generator:  slotGenerator,
		Facade:     queryFacade,
		Bookings:   bookingEngine,
		Subscriber: subscriptionManager,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting availability and booking core", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down availability and booking core")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", "error", err)
	}

	log.Info("availability and booking core stopped")
}
