package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apprma "github.com/rma/plugin/internal/application/rma"
	"github.com/rma/plugin/internal/infrastructure/config"
	"github.com/rma/plugin/internal/infrastructure/event"
	"github.com/rma/plugin/internal/infrastructure/logger"
	"github.com/rma/plugin/internal/infrastructure/persistence"
	"github.com/rma/plugin/internal/interfaces/http/handler"
	"github.com/rma/plugin/internal/interfaces/http/middleware"
	"github.com/rma/plugin/internal/interfaces/http/router"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting RMA automation plugin",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Repositories
	allocationRepo := persistence.NewGormRepairAllocationRepository(db.DB)
	orderRepo := persistence.NewGormReturnOrderRepository(db.DB)
	stockRepo := persistence.NewGormStockItemRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus and the completion handler that does the actual work
	eventBus := event.NewInMemoryEventBus(log)

	settings := cfg.Settings()
	if err := settings.Validate(); err != nil {
		log.Fatal("Invalid completion settings", zap.Error(err))
	}

	completionHandler := apprma.NewCompletionHandler(orderRepo, allocationRepo, txScope, eventBus, settings, log)
	eventBus.Subscribe(completionHandler)
	log.Info("Completion handler registered",
		zap.Strings("events", completionHandler.EventTypes()),
		zap.Bool("auto_status_change", settings.AutoStatusChange),
		zap.Bool("customer_reassign", settings.CustomerReassign),
		zap.Bool("tracking_notes", settings.TrackingNotes),
		zap.Bool("consume_repair_parts", settings.ConsumeRepairParts),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	allocationService := apprma.NewAllocationService(allocationRepo, orderRepo, stockRepo, log)

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.JWTAuth(middleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		SkipPaths: []string{
			router.BasePath + "/healthz",
		},
	}))

	// Routes
	r := router.NewRouter(engine)
	r.Register(handler.NewAllocationHandler(allocationService))
	r.Register(handler.NewEventHandler(eventBus, log))
	r.Register(handler.NewSystemHandler(db, version))
	r.Setup()

	server := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	log.Info("Server stopped")
}
