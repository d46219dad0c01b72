package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	bookingapp "github.com/knjigovodja/backend/internal/application/booking"
	"github.com/knjigovodja/backend/internal/domain/safety"
	"github.com/knjigovodja/backend/internal/infrastructure/auth"
	"github.com/knjigovodja/backend/internal/infrastructure/config"
	"github.com/knjigovodja/backend/internal/infrastructure/event"
	"github.com/knjigovodja/backend/internal/infrastructure/logger"
	"github.com/knjigovodja/backend/internal/infrastructure/persistence"
	clientregistry "github.com/knjigovodja/backend/internal/infrastructure/registry"
	"github.com/knjigovodja/backend/internal/interfaces/http/dto"
	"github.com/knjigovodja/backend/internal/interfaces/http/handler"
	"github.com/knjigovodja/backend/internal/interfaces/http/middleware"
	"github.com/knjigovodja/backend/internal/interfaces/http/router"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting booking review service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("driver", cfg.Database.Driver),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Sqlite installations get their schema here; postgres runs cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.Migrate(); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	// Repositories
	bookingRepo := persistence.NewGormBookingRepository(db.DB)
	correctionRepo := persistence.NewGormCorrectionRepository(db.DB)

	// Event bus with the audit trail subscriber
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditSubscriber(log))

	// Safety overseer with configured limits
	overseer := safety.NewOverseer(safety.Limits{
		CashCeiling: decimal.NewFromFloat(cfg.Safety.CashCeiling),
		MaxKmRate:   decimal.NewFromFloat(cfg.Safety.MaxKmRate),
	})

	clients := clientregistry.NewConfigClientRegistry(cfg.Clients)
	memory := bookingapp.NewCorrectionMemory(log)

	pipeline := bookingapp.NewBookingPipeline(
		overseer,
		bookingRepo,
		correctionRepo,
		memory,
		clients,
		eventBus,
		log,
		bookingapp.PipelineConfig{
			AutoApproveEnabled:   cfg.Pipeline.AutoApproveEnabled,
			AutoApproveThreshold: cfg.Pipeline.AutoApproveThreshold,
			PersistenceDriver:    cfg.Database.Driver,
		},
	)

	// The hint store is derived state: replay the correction log on boot
	if err := pipeline.RebuildMemory(context.Background()); err != nil {
		log.Fatal("Failed to rebuild correction memory", zap.Error(err))
	}
	log.Info("Correction memory rebuilt from log")

	var jwtService *auth.JWTService
	if cfg.JWT.Secret != "" {
		jwtService = auth.NewJWTService(cfg.JWT)
	} else {
		log.Warn("jwt.secret not set, approver identity falls back to X-Approver header")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	dto.RegisterValidators()

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxBodyBytes),
		middleware.ApproverIdentity(jwtService),
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewBookingHandler(pipeline)).
		Register(handler.NewOverseerHandler(pipeline)).
		Register(handler.NewSystemHandler(pipeline, db, version))
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	if err := eventBus.Stop(ctx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
