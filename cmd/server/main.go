package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/cmd/bootstrap"
	handlers "github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/handler"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/lifecycle"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/listeners"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/models"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/internal/task"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/cache"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/config"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/events"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/logger"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/metrics"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/middleware"
	"github.com/Abdulaziz-FS-AI/VoiceMatrix-747-sub000/pkg/resolver"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// 1. Parse Command Line Parameters
	mode := flag.String("mode", "", "running environment (development, test, production)")
	initSQL := flag.String("init-sql", "", "path to database init .sql script (optional)")
	flag.Parse()

	// 2. Set Environment Variables
	if *mode != "" {
		os.Setenv("APP_ENV", *mode)
	}

	// 3. Load Global Configuration
	if err := config.Load(); err != nil {
		panic("config load failed: " + err.Error())
	}
	cfg := config.GlobalConfig

	// 4. Load Log Configuration
	if err := logger.Init(&cfg.Log, cfg.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	// 5. Print Configuration
	bootstrap.LogConfigInfo()

	// 6. Load Global Cache
	if err := cache.InitGlobalCache(cfg.Cache); err != nil {
		logger.Error("failed to initialize cache", zap.Error(err))
		logger.Info("falling back to default local cache")
	}
	defer cache.CloseGlobalCache()

	// 7. Knowledge Base
	store, err := handlers.NewKnowledgeStore(cfg)
	if err != nil {
		logger.Error("knowledge base disabled", zap.Error(err))
		store = nil
	}
	embedder, err := handlers.NewEmbedder(cfg)
	if err != nil {
		logger.Error("embedding disabled", zap.Error(err))
		embedder = nil
	}

	// 8. Load Data Source
	db, err := bootstrap.SetupDatabase(os.Stdout, &bootstrap.Options{
		InitSQLPath:    *initSQL,
		AutoMigrate:    true,
		SeedNonProd:    cfg.Mode != "production",
		KnowledgeStore: store,
		Embedder:       embedder,
	})
	if err != nil {
		logger.Error("database setup failed", zap.Error(err))
		return
	}

	// 9. Metrics, events and listeners
	m := metrics.NewMetrics("")
	bus := events.GetEventBus()
	listeners.InitSystemListeners(bus, m)

	// 10. Pipeline components
	calls := models.NewCallRecordStore(db)
	tracker := lifecycle.NewTracker(calls, bus, m, cfg.Location())
	qaCache := resolver.NewCachedQASource(models.NewQAPairStore(db), cache.GetGlobalCache(), cfg.QACacheTTL)
	res := resolver.New(qaCache, embedder, store, resolver.Config{Timeout: cfg.ResolverTimeout}, m)

	// 11. Start Timed task
	var sweeper *cron.Cron
	if cfg.StaleSweepEnabled {
		sweeper, err = task.StartStaleSweeper(cfg.StaleSweepSchedule, cfg.StaleCallAfter, calls, tracker, m)
		if err != nil {
			logger.Error("Failed to start stale call sweeper", zap.Error(err))
		}
	}

	// 12. Initialize Gin Routing
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	// 13. use middleware
	r.Use(middleware.RequestID())
	r.Use(metrics.GinMiddleware(m))
	r.Use(middleware.LoggerMiddleware(logger.Lg))
	rateLimiter, err := middleware.RateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("invalid rate limit, rate limiting disabled", zap.Error(err))
	} else {
		r.Use(rateLimiter)
	}

	// 14. Register Routes
	h := handlers.NewHandlers(handlers.Options{
		DB:               db,
		Tracker:          tracker,
		Resolver:         res,
		QACache:          qaCache,
		Metrics:          m,
		WebhookSecret:    cfg.WebhookSecret,
		WebhookTolerance: cfg.WebhookTolerance,
		Location:         cfg.Location(),
		APIPrefix:        cfg.APIPrefix,
		MonitorPrefix:    cfg.MonitorPrefix,
	})
	h.Register(r)

	// 15. Start HTTP Server
	httpServer := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server run failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
	bus.Wait()
}
