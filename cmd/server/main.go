// Package main runs the feedback HTTP server with dashboard WebSocket push and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aura-webinar/feedbackhub/config"
	"github.com/aura-webinar/feedbackhub/internal/auth"
	"github.com/aura-webinar/feedbackhub/internal/bootstrap"
	"github.com/aura-webinar/feedbackhub/internal/collector"
	"github.com/aura-webinar/feedbackhub/internal/dashboard"
	"github.com/aura-webinar/feedbackhub/internal/middleware"
	"github.com/aura-webinar/feedbackhub/internal/notify"
	"github.com/aura-webinar/feedbackhub/internal/realtime"
	"github.com/aura-webinar/feedbackhub/internal/reviews"
	"github.com/aura-webinar/feedbackhub/internal/sentiment"
	"github.com/aura-webinar/feedbackhub/internal/worker"
	"github.com/aura-webinar/feedbackhub/pkg/queue"
	"github.com/aura-webinar/feedbackhub/pkg/response"
	"github.com/aura-webinar/feedbackhub/pkg/storage"
)

func main() {
	logger := bootstrap.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	origin := uuid.NewString()
	infra, err := bootstrap.Open(ctx, cfg, origin, logger)
	if err != nil {
		logger.Fatal("open infrastructure", zap.Error(err))
	}
	defer infra.Close()

	// Change signals: same-process writes go through the bus, other instances' writes
	// arrive through the store backend when it can report them.
	bus := notify.NewBus()
	sources := notify.Multi{bus}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if infra.Watcher != nil {
		storageSignal := notify.NewStorageSignal(infra.Watcher, cfg.Store.Key, logger)
		if err := storageSignal.Start(watchCtx); err != nil {
			logger.Warn("cross-instance change signal unavailable", zap.Error(err))
		} else {
			defer storageSignal.Stop()
			sources = append(sources, storageSignal)
		}
	}

	store := reviews.NewStore(infra.Store, cfg.Store.Key, bus, logger)
	collect := collector.NewCollector(store, clockwork.NewRealClock(), sentiment.ForSurvey(cfg.Survey.Policy), logger)
	registry := dashboard.NewRegistry(store, sources, logger)
	hub := realtime.NewHub(sources, logger)

	// Export: enqueue to redis, processed by an in-process worker and, for shared
	// store backends, by cmd/worker.
	var exporter dashboard.Exporter
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if cfg.AWS.ExportBucket != "" && infra.Redis != nil {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportBucket:         cfg.AWS.ExportBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("S3 unavailable, review export disabled", zap.Error(err))
		} else {
			jobQueue := queue.NewQueue(infra.Redis.Client, logger)
			exporter = jobQueue
			go worker.NewExportProcessor(store, s3Client, jobQueue, nil, logger).Run(workerCtx)
			logger.Info("export worker started", zap.String("bucket", cfg.AWS.ExportBucket))
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger, "/health", "/metrics"))

	router.NoRoute(func(c *gin.Context) { response.NotFound(c, "route not found") })
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	collectorHandler := collector.NewHandler(collect)
	api := router.Group("/api")
	api.GET("/topics", collectorHandler.Topics)
	api.POST("/feedback", collectorHandler.SubmitSurvey)
	api.POST("/messages", collectorHandler.SubmitMessage)

	gateMW := middleware.Ungated()
	if cfg.Admin.Gate {
		gateMW = setupAuth(ctx, router, cfg, infra, registry, hub, logger)
	}

	dashboardHandler := dashboard.NewHandler(registry, exporter)
	dash := api.Group("/dashboard", gateMW)
	dash.GET("", dashboardHandler.Get)
	dash.PUT("/filter", dashboardHandler.SetFilter)
	dash.POST("/presentation", dashboardHandler.EnterPresentation)
	dash.GET("/presentation", dashboardHandler.Current)
	dash.DELETE("/presentation", dashboardHandler.ExitPresentation)
	dash.POST("/presentation/next", dashboardHandler.Next)
	dash.POST("/presentation/previous", dashboardHandler.Previous)
	dash.POST("/export", dashboardHandler.Export)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", gateMW, realtime.ServeWs(hub, cfg.Server.CORSOrigins(), func(c *gin.Context) string {
		return c.GetString(middleware.ContextOwner)
	}, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("origin", origin))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// setupAuth mounts the login routes and returns the admin gate middleware.
func setupAuth(ctx context.Context, router *gin.Engine, cfg *config.Config, infra *bootstrap.Infra,
	registry *dashboard.Registry, hub *realtime.Hub, logger *zap.Logger) gin.HandlerFunc {
	var (
		users auth.Directory
		seed  func(email, password string) error
	)
	if infra.Pool != nil {
		repo := auth.NewRepository(infra.Pool)
		users = repo
		seed = func(email, password string) error {
			_, err := auth.SeedAdmin(ctx, repo, email, password)
			return err
		}
	} else {
		mem := auth.NewMemoryDirectory()
		users = mem
		seed = func(email, password string) error {
			_, err := auth.SeedAdmin(ctx, mem, email, password)
			return err
		}
	}
	if cfg.Admin.Email != "" {
		if err := seed(cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Fatal("seed admin", zap.Error(err))
		}
		logger.Info("admin account ready", zap.String("email", cfg.Admin.Email))
	} else if infra.Pool == nil {
		logger.Warn("admin gate enabled without ADMIN_EMAIL; nobody can sign in")
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker(10 * time.Minute)
	if infra.Redis != nil {
		revoker = auth.NewRedisRevoker(infra.Redis.Client)
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	gate := auth.NewGate(auth.NewService(jwtService, users, revoker), logger)
	authHandler := auth.NewHandler(users, jwtService, gate, func(owner string) {
		registry.Drop(owner)
		hub.DisconnectOwner(owner)
	}, logger)

	authGroup := router.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	return middleware.AdminGate(gate)
}
