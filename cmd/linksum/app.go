package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"linksum/internal/config"
	"linksum/internal/constants"
	"linksum/internal/dedup"
	"linksum/internal/delivery"
	"linksum/internal/logger"
	"linksum/internal/pipeline"
	"linksum/internal/rules"
	"linksum/internal/signature"
	"linksum/internal/slack"
	"linksum/internal/summarize"
	"linksum/pkg/health"
	"linksum/pkg/metrics"
	"linksum/pkg/middleware"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	redisClient *redis.Client
	scheduler   *delivery.Scheduler
	service     *pipeline.Service
	server      *http.Server
	router      *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

// initRedis connects the dedup backend. Redis is optional: without it the
// service still runs, with deduplication disabled.
func (a *App) initRedis(ctx context.Context) error {
	if !a.config.Redis.Enabled() {
		a.logger.WarnwCtx(ctx, "No redis configured, deduplication disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", a.config.Redis.Host, a.config.Redis.Port),
		Password: a.config.Redis.Password,
		DB:       a.config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	a.redisClient = client
	a.logger.InfowCtx(ctx, "Connected to redis",
		"host", a.config.Redis.Host,
		"port", a.config.Redis.Port,
	)
	return nil
}

func (a *App) initPipeline() error {
	var repo dedup.Repository
	if a.redisClient != nil {
		repo = dedup.NewRepository(a.redisClient)
		if a.config.CircuitBreaker.Enabled {
			repo = dedup.NewCircuitBreakerRepository(repo, a.config.CircuitBreaker)
		}
	}
	store := dedup.NewStore(repo, a.config.Deduplication, a.logger)

	ignore, err := rules.Compile(a.config.Rules.Ignore, a.logger)
	if err != nil {
		return fmt.Errorf("failed to compile ignore rules: %w", err)
	}
	if ignore.Len() > 0 {
		a.logger.Infow("Ignore rules compiled", "count", ignore.Len())
	}

	summarizer := summarize.NewClient(a.config.Summarizer, a.logger)
	poster := slack.NewClient(a.config.Slack.APIBaseURL, a.config.Slack.BotToken, a.logger)
	a.scheduler = delivery.NewScheduler(a.config.Delivery, a.logger)

	a.service = pipeline.NewService(
		store,
		summarizer,
		poster,
		a.scheduler,
		ignore,
		a.config.Extraction.MaxURLs,
		a.logger,
	)
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	verifier := signature.NewVerifier(
		a.config.Slack.SigningSecret,
		time.Duration(a.config.Slack.ReplayWindowSeconds)*time.Second,
	)
	handler := pipeline.NewHandler(a.service, verifier, a.config.Slack, a.logger)
	handler.RegisterRoutes(router)

	metrics.RegisterPipelineMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterDeliveryMetrics()
	metrics.RegisterResilienceMetrics()

	healthRegistry := health.NewCheckerRegistry()
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	var errs []error

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	// In-flight continuations finish before the scheduler stops, so queued
	// replies for already-acked events are not silently dropped mid-stage.
	if a.service != nil {
		a.service.Drain()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
