package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/wyfcoding/binomialpricing/internal/pricing/application"
	resultcache "github.com/wyfcoding/binomialpricing/internal/pricing/infrastructure/cache"
	httphandler "github.com/wyfcoding/binomialpricing/internal/pricing/interfaces/http"
	"github.com/wyfcoding/binomialpricing/pkg/cache"
	"github.com/wyfcoding/binomialpricing/pkg/config"
	"github.com/wyfcoding/binomialpricing/pkg/logger"
	"github.com/wyfcoding/binomialpricing/pkg/metrics"
	"github.com/wyfcoding/binomialpricing/pkg/middleware"
	"github.com/wyfcoding/binomialpricing/pkg/ratelimit"
)

const BootstrapName = "pricing"

// AppContext 服务运行所需的全部依赖
type AppContext struct {
	AppService *application.PricingService
	Limiter    ratelimit.RateLimiter
	Config     *config.Config
	Metrics    *metrics.Metrics
}

func main() {
	configPath := flag.String("config", "configs/pricing/config.toml", "path to TOML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// .env 只用于本地开发，文件不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(cfg.ServiceName)
	appCtx, cleanup, err := initService(cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	engine := gin.New()
	registerGin(engine, appCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Port != 0 && cfg.Metrics.Port != cfg.HTTP.Port {
		metricsSrv = m.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "service", cfg.ServiceName, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutting down", "service", cfg.ServiceName)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}

func registerGin(e *gin.Engine, ctx *AppContext) {
	e.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinCORSMiddleware(),
		middleware.GinMetricsMiddleware(ctx.Metrics),
		middleware.RateLimitMiddleware(ctx.Limiter, ctx.Config.RateLimit),
	)

	httpHandler := httphandler.NewPricingHandler(ctx.AppService)
	httpHandler.RegisterRoutes(e)
	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   ctx.Config.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})

	mc := ctx.Config.Metrics
	if mc.Enabled && (mc.Port == 0 || mc.Port == ctx.Config.HTTP.Port) {
		e.GET(mc.Path, gin.WrapH(ctx.Metrics.Handler()))
	}
	logger.Info(context.Background(), "HTTP routes registered", "service", BootstrapName)
}

func initService(c *config.Config, m *metrics.Metrics) (*AppContext, func(), error) {
	logger.Info(context.Background(), "initializing service dependencies...")

	var resultCache application.ResultCache
	var limiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter()
	cleanup := func() {}
	if c.Redis.Enabled {
		redisCache, err := cache.New(cache.Config{
			Host:         c.Redis.Host,
			Port:         c.Redis.Port,
			Password:     c.Redis.Password,
			DB:           c.Redis.DB,
			MaxPoolSize:  c.Redis.MaxPoolSize,
			ConnTimeout:  c.Redis.ConnTimeout,
			ReadTimeout:  c.Redis.ReadTimeout,
			WriteTimeout: c.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		resultCache = resultcache.NewRedisResultCache(redisCache, "")
		limiter = ratelimit.NewRedisRateLimiter(redisCache.Client())
		cleanup = func() {
			logger.Info(context.Background(), "cleaning up resources...")
			_ = redisCache.Close()
		}
	}

	appService := application.NewPricingService(application.Config{
		DefaultSteps: c.Lattice.DefaultSteps,
		MaxSteps:     c.Lattice.MaxSteps,
		DefaultKind:  c.Lattice.DefaultKind,
		BatchWorkers: c.Lattice.BatchWorkers,
		MaxBatchSize: c.Lattice.MaxBatchSize,
		CacheTTL:     time.Duration(c.Lattice.CacheTTL) * time.Second,
	}, resultCache, m)

	return &AppContext{
		AppService: appService,
		Limiter:    limiter,
		Config:     c,
		Metrics:    m,
	}, cleanup, nil
}
