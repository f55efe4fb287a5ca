package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"clowdy/internal/api"
	"clowdy/internal/builder"
	"clowdy/internal/config"
	"clowdy/internal/database"
	"clowdy/internal/docker"
	"clowdy/internal/gateway"
	"clowdy/internal/invoke"
	"clowdy/internal/metrics"
	"clowdy/internal/neon"
	"clowdy/internal/pool"

	_ "clowdy/docs"
)

// @title           Clowdy API
// @version         1.0
// @description     Self-hosted serverless platform. Deploy Python functions, map HTTP routes to them, and run them in pooled Docker sandboxes.

// @host      localhost:8000
// @BasePath  /api

// @securityDefinitions.apikey ApiKeyAuth
// @in                         header
// @name                       Authorization
// @description                Bearer token, e.g. "Bearer my-api-key"

func main() {
	cfg := config.Load()

	logger := zap.Must(zap.NewProduction())
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db := database.New(cfg.DBPath)
	repo := database.NewRepository(db)

	dc, err := docker.New()
	if err != nil {
		zap.L().Fatal("docker client init failed", zap.Error(err))
	}
	zap.L().Info("docker client ready", zap.String("host", dc.Host()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	placement := invoke.NewPlacement(dc)
	p := pool.New(placement, pool.Config{
		MaxSize:     cfg.PoolSize,
		IdleTimeout: cfg.PoolIdleTimeout,
	})
	metrics.RegisterPoolGauge(p)
	go p.Run(ctx)

	b := builder.New(dc)
	resolver := invoke.NewResolver(repo)
	orch := invoke.NewOrchestrator(dc, placement, p)
	gw := gateway.New(repo, resolver, orch)

	startupChores(ctx, cfg, dc, b)

	h := api.New(repo, resolver, orch, b, neon.New(cfg.NeonAPIKey), p, gw)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "route not found",
		})
	})

	// Admin surface. The gateway and health check stay public.
	admin := r.Group("/api")
	if cfg.APIKey != "" {
		admin.Use(api.APIKeyAuth(cfg.APIKey))
	}

	h.RegisterHealthCheck(r)
	h.RegisterRoutes(admin)
	gw.RegisterRoutes(r)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: cfg.Addr, Handler: r}

	go func() {
		zap.L().Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("listen failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("server shutdown failed", zap.Error(err))
	}
	p.Shutdown()

	zap.L().Info("server stopped")
}

// startupChores makes the Docker side ready: clears sandboxes left over
// from a previous run and builds the base runtime image if missing. The
// server comes up even when Docker is down; invocations fail until it
// returns.
func startupChores(ctx context.Context, cfg *config.Config, dc *docker.Client, b *builder.Builder) {
	if err := dc.Ping(ctx); err != nil {
		zap.L().Warn("docker unreachable, skipping startup chores", zap.Error(err))
		return
	}

	if cfg.CleanupOrphans {
		ids, err := dc.ListManagedSandboxes(ctx)
		if err != nil {
			zap.L().Warn("orphan scan failed", zap.Error(err))
		}
		for _, id := range ids {
			if err := dc.DestroySandbox(ctx, id); err != nil {
				zap.L().Warn("orphan cleanup failed", zap.String("id", id), zap.Error(err))
				continue
			}
			zap.L().Info("destroyed orphaned sandbox", zap.String("id", id))
		}
	}

	if cfg.EnsureBaseImage {
		if err := b.EnsureBaseImage(ctx); err != nil {
			zap.L().Warn("base image build failed", zap.Error(err))
		}
	}
}
