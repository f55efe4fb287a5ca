// Package api implements the admin HTTP surface: projects, functions,
// versions, routes, env vars, requirements, database provisioning, and
// direct invocation. The public gateway lives in internal/gateway.
package api

import (
	"context"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"clowdy/internal/builder"
	"clowdy/internal/database"
	"clowdy/internal/invoke"
	"clowdy/internal/neon"
	"clowdy/internal/pool"
	"clowdy/models"
)

// Invoker executes one resolved function invocation.
type Invoker interface {
	Invoke(ctx context.Context, req invoke.Request) invoke.Invocation
}

// NeonClient provisions and tears down per-project Postgres databases.
type NeonClient interface {
	Configured() bool
	Provision(ctx context.Context, name string) (neon.Database, error)
	Deprovision(ctx context.Context, neonProjectID string) error
}

// SlugInvalidator drops a project slug from the gateway's lookup cache.
// Called on project rename and delete so stale slugs stop resolving.
type SlugInvalidator interface {
	InvalidateSlug(slug string)
}

// Handler holds dependencies for all API handlers.
type Handler struct {
	repo     *database.Repository
	resolver *invoke.Resolver
	invoker  Invoker
	builder  *builder.Builder
	neon     NeonClient
	pool     *pool.Pool
	slugs    SlugInvalidator
}

// New creates a Handler with the given dependencies.
func New(repo *database.Repository, resolver *invoke.Resolver, invoker Invoker, b *builder.Builder, n NeonClient, p *pool.Pool, slugs SlugInvalidator) *Handler {
	return &Handler{
		repo:     repo,
		resolver: resolver,
		invoker:  invoker,
		builder:  b,
		neon:     n,
		pool:     p,
		slugs:    slugs,
	}
}

// healthCheck handles GET /api/health.
// @Summary      Health check
// @Description  Returns ok. Always public, never behind auth.
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string  "status: ok"
// @Router       /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getStats handles GET /api/stats.
// @Summary      Platform statistics
// @Description  Totals across all projects: function count, invocation count, success rate, mean duration.
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.StatsResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /stats [get]
func (h *Handler) getStats(c *gin.Context) {
	totalFunctions, err := h.repo.CountFunctions()
	if err != nil {
		internalError(c, err)
		return
	}
	totalInvocations, err := h.repo.CountInvocations()
	if err != nil {
		internalError(c, err)
		return
	}
	successful, err := h.repo.CountInvocationsByStatus("success")
	if err != nil {
		internalError(c, err)
		return
	}
	avg, err := h.repo.AvgInvocationDuration()
	if err != nil {
		internalError(c, err)
		return
	}

	var successRate int64
	if totalInvocations > 0 {
		successRate = int64(math.Round(float64(successful) / float64(totalInvocations) * 100))
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		TotalFunctions:   totalFunctions,
		TotalInvocations: totalInvocations,
		SuccessRate:      successRate,
		AvgDurationMs:    int64(math.Round(avg)),
	})
}

// getPoolStats handles GET /api/pool.
// @Summary      Warm pool statistics
// @Description  Snapshot of the warm sandbox pool: total idle, capacity, and per-variant counts.
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.PoolStatsResponse
// @Security     ApiKeyAuth
// @Router       /pool [get]
func (h *Handler) getPoolStats(c *gin.Context) {
	c.JSON(http.StatusOK, models.PoolStatsResponse{
		Total: h.pool.Size(),
		Max:   h.pool.Max(),
		ByKey: h.pool.Stats(),
	})
}
