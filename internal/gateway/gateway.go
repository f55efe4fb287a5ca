// Package gateway exposes deployed functions over public HTTP. A request
// to /api/gateway/{slug}/{path} is matched against the project's route
// table and the bound function runs with a synthesized event object.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clowdy/internal/database"
	"clowdy/internal/invoke"
)

const slugCacheTTL = 30 * time.Second

// Invoker runs resolved function code. Implemented by invoke.Orchestrator.
type Invoker interface {
	Invoke(ctx context.Context, req invoke.Request) invoke.Invocation
}

// Server routes external HTTP requests to functions. It is deliberately
// unauthenticated: routes are published endpoints meant to be called by
// external clients.
type Server struct {
	repo     *database.Repository
	resolver *invoke.Resolver
	invoker  Invoker
	slugs    *slugCache
}

// New creates a gateway Server.
func New(repo *database.Repository, resolver *invoke.Resolver, invoker Invoker) *Server {
	return &Server{
		repo:     repo,
		resolver: resolver,
		invoker:  invoker,
		slugs:    newSlugCache(slugCacheTTL),
	}
}

// InvalidateSlug removes a project slug from the lookup cache. Called
// when a project is renamed or deleted.
func (s *Server) InvalidateSlug(slug string) {
	s.slugs.Invalidate(slug)
}

// RegisterRoutes attaches the gateway endpoints to the engine (no auth).
func (s *Server) RegisterRoutes(r *gin.Engine) {
	grp := r.Group("/api/gateway")
	for _, method := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch,
	} {
		grp.Handle(method, "/:slug", s.handle)
		grp.Handle(method, "/:slug/*path", s.handle)
	}
}

func (s *Server) handle(c *gin.Context) {
	projectID, err := s.resolveSlug(c.Param("slug"))
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if projectID == "" {
		fail(c, http.StatusNotFound, "Project not found")
		return
	}

	routes, err := s.repo.FindRoutesInCreationOrder(projectID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if len(routes) == 0 {
		fail(c, http.StatusNotFound, "No routes configured for this project")
		return
	}

	method := c.Request.Method
	requestPath := normalizePath(c.Param("path"))
	route, params := matchRoute(routes, method, requestPath)
	if route == nil {
		fail(c, http.StatusNotFound, fmt.Sprintf("No route matches %s %s", method, requestPath))
		return
	}

	fn, err := s.repo.FindFunctionByID(route.FunctionID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if fn == nil || fn.Status != "active" {
		fail(c, http.StatusServiceUnavailable, "The function for this route is not available")
		return
	}

	event := buildEvent(c.Request, requestPath, params)

	version, err := s.repo.FindVersion(fn.ID, fn.ActiveVersion)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if version == nil {
		fail(c, http.StatusInternalServerError, "Active version not found")
		return
	}

	ec, err := s.resolver.Resolve(projectID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	inv := s.invoker.Invoke(c.Request.Context(), invoke.Request{
		Code:           version.Code,
		Input:          event,
		EnvVars:        ec.EnvVars,
		FunctionName:   fn.Name,
		Image:          ec.Image,
		NetworkEnabled: fn.NetworkEnabled,
	})

	s.record(fn.ID, event, inv, method, requestPath)

	if !inv.Success {
		fail(c, http.StatusInternalServerError, invoke.EncodeOutput(inv.Output))
		return
	}

	writeResponse(c, inv.Output)
}

// resolveSlug maps a project slug to its ID through the cache. Returns
// "" when no such project exists.
func (s *Server) resolveSlug(slug string) (string, error) {
	if id, ok := s.slugs.get(slug); ok {
		return id, nil
	}

	project, err := s.repo.FindProjectBySlug(slug)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", nil
	}

	s.slugs.set(slug, project.ID)
	return project.ID, nil
}

// record appends the invocation log entry. The response is already
// decided at this point, so persistence failures are only logged.
func (s *Server) record(functionID string, event map[string]any, inv invoke.Invocation, method, path string) {
	input, _ := json.Marshal(event)
	rec := &database.Invocation{
		ID:         database.NewID(),
		FunctionID: functionID,
		Input:      string(input),
		Output:     invoke.EncodeOutput(inv.Output),
		Status:     inv.Status(),
		DurationMs: inv.DurationMs,
		ColdStart:  inv.ColdStart,
		Source:     "gateway",
		HTTPMethod: method,
		HTTPPath:   path,
	}
	if err := s.repo.CreateInvocation(rec); err != nil {
		zap.L().Warn("failed to record invocation",
			zap.String("function_id", functionID), zap.Error(err))
	}
}

// writeResponse shapes the HTTP reply. A return value of the form
// {statusCode, headers?, body?} drives the response directly; any other
// value is wrapped as 200 JSON.
func writeResponse(c *gin.Context, output any) {
	m, ok := output.(map[string]any)
	if !ok {
		c.JSON(http.StatusOK, output)
		return
	}
	sc, ok := m["statusCode"]
	if !ok {
		c.JSON(http.StatusOK, output)
		return
	}

	status := http.StatusOK
	switch v := sc.(type) {
	case float64:
		status = int(v)
	case int:
		status = v
	}

	if hs, ok := m["headers"].(map[string]any); ok {
		for k, v := range hs {
			c.Header(k, fmt.Sprint(v))
		}
	}

	c.JSON(status, m["body"])
}

// fail writes the gateway's JSON error shape.
func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
