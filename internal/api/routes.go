package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"clowdy/internal/database"
	"clowdy/models"
)

// routeMethods are the accepted route methods, sorted for the error
// message. ANY matches every method at dispatch time.
var routeMethods = []string{"ANY", "DELETE", "GET", "PATCH", "POST", "PUT"}

// normalizeMethod uppercases the method and reports whether it is accepted.
func normalizeMethod(method string) (string, bool) {
	m := strings.ToUpper(method)
	return m, slices.Contains(routeMethods, m)
}

// normalizeRoutePath mirrors the gateway's request path normalization so
// stored patterns and incoming paths compare in the same form: a single
// leading slash, no trailing slashes, root stays "/".
func normalizeRoutePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}

// invalidMethod writes the 400 for a rejected route method.
func invalidMethod(c *gin.Context, method string) {
	badRequest(c, fmt.Sprintf("Invalid method '%s'. Must be one of: %s", method, strings.Join(routeMethods, ", ")))
}

// findRoute loads the route named by the :routeId param, writing a 404
// when it does not exist or belongs to a different project.
func (h *Handler) findRoute(c *gin.Context, projectID string) *database.Route {
	route, err := h.repo.FindRouteByID(c.Param("routeId"))
	if err != nil {
		internalError(c, err)
		return nil
	}
	if route == nil || route.ProjectID != projectID {
		notFound(c, "Route")
		return nil
	}
	return route
}

// functionInProject reports whether the function exists and belongs to
// the project. A false with no error means the caller should 400.
func (h *Handler) functionInProject(functionID, projectID string) (bool, error) {
	fn, err := h.repo.FindFunctionByID(functionID)
	if err != nil {
		return false, err
	}
	return fn != nil && fn.ProjectID == projectID, nil
}

// listRoutes handles GET /api/projects/:id/routes.
// @Summary      List a project's routes
// @Description  Sorted by path then method for stable display. The gateway matches in creation order.
// @Tags         routes
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {array}   database.Route
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/routes [get]
func (h *Handler) listRoutes(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	routes, err := h.repo.FindRoutesByProject(project.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

// createRoute handles POST /api/projects/:id/routes.
// @Summary      Create a route
// @Description  Maps a method + path pattern to a function in the project. Path segments starting with ":" capture parameters.
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Project ID"
// @Param        body  body      models.CreateRouteRequest  true  "Route to create"
// @Success      200   {object}  database.Route
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/routes [post]
func (h *Handler) createRoute(c *gin.Context) {
	var req models.CreateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project := h.findProject(c)
	if project == nil {
		return
	}

	method, ok := normalizeMethod(req.Method)
	if !ok {
		invalidMethod(c, method)
		return
	}
	path := normalizeRoutePath(req.Path)

	inProject, err := h.functionInProject(req.FunctionID, project.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	if !inProject {
		badRequest(c, "Function not found in this project")
		return
	}

	existing, err := h.repo.FindRouteByMethodPath(project.ID, method, path)
	if err != nil {
		internalError(c, err)
		return
	}
	if existing != nil {
		conflict(c, fmt.Sprintf("Route %s %s already exists in this project", method, path))
		return
	}

	route := &database.Route{
		ID:          database.NewID(),
		ProjectID:   project.ID,
		FunctionID:  req.FunctionID,
		Method:      method,
		Path:        path,
		Description: req.Description,
	}
	if err := h.repo.CreateRoute(route); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, route)
}

// updateRoute handles PUT /api/projects/:id/routes/:routeId.
// @Summary      Update a route
// @Description  Only provided fields change, with the same validation as creation.
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Project ID"
// @Param        routeId  path      string                    true  "Route ID"
// @Param        body     body      models.UpdateRouteRequest  true  "Fields to update"
// @Success      200      {object}  database.Route
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/routes/{routeId} [put]
func (h *Handler) updateRoute(c *gin.Context) {
	var req models.UpdateRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project := h.findProject(c)
	if project == nil {
		return
	}
	route := h.findRoute(c, project.ID)
	if route == nil {
		return
	}

	if req.Method != nil {
		method, ok := normalizeMethod(*req.Method)
		if !ok {
			invalidMethod(c, method)
			return
		}
		route.Method = method
	}
	if req.Path != nil {
		route.Path = normalizeRoutePath(*req.Path)
	}
	if req.FunctionID != nil {
		inProject, err := h.functionInProject(*req.FunctionID, project.ID)
		if err != nil {
			internalError(c, err)
			return
		}
		if !inProject {
			badRequest(c, "Function not found in this project")
			return
		}
		route.FunctionID = *req.FunctionID
	}
	if req.Description != nil {
		route.Description = *req.Description
	}

	if err := h.repo.SaveRoute(route); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// deleteRoute handles DELETE /api/projects/:id/routes/:routeId.
// @Summary      Delete a route
// @Tags         routes
// @Produce      json
// @Param        id       path      string  true  "Project ID"
// @Param        routeId  path      string  true  "Route ID"
// @Success      200      {object}  map[string]string  "detail: Route deleted"
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/routes/{routeId} [delete]
func (h *Handler) deleteRoute(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}
	route := h.findRoute(c, project.ID)
	if route == nil {
		return
	}

	if err := h.repo.DeleteRoute(route.ID); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Route deleted"})
}
