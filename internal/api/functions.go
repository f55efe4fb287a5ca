package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clowdy/internal/database"
	"clowdy/internal/invoke"
	"clowdy/models"
)

// invocationHistoryLimit caps how many log entries a function's history
// endpoint returns.
const invocationHistoryLimit = 50

// findFunction loads the function named by the :id param, writing a 404
// when it does not exist. Callers must return when they get nil back.
func (h *Handler) findFunction(c *gin.Context) *database.Function {
	fn, err := h.repo.FindFunctionByID(c.Param("id"))
	if err != nil {
		internalError(c, err)
		return nil
	}
	if fn == nil {
		notFound(c, "Function")
		return nil
	}
	return fn
}

// loadActiveCode fills fn.Code from its active version. A missing version
// row leaves the code empty rather than failing the request.
func (h *Handler) loadActiveCode(fn *database.Function) error {
	version, err := h.repo.FindVersion(fn.ID, fn.ActiveVersion)
	if err != nil {
		return err
	}
	if version != nil {
		fn.Code = version.Code
	}
	return nil
}

// createFunction handles POST /api/functions.
// @Summary      Create a function
// @Description  Creates the function and stores its code as version 1, which becomes active.
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateFunctionRequest  true  "Function to create"
// @Success      200   {object}  database.Function
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions [post]
func (h *Handler) createFunction(c *gin.Context) {
	var req models.CreateFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if req.ProjectID != "" {
		project, err := h.repo.FindProjectByID(req.ProjectID)
		if err != nil {
			internalError(c, err)
			return
		}
		if project == nil {
			notFound(c, "Project")
			return
		}
	}

	runtime := req.Runtime
	if runtime == "" {
		runtime = "python"
	}

	fn := &database.Function{
		ID:             database.NewID(),
		ProjectID:      req.ProjectID,
		Name:           req.Name,
		Description:    req.Description,
		Runtime:        runtime,
		Status:         "active",
		NetworkEnabled: req.NetworkEnabled,
		ActiveVersion:  1,
	}
	if err := h.repo.CreateFunctionWithVersion(fn, req.Code); err != nil {
		internalError(c, err)
		return
	}

	fn.Code = req.Code
	c.JSON(http.StatusOK, fn)
}

// listFunctions handles GET /api/functions.
// @Summary      List functions
// @Description  Every function across all projects, newest first. Code is omitted from list entries.
// @Tags         functions
// @Produce      json
// @Success      200  {array}   database.Function
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions [get]
func (h *Handler) listFunctions(c *gin.Context) {
	fns, err := h.repo.FindAllFunctions()
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, fns)
}

// listProjectFunctions handles GET /api/projects/:id/functions.
// @Summary      List a project's functions
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {array}   database.Function
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/functions [get]
func (h *Handler) listProjectFunctions(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	fns, err := h.repo.FindFunctionsByProject(project.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, fns)
}

// getFunction handles GET /api/functions/:id.
// @Summary      Get a function
// @Description  Returns the function with its active version's code.
// @Tags         functions
// @Produce      json
// @Param        id   path      string  true  "Function ID"
// @Success      200  {object}  database.Function
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id} [get]
func (h *Handler) getFunction(c *gin.Context) {
	fn := h.findFunction(c)
	if fn == nil {
		return
	}
	if err := h.loadActiveCode(fn); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, fn)
}

// updateFunction handles PUT /api/functions/:id.
// @Summary      Update a function
// @Description  Only provided fields change. New code is appended as the next version and activated.
// @Tags         functions
// @Accept       json
// @Produce      json
// @Param        id    path      string                       true  "Function ID"
// @Param        body  body      models.UpdateFunctionRequest  true  "Fields to update"
// @Success      200   {object}  database.Function
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id} [put]
func (h *Handler) updateFunction(c *gin.Context) {
	var req models.UpdateFunctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	fn := h.findFunction(c)
	if fn == nil {
		return
	}

	if req.Name != nil {
		fn.Name = *req.Name
	}
	if req.Description != nil {
		fn.Description = *req.Description
	}
	if req.Status != nil {
		fn.Status = *req.Status
	}
	if req.NetworkEnabled != nil {
		fn.NetworkEnabled = *req.NetworkEnabled
	}

	if req.Code != nil {
		if _, err := h.repo.AppendVersion(fn, *req.Code); err != nil {
			internalError(c, err)
			return
		}
		fn.Code = *req.Code
	} else {
		if err := h.repo.SaveFunction(fn); err != nil {
			internalError(c, err)
			return
		}
		if err := h.loadActiveCode(fn); err != nil {
			internalError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, fn)
}

// deleteFunction handles DELETE /api/functions/:id.
// @Summary      Delete a function
// @Description  Deletes the function with its versions, routes, and invocation history.
// @Tags         functions
// @Produce      json
// @Param        id   path      string  true  "Function ID"
// @Success      200  {object}  map[string]string  "detail: Function deleted"
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id} [delete]
func (h *Handler) deleteFunction(c *gin.Context) {
	fn := h.findFunction(c)
	if fn == nil {
		return
	}

	if err := h.repo.DeleteFunction(fn.ID); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "Function deleted"})
}

// listVersions handles GET /api/functions/:id/versions.
// @Summary      List a function's versions
// @Description  All code snapshots, newest first.
// @Tags         functions
// @Produce      json
// @Param        id   path      string  true  "Function ID"
// @Success      200  {array}   database.FunctionVersion
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id}/versions [get]
func (h *Handler) listVersions(c *gin.Context) {
	fn := h.findFunction(c)
	if fn == nil {
		return
	}

	versions, err := h.repo.FindVersions(fn.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// activateVersion handles POST /api/functions/:id/versions/:version/activate.
// @Summary      Activate a version
// @Description  Points the function at an existing version. Subsequent invocations run that code.
// @Tags         functions
// @Produce      json
// @Param        id       path      string  true  "Function ID"
// @Param        version  path      int     true  "Version number"
// @Success      200      {object}  database.Function
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id}/versions/{version}/activate [post]
func (h *Handler) activateVersion(c *gin.Context) {
	fn := h.findFunction(c)
	if fn == nil {
		return
	}

	number, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		badRequest(c, "invalid version number")
		return
	}

	version, err := h.repo.FindVersion(fn.ID, number)
	if err != nil {
		internalError(c, err)
		return
	}
	if version == nil {
		notFound(c, "Version")
		return
	}

	fn.ActiveVersion = number
	if err := h.repo.SaveFunction(fn); err != nil {
		internalError(c, err)
		return
	}

	fn.Code = version.Code
	c.JSON(http.StatusOK, fn)
}

// listInvocations handles GET /api/functions/:id/invocations.
// @Summary      List invocation logs
// @Description  The function's most recent invocations, newest first, capped at 50.
// @Tags         functions
// @Produce      json
// @Param        id   path      string  true  "Function ID"
// @Success      200  {array}   database.Invocation
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /functions/{id}/invocations [get]
func (h *Handler) listInvocations(c *gin.Context) {
	fn := h.findFunction(c)
	if fn == nil {
		return
	}

	invs, err := h.repo.FindInvocationsByFunction(fn.ID, invocationHistoryLimit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, invs)
}

// invokeFunction handles POST /api/invoke/:id.
// @Summary      Invoke a function
// @Description  Runs the function's active version with the given input and logs the invocation.
// @Tags         invoke
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "Function ID"
// @Param        body  body      models.InvokeRequest  true  "Invocation input"
// @Success      200   {object}  models.InvokeResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /invoke/{id} [post]
func (h *Handler) invokeFunction(c *gin.Context) {
	var req models.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	fn := h.findFunction(c)
	if fn == nil {
		return
	}
	if fn.Status != "active" {
		badRequest(c, fmt.Sprintf("Function is not active (status: %s)", fn.Status))
		return
	}

	version, err := h.repo.FindVersion(fn.ID, fn.ActiveVersion)
	if err != nil {
		internalError(c, err)
		return
	}
	if version == nil {
		serverError(c, "Active version not found")
		return
	}

	ec, err := h.resolver.Resolve(fn.ProjectID)
	if err != nil {
		internalError(c, err)
		return
	}

	inv := h.invoker.Invoke(c.Request.Context(), invoke.Request{
		Code:           version.Code,
		Input:          req.Input,
		EnvVars:        ec.EnvVars,
		FunctionName:   fn.Name,
		Image:          ec.Image,
		NetworkEnabled: fn.NetworkEnabled,
	})

	inputJSON, _ := json.Marshal(req.Input)
	record := &database.Invocation{
		ID:         database.NewID(),
		FunctionID: fn.ID,
		Input:      string(inputJSON),
		Output:     invoke.EncodeOutput(inv.Output),
		Status:     inv.Status(),
		DurationMs: inv.DurationMs,
		ColdStart:  inv.ColdStart,
		Source:     "direct",
	}
	if err := h.repo.CreateInvocation(record); err != nil {
		internalError(c, err)
		return
	}

	resp := models.InvokeResponse{
		Success:      inv.Success,
		DurationMs:   inv.DurationMs,
		InvocationID: record.ID,
		ColdStart:    inv.ColdStart,
	}
	if inv.Success {
		resp.Output = inv.Output
	} else {
		resp.Error = inv.Output
	}
	c.JSON(http.StatusOK, resp)
}
