package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"clowdy/internal/database"
	"clowdy/models"
)

// maskedValue replaces secret env var values in API responses. The real
// value only ever leaves the database inside a sandbox's environment.
const maskedValue = "********"

// envVarResponse masks a secret's value for the wire.
func envVarResponse(v database.EnvVar) models.EnvVarResponse {
	value := v.Value
	if v.IsSecret {
		value = maskedValue
	}
	return models.EnvVarResponse{
		ID:        v.ID,
		Key:       v.Key,
		Value:     value,
		IsSecret:  v.IsSecret,
		CreatedAt: v.CreatedAt,
		UpdatedAt: v.UpdatedAt,
	}
}

// listEnvVars handles GET /api/projects/:id/env.
// @Summary      List a project's env vars
// @Description  Sorted by key. Secret values are masked.
// @Tags         env
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {array}   models.EnvVarResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/env [get]
func (h *Handler) listEnvVars(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	vars, err := h.repo.FindEnvVarsByProject(project.ID)
	if err != nil {
		internalError(c, err)
		return
	}

	out := make([]models.EnvVarResponse, 0, len(vars))
	for _, v := range vars {
		out = append(out, envVarResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

// setEnvVar handles POST /api/projects/:id/env.
// @Summary      Set an env var
// @Description  Creates the variable or overwrites an existing key (upsert).
// @Tags         env
// @Accept       json
// @Produce      json
// @Param        id    path      string                  true  "Project ID"
// @Param        body  body      models.SetEnvVarRequest  true  "Variable to set"
// @Success      200   {object}  models.EnvVarResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/env [post]
func (h *Handler) setEnvVar(c *gin.Context) {
	var req models.SetEnvVarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project := h.findProject(c)
	if project == nil {
		return
	}

	v, err := h.repo.FindEnvVar(project.ID, req.Key)
	if err != nil {
		internalError(c, err)
		return
	}
	if v == nil {
		v = &database.EnvVar{
			ID:        database.NewID(),
			ProjectID: project.ID,
			Key:       req.Key,
		}
	}
	v.Value = req.Value
	v.IsSecret = req.IsSecret

	if err := h.repo.SaveEnvVar(v); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, envVarResponse(*v))
}

// deleteEnvVar handles DELETE /api/projects/:id/env/:key.
// @Summary      Delete an env var
// @Tags         env
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Param        key  path      string  true  "Variable key"
// @Success      200  {object}  map[string]string  "detail: Env var deleted"
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/env/{key} [delete]
func (h *Handler) deleteEnvVar(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	key := c.Param("key")
	v, err := h.repo.FindEnvVar(project.ID, key)
	if err != nil {
		internalError(c, err)
		return
	}
	if v == nil {
		notFound(c, fmt.Sprintf("Env var '%s'", key))
		return
	}

	if err := h.repo.DeleteEnvVar(v.ID); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": fmt.Sprintf("Env var '%s' deleted", key)})
}
