package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"clowdy/internal/neon"
	"clowdy/models"
)

// getDatabase handles GET /api/projects/:id/database.
// @Summary      Get database status
// @Description  Whether the project has a provisioned Postgres database. The connection string is masked.
// @Tags         database
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  models.DatabaseResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/database [get]
func (h *Handler) getDatabase(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	c.JSON(http.StatusOK, models.DatabaseResponse{
		HasDatabase:   project.NeonProjectID != "",
		DatabaseURL:   neon.MaskConnectionString(project.DatabaseURL),
		NeonProjectID: project.NeonProjectID,
	})
}

// provisionDatabase handles POST /api/projects/:id/database/provision.
// @Summary      Provision a database
// @Description  Creates a Neon Postgres project for this project. The connection string is injected into sandboxes as DATABASE_URL.
// @Tags         database
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  models.DatabaseResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/database/provision [post]
func (h *Handler) provisionDatabase(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	if project.NeonProjectID != "" {
		conflict(c, "Project already has a database")
		return
	}
	if !h.neon.Configured() {
		serverError(c, "Neon API key not configured. Set NEON_API_KEY in .env.local")
		return
	}

	db, err := h.neon.Provision(c.Request.Context(), project.Slug)
	if err != nil {
		serverError(c, fmt.Sprintf("Failed to provision database: %v", err))
		return
	}

	project.NeonProjectID = db.ProjectID
	project.DatabaseURL = db.ConnectionURI
	if err := h.repo.SaveProject(project); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DatabaseResponse{
		HasDatabase:   true,
		DatabaseURL:   neon.MaskConnectionString(project.DatabaseURL),
		NeonProjectID: project.NeonProjectID,
	})
}

// deprovisionDatabase handles DELETE /api/projects/:id/database/deprovision.
// @Summary      Deprovision a database
// @Description  Deletes the project's Neon Postgres project and clears the stored connection string.
// @Tags         database
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  models.DatabaseResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/database/deprovision [delete]
func (h *Handler) deprovisionDatabase(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	if project.NeonProjectID == "" {
		badRequest(c, "Project does not have a database")
		return
	}

	if err := h.neon.Deprovision(c.Request.Context(), project.NeonProjectID); err != nil {
		serverError(c, fmt.Sprintf("Failed to deprovision database: %v", err))
		return
	}

	project.NeonProjectID = ""
	project.DatabaseURL = ""
	if err := h.repo.SaveProject(project); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DatabaseResponse{HasDatabase: false})
}
