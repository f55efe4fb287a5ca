package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"clowdy/internal/builder"
	"clowdy/internal/metrics"
	"clowdy/models"
)

// getRequirements handles GET /api/projects/:id/requirements.
// @Summary      Get a project's pip dependencies
// @Description  The stored requirements.txt, its hash, and whether the custom image is present locally.
// @Tags         requirements
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  models.RequirementsResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/requirements [get]
func (h *Handler) getRequirements(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	hasImage := false
	if project.RequirementsHash != "" {
		image := builder.ImageName(project.ID, project.RequirementsHash)
		exists, err := h.builder.ImageExists(c.Request.Context(), image)
		if err != nil {
			internalError(c, err)
			return
		}
		hasImage = exists
	}

	c.JSON(http.StatusOK, models.RequirementsResponse{
		RequirementsTxt:  project.RequirementsTxt,
		RequirementsHash: project.RequirementsHash,
		HasCustomImage:   hasImage,
	})
}

// updateRequirements handles PUT /api/projects/:id/requirements.
// @Summary      Update a project's pip dependencies
// @Description  Builds a custom image with the packages installed. Empty requirements revert the project to the default runtime. An unchanged list with the image still present is a no-op.
// @Tags         requirements
// @Accept       json
// @Produce      json
// @Param        id    path      string                           true  "Project ID"
// @Param        body  body      models.UpdateRequirementsRequest  true  "requirements.txt content"
// @Success      200   {object}  models.RequirementsResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id}/requirements [put]
func (h *Handler) updateRequirements(c *gin.Context) {
	var req models.UpdateRequirementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project := h.findProject(c)
	if project == nil {
		return
	}

	txt := strings.TrimSpace(req.RequirementsTxt)
	if txt == "" {
		project.RequirementsTxt = ""
		project.RequirementsHash = ""
		if err := h.repo.SaveProject(project); err != nil {
			internalError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.RequirementsResponse{})
		return
	}

	// Unchanged requirements with the image still around: nothing to do.
	// A pruned image falls through to a rebuild.
	if builder.HashRequirements(txt) == project.RequirementsHash {
		exists, err := h.builder.ImageExists(c.Request.Context(), builder.ImageName(project.ID, project.RequirementsHash))
		if err != nil {
			internalError(c, err)
			return
		}
		if exists {
			c.JSON(http.StatusOK, models.RequirementsResponse{
				RequirementsTxt:  project.RequirementsTxt,
				RequirementsHash: project.RequirementsHash,
				HasCustomImage:   true,
			})
			return
		}
	}

	_, hash, err := h.builder.BuildProjectImage(c.Request.Context(), project.ID, txt)
	metrics.ObserveImageBuild(err)
	if err != nil {
		unprocessable(c, fmt.Sprintf("Failed to build image: %v", err))
		return
	}

	project.RequirementsTxt = txt
	project.RequirementsHash = hash
	if err := h.repo.SaveProject(project); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RequirementsResponse{
		RequirementsTxt:  project.RequirementsTxt,
		RequirementsHash: project.RequirementsHash,
		HasCustomImage:   true,
	})
}
