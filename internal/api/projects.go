package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clowdy/internal/database"
	"clowdy/models"
)

// findProject loads the project named by the :id param, writing a 404
// when it does not exist. Callers must return when they get nil back.
func (h *Handler) findProject(c *gin.Context) *database.Project {
	project, err := h.repo.FindProjectByID(c.Param("id"))
	if err != nil {
		internalError(c, err)
		return nil
	}
	if project == nil {
		notFound(c, "Project")
		return nil
	}
	return project
}

// createProject handles POST /api/projects.
// @Summary      Create a project
// @Description  Create a project with an auto-generated unique slug derived from its name.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        body  body      models.CreateProjectRequest  true  "Project to create"
// @Success      200   {object}  database.Project
// @Failure      400   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects [post]
func (h *Handler) createProject(c *gin.Context) {
	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	slug, err := uniqueSlug(h.repo, slugify(req.Name))
	if err != nil {
		internalError(c, err)
		return
	}

	project := &database.Project{
		ID:          database.NewID(),
		Name:        req.Name,
		Slug:        slug,
		Description: req.Description,
		Status:      "active",
	}
	if err := h.repo.CreateProject(project); err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// listProjects handles GET /api/projects.
// @Summary      List projects
// @Description  All projects newest first, each with its function count.
// @Tags         projects
// @Produce      json
// @Success      200  {array}   database.Project
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects [get]
func (h *Handler) listProjects(c *gin.Context) {
	projects, err := h.repo.FindAllProjects()
	if err != nil {
		internalError(c, err)
		return
	}
	counts, err := h.repo.FunctionCountsByProject()
	if err != nil {
		internalError(c, err)
		return
	}
	for i := range projects {
		projects[i].FunctionCount = counts[projects[i].ID]
	}
	c.JSON(http.StatusOK, projects)
}

// getProject handles GET /api/projects/:id.
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  database.Project
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id} [get]
func (h *Handler) getProject(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	n, err := h.repo.CountFunctionsByProject(project.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	project.FunctionCount = n
	c.JSON(http.StatusOK, project)
}

// updateProject handles PUT /api/projects/:id.
// @Summary      Update a project
// @Description  Only provided fields change. Renaming regenerates the slug; the old slug stops routing.
// @Tags         projects
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true  "Project ID"
// @Param        body  body      models.UpdateProjectRequest  true  "Fields to update"
// @Success      200   {object}  database.Project
// @Failure      400   {object}  ErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id} [put]
func (h *Handler) updateProject(c *gin.Context) {
	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	project := h.findProject(c)
	if project == nil {
		return
	}

	oldSlug := project.Slug
	if req.Name != nil {
		slug, err := uniqueSlug(h.repo, slugify(*req.Name))
		if err != nil {
			internalError(c, err)
			return
		}
		project.Name = *req.Name
		project.Slug = slug
	}
	if req.Description != nil {
		project.Description = *req.Description
	}

	if err := h.repo.SaveProject(project); err != nil {
		internalError(c, err)
		return
	}
	if project.Slug != oldSlug {
		h.slugs.InvalidateSlug(oldSlug)
	}

	n, err := h.repo.CountFunctionsByProject(project.ID)
	if err != nil {
		internalError(c, err)
		return
	}
	project.FunctionCount = n
	c.JSON(http.StatusOK, project)
}

// deleteProject handles DELETE /api/projects/:id.
// @Summary      Delete a project
// @Description  Deletes the project and everything under it: functions, versions, routes, env vars, invocation history.
// @Tags         projects
// @Produce      json
// @Param        id   path      string  true  "Project ID"
// @Success      200  {object}  map[string]string  "detail: Project deleted"
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Security     ApiKeyAuth
// @Router       /projects/{id} [delete]
func (h *Handler) deleteProject(c *gin.Context) {
	project := h.findProject(c)
	if project == nil {
		return
	}

	if err := h.repo.DeleteProject(project.ID); err != nil {
		internalError(c, err)
		return
	}
	h.slugs.InvalidateSlug(project.Slug)
	c.JSON(http.StatusOK, gin.H{"detail": "Project deleted"})
}
