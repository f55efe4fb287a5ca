package api

import "github.com/gin-gonic/gin"

// RegisterHealthCheck attaches /api/health directly to the engine (no auth).
func (h *Handler) RegisterHealthCheck(r *gin.Engine) {
	r.GET("/api/health", h.healthCheck)
}

// RegisterRoutes attaches all admin endpoints to the given router group.
func (h *Handler) RegisterRoutes(grp *gin.RouterGroup) {
	grp.GET("/stats", h.getStats)
	grp.GET("/pool", h.getPoolStats)
	grp.POST("/invoke/:id", h.invokeFunction)

	fns := grp.Group("/functions")
	fns.POST("", h.createFunction)
	fns.GET("", h.listFunctions)
	fns.GET("/:id", h.getFunction)
	fns.PUT("/:id", h.updateFunction)
	fns.DELETE("/:id", h.deleteFunction)
	fns.GET("/:id/versions", h.listVersions)
	fns.POST("/:id/versions/:version/activate", h.activateVersion)
	fns.GET("/:id/invocations", h.listInvocations)

	projects := grp.Group("/projects")
	projects.POST("", h.createProject)
	projects.GET("", h.listProjects)
	projects.GET("/:id", h.getProject)
	projects.PUT("/:id", h.updateProject)
	projects.DELETE("/:id", h.deleteProject)
	projects.GET("/:id/functions", h.listProjectFunctions)
	projects.GET("/:id/routes", h.listRoutes)
	projects.POST("/:id/routes", h.createRoute)
	projects.PUT("/:id/routes/:routeId", h.updateRoute)
	projects.DELETE("/:id/routes/:routeId", h.deleteRoute)
	projects.GET("/:id/env", h.listEnvVars)
	projects.POST("/:id/env", h.setEnvVar)
	projects.DELETE("/:id/env/:key", h.deleteEnvVar)
	projects.GET("/:id/requirements", h.getRequirements)
	projects.PUT("/:id/requirements", h.updateRequirements)
	projects.GET("/:id/database", h.getDatabase)
	projects.POST("/:id/database/provision", h.provisionDatabase)
	projects.DELETE("/:id/database/deprovision", h.deprovisionDatabase)
}
