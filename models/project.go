package models

// CreateProjectRequest is the body for POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateProjectRequest is the body for PUT /api/projects/:id
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateRequirementsRequest is the body for PUT /api/projects/:id/requirements.
// An empty requirements_txt clears the custom image and reverts the project
// to the default runtime.
type UpdateRequirementsRequest struct {
	RequirementsTxt string `json:"requirements_txt"`
}

// RequirementsResponse is the response for GET/PUT /api/projects/:id/requirements
type RequirementsResponse struct {
	RequirementsTxt  string `json:"requirements_txt"`
	RequirementsHash string `json:"requirements_hash"`
	HasCustomImage   bool   `json:"has_custom_image"`
}

// DatabaseResponse is the response for the project database endpoints.
// DatabaseURL is always masked; the real connection string is only ever
// injected into sandboxes as DATABASE_URL.
type DatabaseResponse struct {
	HasDatabase   bool   `json:"has_database"`
	DatabaseURL   string `json:"database_url"`
	NeonProjectID string `json:"neon_project_id"`
}

// StatsResponse is the response for GET /api/stats
type StatsResponse struct {
	TotalFunctions   int64 `json:"total_functions"`
	TotalInvocations int64 `json:"total_invocations"`
	SuccessRate      int64 `json:"success_rate"`
	AvgDurationMs    int64 `json:"avg_duration_ms"`
}

// PoolStatsResponse is the response for GET /api/pool. ByKey is keyed by
// "image|net=bool" and counts idle sandboxes per variant.
type PoolStatsResponse struct {
	Total int            `json:"total"`
	Max   int            `json:"max"`
	ByKey map[string]int `json:"by_key"`
}
