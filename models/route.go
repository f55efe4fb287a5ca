package models

// CreateRouteRequest is the body for POST /api/projects/:id/routes
type CreateRouteRequest struct {
	FunctionID  string `json:"function_id" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Path        string `json:"path" binding:"required"`
	Description string `json:"description"`
}

// UpdateRouteRequest is the body for PUT /api/projects/:id/routes/:rid
type UpdateRouteRequest struct {
	FunctionID  *string `json:"function_id"`
	Method      *string `json:"method"`
	Path        *string `json:"path"`
	Description *string `json:"description"`
}
