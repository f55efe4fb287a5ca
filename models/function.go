package models

// CreateFunctionRequest is the body for POST /api/functions. Runtime
// defaults to "python"; ProjectID may be empty for an unattached function.
type CreateFunctionRequest struct {
	Name           string `json:"name" binding:"required"`
	Code           string `json:"code" binding:"required"`
	Description    string `json:"description"`
	Runtime        string `json:"runtime"`
	ProjectID      string `json:"project_id"`
	NetworkEnabled bool   `json:"network_enabled"`
}

// UpdateFunctionRequest is the body for PUT /api/functions/:id. Changing
// Code appends a new version and activates it.
type UpdateFunctionRequest struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Code           *string `json:"code"`
	Status         *string `json:"status"`
	NetworkEnabled *bool   `json:"network_enabled"`
}

// InvokeRequest is the body for POST /api/invoke/:id. Input defaults to an
// empty object so functions can be called with no input.
type InvokeRequest struct {
	Input map[string]any `json:"input"`
}

// InvokeResponse is the response for a direct function invocation.
// Output is set on success, Error on failure; both carry whatever the
// function produced (decoded JSON or a raw string).
type InvokeResponse struct {
	Success      bool   `json:"success"`
	Output       any    `json:"output,omitempty"`
	Error        any    `json:"error,omitempty"`
	DurationMs   int64  `json:"duration_ms"`
	InvocationID string `json:"invocation_id"`
	ColdStart    bool   `json:"cold_start"`
}
