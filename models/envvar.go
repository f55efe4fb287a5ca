package models

// SetEnvVarRequest is the body for POST /api/projects/:id/env. Setting an
// existing key overwrites its value (upsert).
type SetEnvVarRequest struct {
	Key      string `json:"key" binding:"required"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret"`
}

// EnvVarResponse is a single env var as returned by the API. Secret values
// are replaced with a mask and never leave the server.
type EnvVarResponse struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	IsSecret  bool   `json:"is_secret"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}
