package database

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID returns a short random identifier (12 hex chars) for primary keys.
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])[:12]
}

// Project groups functions, routes, and env vars under a unique slug.
// The requirements and neon columns are never serialized directly; they
// are exposed through dedicated endpoints with masking.
type Project struct {
	ID               string `gorm:"primaryKey" json:"id"`
	Name             string `gorm:"index" json:"name"`
	Slug             string `gorm:"uniqueIndex" json:"slug"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	RequirementsTxt  string `json:"-"`
	RequirementsHash string `json:"-"`
	NeonProjectID    string `json:"-"`
	DatabaseURL      string `json:"-"`
	FunctionCount    int64  `gorm:"-" json:"function_count"`
	CreatedAt        int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt        int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Function is a deployed serverless function. Code lives in
// FunctionVersion rows; ActiveVersion points at the one that runs.
type Function struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ProjectID      string `gorm:"index" json:"project_id"`
	Name           string `gorm:"index" json:"name"`
	Description    string `json:"description"`
	Runtime        string `json:"runtime"`
	Status         string `json:"status"`
	NetworkEnabled bool   `json:"network_enabled"`
	ActiveVersion  int    `json:"active_version"`
	Code           string `gorm:"-" json:"code"`
	CreatedAt      int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt      int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// FunctionVersion is one immutable snapshot of a function's code.
// Versions start at 1 and only ever get appended.
type FunctionVersion struct {
	FunctionID string `gorm:"primaryKey" json:"function_id"`
	Version    int    `gorm:"primaryKey" json:"version"`
	Code       string `json:"code"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}

// Route maps an HTTP method + path pattern to a function within a project.
type Route struct {
	ID          string `gorm:"primaryKey" json:"id"`
	ProjectID   string `gorm:"index;uniqueIndex:uq_route_project_method_path" json:"project_id"`
	FunctionID  string `gorm:"index" json:"function_id"`
	Method      string `gorm:"uniqueIndex:uq_route_project_method_path" json:"method"`
	Path        string `gorm:"uniqueIndex:uq_route_project_method_path" json:"path"`
	Description string `json:"description"`
	CreatedAt   int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt   int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// EnvVar is a per-project environment variable injected into sandboxes.
// Secret values are masked in API responses but passed through verbatim
// at execution time.
type EnvVar struct {
	ID        string `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"index;uniqueIndex:uq_env_var_project_key" json:"project_id"`
	Key       string `gorm:"uniqueIndex:uq_env_var_project_key" json:"key"`
	Value     string `json:"value"`
	IsSecret  bool   `json:"is_secret"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// Invocation is an append-only log entry for one function execution.
// Status is "success", "error", or "timeout"; Source is "direct" or
// "gateway" (HTTPMethod/HTTPPath set only for gateway calls).
type Invocation struct {
	ID         string `gorm:"primaryKey" json:"id"`
	FunctionID string `gorm:"index" json:"function_id"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ColdStart  bool   `json:"cold_start"`
	Source     string `json:"source"`
	HTTPMethod string `json:"http_method,omitempty"`
	HTTPPath   string `json:"http_path,omitempty"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
}
