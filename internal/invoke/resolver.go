package invoke

import (
	"clowdy/internal/builder"
	"clowdy/internal/database"
)

// ExecContext is everything a function execution needs beyond the code:
// the project's env vars and which image to run on.
type ExecContext struct {
	EnvVars map[string]string
	Image   string // empty means the default runtime
}

// Resolver assembles the execution context for a function's project.
type Resolver struct {
	repo *database.Repository
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo *database.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the context for projectID. Unknown or empty project IDs
// resolve to an empty context on the default image. A provisioned
// database overrides any user-set DATABASE_URL.
func (r *Resolver) Resolve(projectID string) (ExecContext, error) {
	ec := ExecContext{EnvVars: map[string]string{}}
	if projectID == "" {
		return ec, nil
	}

	project, err := r.repo.FindProjectByID(projectID)
	if err != nil {
		return ExecContext{}, err
	}
	if project == nil {
		return ec, nil
	}

	vars, err := r.repo.FindEnvVarsByProject(projectID)
	if err != nil {
		return ExecContext{}, err
	}
	for _, v := range vars {
		ec.EnvVars[v.Key] = v.Value
	}

	if project.DatabaseURL != "" {
		ec.EnvVars["DATABASE_URL"] = project.DatabaseURL
	}
	if project.RequirementsHash != "" {
		ec.Image = builder.ImageName(project.ID, project.RequirementsHash)
	}
	return ec, nil
}
