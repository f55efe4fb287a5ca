package database

import (
	"database/sql"

	"gorm.io/gorm"
)

// Repository provides CRUD operations for the control plane entities.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository backed by the given database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateProject inserts a new project record.
func (r *Repository) CreateProject(p *Project) error {
	return r.db.Create(p).Error
}

// FindProjectByID returns a project by ID, or nil if not found.
func (r *Repository) FindProjectByID(id string) (*Project, error) {
	var p Project
	if err := r.db.First(&p, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindProjectBySlug returns a project by its unique slug, or nil if not found.
func (r *Repository) FindProjectBySlug(slug string) (*Project, error) {
	var p Project
	if err := r.db.First(&p, "slug = ?", slug).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// FindAllProjects returns all projects, newest first.
func (r *Repository) FindAllProjects() ([]Project, error) {
	var projects []Project
	if err := r.db.Order("created_at desc").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// SaveProject updates an existing project record.
func (r *Repository) SaveProject(p *Project) error {
	return r.db.Save(p).Error
}

// SlugExists reports whether any project already uses the given slug.
func (r *Repository) SlugExists(slug string) (bool, error) {
	var n int64
	if err := r.db.Model(&Project{}).Where("slug = ?", slug).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteProject removes a project and everything that hangs off it:
// functions, their versions and invocations, routes, and env vars.
// SQLite does not enforce our foreign keys, so the cascade is done here.
func (r *Repository) DeleteProject(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var fnIDs []string
		if err := tx.Model(&Function{}).Where("project_id = ?", id).Pluck("id", &fnIDs).Error; err != nil {
			return err
		}
		if len(fnIDs) > 0 {
			if err := tx.Delete(&FunctionVersion{}, "function_id IN ?", fnIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&Invocation{}, "function_id IN ?", fnIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&Route{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&EnvVar{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Function{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Project{}, "id = ?", id).Error
	})
}

// CountFunctionsByProject returns the number of functions in a project.
func (r *Repository) CountFunctionsByProject(projectID string) (int64, error) {
	var n int64
	err := r.db.Model(&Function{}).Where("project_id = ?", projectID).Count(&n).Error
	return n, err
}

// FunctionCountsByProject returns function counts keyed by project ID, in
// one query. Projects without functions are absent from the map.
func (r *Repository) FunctionCountsByProject() (map[string]int64, error) {
	var rows []struct {
		ProjectID string
		N         int64
	}
	err := r.db.Model(&Function{}).
		Select("project_id, COUNT(*) as n").
		Where("project_id <> ''").
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.ProjectID] = row.N
	}
	return counts, nil
}

// CreateFunction inserts a new function record.
func (r *Repository) CreateFunction(fn *Function) error {
	return r.db.Create(fn).Error
}

// FindFunctionByID returns a function by ID, or nil if not found.
func (r *Repository) FindFunctionByID(id string) (*Function, error) {
	var fn Function
	if err := r.db.First(&fn, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &fn, nil
}

// FindAllFunctions returns every function, newest first.
func (r *Repository) FindAllFunctions() ([]Function, error) {
	var fns []Function
	if err := r.db.Order("created_at desc").Find(&fns).Error; err != nil {
		return nil, err
	}
	return fns, nil
}

// FindFunctionsByProject returns a project's functions, newest first.
func (r *Repository) FindFunctionsByProject(projectID string) ([]Function, error) {
	var fns []Function
	if err := r.db.Where("project_id = ?", projectID).Order("created_at desc").Find(&fns).Error; err != nil {
		return nil, err
	}
	return fns, nil
}

// SaveFunction updates an existing function record.
func (r *Repository) SaveFunction(fn *Function) error {
	return r.db.Save(fn).Error
}

// DeleteFunction removes a function with its versions, routes, and
// invocation history.
func (r *Repository) DeleteFunction(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&FunctionVersion{}, "function_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Route{}, "function_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Invocation{}, "function_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Function{}, "id = ?", id).Error
	})
}

// CreateFunctionWithVersion inserts a function together with its first
// code version in one transaction.
func (r *Repository) CreateFunctionWithVersion(fn *Function, code string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(fn).Error; err != nil {
			return err
		}
		return tx.Create(&FunctionVersion{
			FunctionID: fn.ID,
			Version:    fn.ActiveVersion,
			Code:       code,
		}).Error
	})
}

// AppendVersion snapshots code as the function's next version and moves
// the active pointer to it. Any other pending field changes on fn are
// saved in the same transaction. Returns the new version number.
func (r *Repository) AppendVersion(fn *Function, code string) (int, error) {
	var next int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var n int
		if err := tx.Model(&FunctionVersion{}).
			Where("function_id = ?", fn.ID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&n).Error; err != nil {
			return err
		}
		next = n + 1
		if err := tx.Create(&FunctionVersion{
			FunctionID: fn.ID,
			Version:    next,
			Code:       code,
		}).Error; err != nil {
			return err
		}
		fn.ActiveVersion = next
		return tx.Save(fn).Error
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// CreateVersion inserts a new function version snapshot.
func (r *Repository) CreateVersion(v *FunctionVersion) error {
	return r.db.Create(v).Error
}

// FindVersions returns all versions of a function, newest first.
func (r *Repository) FindVersions(functionID string) ([]FunctionVersion, error) {
	var versions []FunctionVersion
	if err := r.db.Where("function_id = ?", functionID).Order("version desc").Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// FindVersion returns one version of a function, or nil if not found.
func (r *Repository) FindVersion(functionID string, version int) (*FunctionVersion, error) {
	var v FunctionVersion
	err := r.db.First(&v, "function_id = ? AND version = ?", functionID, version).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// CreateRoute inserts a new route record.
func (r *Repository) CreateRoute(rt *Route) error {
	return r.db.Create(rt).Error
}

// FindRouteByID returns a route by ID, or nil if not found.
func (r *Repository) FindRouteByID(id string) (*Route, error) {
	var rt Route
	if err := r.db.First(&rt, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

// FindRoutesByProject returns a project's routes sorted by path then
// method, for listing.
func (r *Repository) FindRoutesByProject(projectID string) ([]Route, error) {
	var routes []Route
	if err := r.db.Where("project_id = ?", projectID).Order("path, method").Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

// FindRoutesInCreationOrder returns a project's routes oldest first. The
// gateway matches against this order, so it must stay stable.
func (r *Repository) FindRoutesInCreationOrder(projectID string) ([]Route, error) {
	var routes []Route
	if err := r.db.Where("project_id = ?", projectID).Order("created_at asc").Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

// FindRouteByMethodPath returns the route with the exact method + path in
// a project, or nil if none exists. Used for duplicate detection.
func (r *Repository) FindRouteByMethodPath(projectID, method, path string) (*Route, error) {
	var rt Route
	err := r.db.First(&rt, "project_id = ? AND method = ? AND path = ?", projectID, method, path).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rt, nil
}

// SaveRoute updates an existing route record.
func (r *Repository) SaveRoute(rt *Route) error {
	return r.db.Save(rt).Error
}

// DeleteRoute removes a route record.
func (r *Repository) DeleteRoute(id string) error {
	return r.db.Delete(&Route{}, "id = ?", id).Error
}

// FindEnvVarsByProject returns a project's env vars sorted by key.
func (r *Repository) FindEnvVarsByProject(projectID string) ([]EnvVar, error) {
	var vars []EnvVar
	if err := r.db.Where("project_id = ?", projectID).Order("key asc").Find(&vars).Error; err != nil {
		return nil, err
	}
	return vars, nil
}

// FindEnvVar returns one env var by project and key, or nil if not found.
func (r *Repository) FindEnvVar(projectID, key string) (*EnvVar, error) {
	var v EnvVar
	err := r.db.First(&v, "project_id = ? AND key = ?", projectID, key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// SaveEnvVar creates or updates an env var record.
func (r *Repository) SaveEnvVar(v *EnvVar) error {
	return r.db.Save(v).Error
}

// DeleteEnvVar removes an env var record.
func (r *Repository) DeleteEnvVar(id string) error {
	return r.db.Delete(&EnvVar{}, "id = ?", id).Error
}

// CreateInvocation appends an invocation log entry.
func (r *Repository) CreateInvocation(inv *Invocation) error {
	return r.db.Create(inv).Error
}

// FindInvocationsByFunction returns the most recent invocations of a
// function, newest first, capped at limit.
func (r *Repository) FindInvocationsByFunction(functionID string, limit int) ([]Invocation, error) {
	var invs []Invocation
	err := r.db.Where("function_id = ?", functionID).
		Order("created_at desc").
		Limit(limit).
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	return invs, nil
}

// CountFunctions returns the total number of functions across all projects.
func (r *Repository) CountFunctions() (int64, error) {
	var n int64
	err := r.db.Model(&Function{}).Count(&n).Error
	return n, err
}

// CountInvocations returns the total number of recorded invocations.
func (r *Repository) CountInvocations() (int64, error) {
	var n int64
	err := r.db.Model(&Invocation{}).Count(&n).Error
	return n, err
}

// CountInvocationsByStatus returns how many invocations have the given status.
func (r *Repository) CountInvocationsByStatus(status string) (int64, error) {
	var n int64
	err := r.db.Model(&Invocation{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// AvgInvocationDuration returns the mean invocation duration in
// milliseconds, 0 when there are no invocations.
func (r *Repository) AvgInvocationDuration() (float64, error) {
	var avg sql.NullFloat64
	err := r.db.Model(&Invocation{}).Select("AVG(duration_ms)").Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
