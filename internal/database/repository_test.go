package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowdy/internal/database"
)

func newRepo(t *testing.T) *database.Repository {
	t.Helper()
	return database.NewRepository(database.New(":memory:"))
}

func TestProjectCRUD(t *testing.T) {
	repo := newRepo(t)

	p := &database.Project{ID: database.NewID(), Name: "My API", Slug: "my-api", Status: "active"}
	require.NoError(t, repo.CreateProject(p))

	found, err := repo.FindProjectByID(p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "My API", found.Name)

	bySlug, err := repo.FindProjectBySlug("my-api")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, p.ID, bySlug.ID)

	missing, err := repo.FindProjectByID("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	found.Description = "updated"
	require.NoError(t, repo.SaveProject(found))
	again, err := repo.FindProjectByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", again.Description)

	exists, err := repo.SlugExists("my-api")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.SlugExists("other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteProjectCascades(t *testing.T) {
	repo := newRepo(t)

	p := &database.Project{ID: database.NewID(), Name: "p", Slug: "p", Status: "active"}
	require.NoError(t, repo.CreateProject(p))

	fn := &database.Function{ID: database.NewID(), ProjectID: p.ID, Name: "hello", Runtime: "python", Status: "active", ActiveVersion: 1}
	require.NoError(t, repo.CreateFunction(fn))
	require.NoError(t, repo.CreateVersion(&database.FunctionVersion{FunctionID: fn.ID, Version: 1, Code: "def handler(event):\n    return 1\n"}))
	require.NoError(t, repo.CreateRoute(&database.Route{ID: database.NewID(), ProjectID: p.ID, FunctionID: fn.ID, Method: "GET", Path: "/hello"}))
	require.NoError(t, repo.SaveEnvVar(&database.EnvVar{ID: database.NewID(), ProjectID: p.ID, Key: "API_KEY", Value: "secret", IsSecret: true}))
	require.NoError(t, repo.CreateInvocation(&database.Invocation{ID: database.NewID(), FunctionID: fn.ID, Input: "{}", Status: "success", Source: "direct"}))

	require.NoError(t, repo.DeleteProject(p.ID))

	gone, err := repo.FindProjectByID(p.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	fns, err := repo.FindFunctionsByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, fns)

	versions, err := repo.FindVersions(fn.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)

	routes, err := repo.FindRoutesByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, routes)

	vars, err := repo.FindEnvVarsByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, vars)

	invs, err := repo.FindInvocationsByFunction(fn.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, invs)
}

func TestFunctionVersions(t *testing.T) {
	repo := newRepo(t)

	fn := &database.Function{ID: database.NewID(), ProjectID: "p1", Name: "fn", Runtime: "python", Status: "active", ActiveVersion: 1}
	require.NoError(t, repo.CreateFunctionWithVersion(fn, "# v1"))

	next, err := repo.AppendVersion(fn, "# v2")
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.Equal(t, 2, fn.ActiveVersion)

	next, err = repo.AppendVersion(fn, "# v3")
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	saved, err := repo.FindFunctionByID(fn.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.ActiveVersion)

	versions, err := repo.FindVersions(fn.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].Version)
	assert.Equal(t, 1, versions[2].Version)

	v2, err := repo.FindVersion(fn.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, v2)
	assert.Equal(t, "# v2", v2.Code)

	v9, err := repo.FindVersion(fn.ID, 9)
	require.NoError(t, err)
	assert.Nil(t, v9)
}

func TestRouteOrdering(t *testing.T) {
	repo := newRepo(t)

	// CreatedAt set explicitly so ordering does not depend on the clock.
	require.NoError(t, repo.CreateRoute(&database.Route{ID: "r1", ProjectID: "p1", FunctionID: "f1", Method: "GET", Path: "/users/:id", CreatedAt: 100}))
	require.NoError(t, repo.CreateRoute(&database.Route{ID: "r2", ProjectID: "p1", FunctionID: "f1", Method: "ANY", Path: "/users/:id", CreatedAt: 200}))
	require.NoError(t, repo.CreateRoute(&database.Route{ID: "r3", ProjectID: "p1", FunctionID: "f2", Method: "GET", Path: "/health", CreatedAt: 300}))

	byAge, err := repo.FindRoutesInCreationOrder("p1")
	require.NoError(t, err)
	require.Len(t, byAge, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, []string{byAge[0].ID, byAge[1].ID, byAge[2].ID})

	listed, err := repo.FindRoutesByProject("p1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{listed[0].ID, listed[1].ID, listed[2].ID})

	dup, err := repo.FindRouteByMethodPath("p1", "GET", "/users/:id")
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, "r1", dup.ID)

	none, err := repo.FindRouteByMethodPath("p1", "POST", "/users/:id")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEnvVarUpsert(t *testing.T) {
	repo := newRepo(t)

	existing, err := repo.FindEnvVar("p1", "DB_HOST")
	require.NoError(t, err)
	assert.Nil(t, existing)

	v := &database.EnvVar{ID: database.NewID(), ProjectID: "p1", Key: "DB_HOST", Value: "localhost"}
	require.NoError(t, repo.SaveEnvVar(v))

	v.Value = "db.internal"
	require.NoError(t, repo.SaveEnvVar(v))

	found, err := repo.FindEnvVar("p1", "DB_HOST")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "db.internal", found.Value)

	require.NoError(t, repo.SaveEnvVar(&database.EnvVar{ID: database.NewID(), ProjectID: "p1", Key: "API_KEY", Value: "x", IsSecret: true}))
	vars, err := repo.FindEnvVarsByProject("p1")
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, "API_KEY", vars[0].Key)
	assert.Equal(t, "DB_HOST", vars[1].Key)

	require.NoError(t, repo.DeleteEnvVar(found.ID))
	gone, err := repo.FindEnvVar("p1", "DB_HOST")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestInvocationsNewestFirstWithLimit(t *testing.T) {
	repo := newRepo(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.CreateInvocation(&database.Invocation{
			ID:         database.NewID(),
			FunctionID: "f1",
			Input:      "{}",
			Status:     "success",
			Source:     "direct",
			DurationMs: int64(i * 10),
			CreatedAt:  int64(i * 1000),
		}))
	}

	invs, err := repo.FindInvocationsByFunction("f1", 3)
	require.NoError(t, err)
	require.Len(t, invs, 3)
	assert.Equal(t, int64(5000), invs[0].CreatedAt)
	assert.Equal(t, int64(3000), invs[2].CreatedAt)
}

func TestStatsQueries(t *testing.T) {
	repo := newRepo(t)

	avg, err := repo.AvgInvocationDuration()
	require.NoError(t, err)
	assert.Equal(t, float64(0), avg)

	require.NoError(t, repo.CreateFunction(&database.Function{ID: "f1", ProjectID: "p1", Name: "a", Runtime: "python", Status: "active"}))
	require.NoError(t, repo.CreateFunction(&database.Function{ID: "f2", ProjectID: "p1", Name: "b", Runtime: "python", Status: "active"}))

	require.NoError(t, repo.CreateInvocation(&database.Invocation{ID: "i1", FunctionID: "f1", Status: "success", DurationMs: 100, Source: "direct"}))
	require.NoError(t, repo.CreateInvocation(&database.Invocation{ID: "i2", FunctionID: "f1", Status: "error", DurationMs: 300, Source: "direct"}))

	fns, err := repo.CountFunctions()
	require.NoError(t, err)
	assert.Equal(t, int64(2), fns)

	total, err := repo.CountInvocations()
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	ok, err := repo.CountInvocationsByStatus("success")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ok)

	avg, err = repo.AvgInvocationDuration()
	require.NoError(t, err)
	assert.Equal(t, float64(200), avg)
}
