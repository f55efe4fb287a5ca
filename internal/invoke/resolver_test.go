package invoke_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clowdy/internal/builder"
	"clowdy/internal/database"
	"clowdy/internal/invoke"
)

func TestResolve_EmptyAndUnknownProjects(t *testing.T) {
	repo := database.NewRepository(database.New(":memory:"))
	r := invoke.NewResolver(repo)

	ec, err := r.Resolve("")
	require.NoError(t, err)
	assert.Empty(t, ec.EnvVars)
	assert.Empty(t, ec.Image)

	ec, err = r.Resolve("does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, ec.EnvVars)
	assert.Empty(t, ec.Image)
}

func TestResolve_EnvVarsAndDatabaseURL(t *testing.T) {
	repo := database.NewRepository(database.New(":memory:"))
	p := &database.Project{ID: database.NewID(), Name: "p", Slug: "p", Status: "active", DatabaseURL: "postgres://neon/db"}
	require.NoError(t, repo.CreateProject(p))
	require.NoError(t, repo.SaveEnvVar(&database.EnvVar{ID: database.NewID(), ProjectID: p.ID, Key: "API_KEY", Value: "k1", IsSecret: true}))
	require.NoError(t, repo.SaveEnvVar(&database.EnvVar{ID: database.NewID(), ProjectID: p.ID, Key: "DATABASE_URL", Value: "postgres://user-set/db"}))

	ec, err := invoke.NewResolver(repo).Resolve(p.ID)
	require.NoError(t, err)

	// Full value, not the mask; provisioned database wins over user vars.
	assert.Equal(t, "k1", ec.EnvVars["API_KEY"])
	assert.Equal(t, "postgres://neon/db", ec.EnvVars["DATABASE_URL"])
	assert.Empty(t, ec.Image)
}

func TestResolve_CustomImageFromRequirementsHash(t *testing.T) {
	repo := database.NewRepository(database.New(":memory:"))
	hash := builder.HashRequirements("requests==2.31.0")
	p := &database.Project{
		ID: database.NewID(), Name: "p", Slug: "p", Status: "active",
		RequirementsTxt: "requests==2.31.0", RequirementsHash: hash,
	}
	require.NoError(t, repo.CreateProject(p))

	ec, err := invoke.NewResolver(repo).Resolve(p.ID)
	require.NoError(t, err)
	assert.Equal(t, builder.ImageName(p.ID, hash), ec.Image)
}
