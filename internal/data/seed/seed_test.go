package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
)

func TestLoadEmbedded(t *testing.T) {
	ref, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, ref.Regions)
	for _, rg := range ref.Regions {
		assert.NotEmpty(t, rg.Dranefs, rg.Code)
	}
}

func TestParseRejectsDuplicateCodes(t *testing.T) {
	raw := []byte(`
regions:
  - code: R1
    name: One
    dranefs:
      - code: D1
        name: DRANEF One
      - code: D1
        name: DRANEF Again
`)
	_, err := Parse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate dranef")
}

func TestSeedTerritoryIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	territory := repos.NewTerritoryRepo(db, log)
	s := NewSeeder(log, territory, repos.NewUserRepo(db, log), repos.NewGormTxRunner(db))

	ref, err := Load("")
	require.NoError(t, err)

	first, err := s.SeedTerritory(ctx, ref)
	require.NoError(t, err)
	communes, err := territory.ListCommunes(dbctx.Context{Ctx: ctx}, nil)
	require.NoError(t, err)
	require.Len(t, communes, first.Communes)

	second, err := s.SeedTerritory(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	again, err := territory.ListCommunes(dbctx.Context{Ctx: ctx}, nil)
	require.NoError(t, err)
	require.Len(t, again, len(communes))
	ids := map[string]string{}
	for _, c := range communes {
		ids[c.Code] = c.ID.String()
	}
	for _, c := range again {
		assert.Equal(t, ids[c.Code], c.ID.String(), c.Code)
	}
}

func TestEnsureAdmin(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	s := NewSeeder(log, repos.NewTerritoryRepo(db, log), repos.NewUserRepo(db, log), repos.NewGormTxRunner(db))

	u, created, err := s.EnsureAdmin(ctx, "Admin@ANEF.ma", "s3cret-pass", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@anef.ma", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	again, created, err := s.EnsureAdmin(ctx, "admin@anef.ma", "other", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
}
