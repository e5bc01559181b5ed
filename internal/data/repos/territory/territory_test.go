package territory

import (
	"context"
	"testing"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
)

func TestTerritoryRepoUpsertIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewTerritoryRepo(db, testutil.Logger(t))

	region := &types.Region{Code: "RSK", Name: "Rabat-Salé-Kénitra"}
	if err := repo.UpsertRegion(dbc, region); err != nil {
		t.Fatalf("UpsertRegion: %v", err)
	}
	dr := &types.Dranef{Code: "DR-RSK", Name: "DRANEF Rabat", RegionID: &region.ID}
	if err := repo.UpsertDranef(dbc, dr); err != nil {
		t.Fatalf("UpsertDranef: %v", err)
	}
	firstID := dr.ID

	again := &types.Dranef{Code: "DR-RSK", Name: "DRANEF Rabat-Salé", RegionID: &region.ID}
	if err := repo.UpsertDranef(dbc, again); err != nil {
		t.Fatalf("UpsertDranef (again): %v", err)
	}
	if again.ID != firstID {
		t.Fatalf("UpsertDranef: expected stored id %s, got %s", firstID, again.ID)
	}

	list, err := repo.ListDranef(dbc, &region.ID)
	if err != nil {
		t.Fatalf("ListDranef: %v", err)
	}
	if len(list) != 1 || list[0].Name != "DRANEF Rabat-Salé" {
		t.Fatalf("ListDranef: unexpected result: %+v", list)
	}

	dp := &types.Dpanef{Code: "DP-KEN", Name: "DPANEF Kénitra", DranefID: firstID}
	if err := repo.UpsertDpanef(dbc, dp); err != nil {
		t.Fatalf("UpsertDpanef: %v", err)
	}
	c := &types.Commune{Code: "C-SIDI", Name: "Sidi Taibi", DpanefID: dp.ID}
	if err := repo.UpsertCommune(dbc, c); err != nil {
		t.Fatalf("UpsertCommune: %v", err)
	}
	got, err := repo.GetCommune(dbc, c.ID)
	if err != nil {
		t.Fatalf("GetCommune: %v", err)
	}
	if got == nil || got.DpanefID != dp.ID {
		t.Fatalf("GetCommune: unexpected result: %+v", got)
	}
	communes, err := repo.ListCommunes(dbc, &dp.ID)
	if err != nil {
		t.Fatalf("ListCommunes: %v", err)
	}
	if len(communes) != 1 {
		t.Fatalf("ListCommunes: expected 1, got %d", len(communes))
	}
}
