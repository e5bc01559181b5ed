package field

import (
	"context"
	"testing"
	"time"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
)

func TestJournalEntryRepoFilterAndOrder(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	adp := testutil.SeedUser(t, ctx, tx, "adp@example.com", "adp")

	repo := NewJournalEntryRepo(db, testutil.Logger(t))
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, c := range []*types.Commune{terr.Communes[0], terr.Communes[0], terr.Communes[1]} {
		row := &types.JournalEntry{
			EntryDate: day.AddDate(0, 0, i),
			Title:     "visite",
			Anchored:  types.Anchored{CommuneID: &c.ID, AdpUserID: &adp.ID},
		}
		if err := repo.Create(dbc, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.List(dbc, Filter{CommuneID: &terr.Communes[0].ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("List: expected 2 entries, got %d", len(rows))
	}
	if !rows[0].EntryDate.After(rows[1].EntryDate) {
		t.Fatalf("List: expected newest entry first")
	}

	if err := repo.UpdateFields(dbc, rows[0].ID, map[string]any{"title": "réunion"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, rows[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != "réunion" {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	if err := repo.Delete(dbc, rows[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rest, err := repo.List(dbc, Filter{AdpUserID: &adp.ID})
	if err != nil {
		t.Fatalf("List(adp): %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("List(adp): expected 2 entries after delete, got %d", len(rest))
	}
}

func TestConflictRepoList(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	repo := NewConflictRepo(db, testutil.Logger(t))
	row := &types.Conflict{
		ConflictType: "opposition",
		Nature:       "opposition au reboisement",
		Description:  "riverains",
		DateReported: time.Now().UTC(),
		Anchored:     types.Anchored{DranefID: &terr.Dranefs[0].ID},
	}
	if err := repo.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rows, err := repo.List(dbc, Filter{DranefID: &terr.Dranefs[1].ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("List: expected no conflicts in the other dranef, got %d", len(rows))
	}
}
