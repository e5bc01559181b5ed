package pdfcp

import (
	"context"
	"testing"
	"time"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
)

func TestProgramRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	a := testutil.SeedProgram(t, ctx, tx, terr.Communes[0].ID, terr.Dpanefs[0].ID, terr.Dranefs[0].ID, types.StatusBrouillon)
	b := testutil.SeedProgram(t, ctx, tx, terr.Communes[1].ID, terr.Dpanefs[1].ID, terr.Dranefs[1].ID, types.StatusVerrouille)

	repo := NewProgramRepo(db, testutil.Logger(t))

	all, err := repo.List(dbc, ProgramFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List: expected 2 programs, got %d", len(all))
	}

	byDranef, err := repo.List(dbc, ProgramFilter{DranefID: &terr.Dranefs[0].ID})
	if err != nil {
		t.Fatalf("List(dranef): %v", err)
	}
	if len(byDranef) != 1 || byDranef[0].ID != a.ID {
		t.Fatalf("List(dranef): unexpected result: %+v", byDranef)
	}

	locked, err := repo.List(dbc, ProgramFilter{ValidationStatus: string(types.StatusVerrouille)})
	if err != nil {
		t.Fatalf("List(status): %v", err)
	}
	if len(locked) != 1 || locked[0].ID != b.ID || !locked[0].Locked {
		t.Fatalf("List(status): unexpected result: %+v", locked)
	}

	outside := 2031
	none, err := repo.List(dbc, ProgramFilter{Year: &outside})
	if err != nil {
		t.Fatalf("List(year): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("List(year): expected nothing for %d, got %d", outside, len(none))
	}

	if err := repo.UpdateFields(dbc, a.ID, map[string]any{"validation_status": types.StatusConcerteADP}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetForUpdate(dbc, a.ID)
	if err != nil {
		t.Fatalf("GetForUpdate: %v", err)
	}
	if got == nil || got.ValidationStatus != types.StatusConcerteADP {
		t.Fatalf("GetForUpdate: unexpected result: %+v", got)
	}
}

func TestActionRepoOrderingAndLocks(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	p := testutil.SeedProgram(t, ctx, tx, terr.Communes[0].ID, terr.Dpanefs[0].ID, terr.Dranefs[0].ID, types.StatusBrouillon)
	testutil.SeedAction(t, ctx, tx, p.ID, types.EtatExecute, 2025, "reboisement", 8, 80)
	testutil.SeedAction(t, ctx, tx, p.ID, types.EtatConcerte, 2025, "reboisement", 10, 100)
	testutil.SeedAction(t, ctx, tx, p.ID, types.EtatConcerte, 2024, "piste", 3, 30)

	repo := NewActionRepo(db, testutil.Logger(t))

	rows, err := repo.ListByProgram(dbc, p.ID, ActionFilter{})
	if err != nil {
		t.Fatalf("ListByProgram: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListByProgram: expected 3 rows, got %d", len(rows))
	}
	if rows[0].Year != 2024 || rows[1].Etat != types.EtatConcerte || rows[2].Etat != types.EtatExecute {
		t.Fatalf("ListByProgram: unexpected order: %v/%v/%v", rows[0].Year, rows[1].Etat, rows[2].Etat)
	}

	concerte, err := repo.ListByProgram(dbc, p.ID, ActionFilter{Etat: types.EtatConcerte})
	if err != nil {
		t.Fatalf("ListByProgram(etat): %v", err)
	}
	if len(concerte) != 2 {
		t.Fatalf("ListByProgram(etat): expected 2 rows, got %d", len(concerte))
	}

	n, err := repo.SetLockedForProgram(dbc, p.ID, true)
	if err != nil {
		t.Fatalf("SetLockedForProgram: %v", err)
	}
	if n != 3 {
		t.Fatalf("SetLockedForProgram: expected 3 rows affected, got %d", n)
	}
	got, err := repo.GetByID(dbc, rows[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || !got.Locked {
		t.Fatalf("GetByID: expected locked action, got %+v", got)
	}

	if err := repo.Delete(dbc, rows[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	gone, err := repo.GetByID(dbc, rows[0].ID)
	if err != nil {
		t.Fatalf("GetByID(after delete): %v", err)
	}
	if gone != nil {
		t.Fatalf("GetByID(after delete): expected nil, got %+v", gone)
	}
}

func TestActionGeoRepoUpsertReplacesGeometry(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	p := testutil.SeedProgram(t, ctx, tx, terr.Communes[0].ID, terr.Dpanefs[0].ID, terr.Dranefs[0].ID, types.StatusBrouillon)
	a := testutil.SeedAction(t, ctx, tx, p.ID, types.EtatExecute, 2025, "reboisement", 8, 80)

	repo := NewActionGeoRepo(db, testutil.Logger(t))
	first := &types.ActionGeo{PlannedActionID: a.ID, PdfcpID: p.ID, GeometryType: "Point", CentroidLat: 34.1, CentroidLng: -6.5}
	if err := repo.Upsert(dbc, first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second := &types.ActionGeo{PlannedActionID: a.ID, PdfcpID: p.ID, GeometryType: "Polygon", CentroidLat: 34.2, CentroidLng: -6.4}
	if err := repo.Upsert(dbc, second); err != nil {
		t.Fatalf("Upsert (again): %v", err)
	}

	rows, err := repo.ListByProgram(dbc, p.ID)
	if err != nil {
		t.Fatalf("ListByProgram: %v", err)
	}
	if len(rows) != 1 || rows[0].GeometryType != "Polygon" {
		t.Fatalf("ListByProgram: expected one Polygon row, got %+v", rows)
	}
}

func TestUnlockRequestRepoResolveOnlyOnce(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	p := testutil.SeedProgram(t, ctx, tx, terr.Communes[0].ID, terr.Dpanefs[0].ID, terr.Dranefs[0].ID, types.StatusVerrouille)
	u := testutil.SeedUser(t, ctx, tx, "dp@example.com", "DPANEF")
	admin := testutil.SeedUser(t, ctx, tx, "admin@example.com", "admin")

	repo := NewUnlockRequestRepo(db, testutil.Logger(t))
	req := &types.UnlockRequest{PdfcpID: p.ID, RequestedBy: u.ID, Reason: "correction budget"}
	if err := repo.Create(dbc, req); err != nil {
		t.Fatalf("Create: %v", err)
	}

	pending, err := repo.HasPending(dbc, p.ID)
	if err != nil {
		t.Fatalf("HasPending: %v", err)
	}
	if !pending {
		t.Fatalf("HasPending: expected true")
	}

	now := time.Now().UTC()
	ok, err := repo.Resolve(dbc, req.ID, types.UnlockApproved, map[string]any{"handled_by_admin": admin.ID, "handled_at": now})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !ok {
		t.Fatalf("Resolve: expected pending request to be resolved")
	}
	ok, err = repo.Resolve(dbc, req.ID, types.UnlockRejected, nil)
	if err != nil {
		t.Fatalf("Resolve (again): %v", err)
	}
	if ok {
		t.Fatalf("Resolve (again): expected no-op on handled request")
	}

	got, err := repo.GetByID(dbc, req.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.UnlockApproved || got.HandledByAdmin == nil || *got.HandledByAdmin != admin.ID {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	approved, err := repo.ListByStatus(dbc, types.UnlockApproved)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(approved) != 1 {
		t.Fatalf("ListByStatus: expected 1, got %d", len(approved))
	}
}

func TestValidationHistoryRepoNewestFirst(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	terr := testutil.SeedTerritory(t, ctx, tx)
	p := testutil.SeedProgram(t, ctx, tx, terr.Communes[0].ID, terr.Dpanefs[0].ID, terr.Dranefs[0].ID, types.StatusBrouillon)

	repo := NewValidationHistoryRepo(db, testutil.Logger(t))
	base := time.Now().UTC().Add(-time.Hour)
	for i, action := range []string{"created", "status_change_concerte_adp"} {
		row := &types.ValidationHistory{PdfcpID: p.ID, Action: action, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(dbc, row); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	rows, err := repo.ListByProgram(dbc, p.ID)
	if err != nil {
		t.Fatalf("ListByProgram: %v", err)
	}
	if len(rows) != 2 || rows[0].Action != "status_change_concerte_adp" {
		t.Fatalf("ListByProgram: expected newest first, got %+v", rows)
	}
}
