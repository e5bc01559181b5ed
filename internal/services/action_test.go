package services

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
)

func TestActionCreateCPLineRules(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusBrouillon)
	plan := testutil.SeedAction(t, e.ctx, e.db, p.ID, types.EtatConcerte, 2025, "reboisement", 100, 50000)
	dbc := e.as(e.adp)

	_, err := svc.Create(dbc, p.ID, ActionInput{Etat: "CP", Year: 2025, ActionKey: "reboisement", Physique: 80, SourcePlanLineID: &plan.ID})
	requireStatus(t, err, http.StatusBadRequest, "justification_required")

	res, err := svc.Create(dbc, p.ID, ActionInput{
		Etat:               "cp",
		Year:               2025,
		ActionKey:          "reboisement",
		Physique:           80,
		Financier:          40000,
		SourcePlanLineID:   &plan.ID,
		JustificationEcart: "terrain indisponible",
	})
	require.NoError(t, err)
	assert.Equal(t, types.EtatCP, res.Etat)
	require.NotNil(t, res.CommuneID)
	assert.Equal(t, *p.CommuneID, *res.CommuneID)
	assert.False(t, res.Locked)

	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "CP", Year: 2025, ActionKey: "x", SourceCPLineID: &plan.ID})
	requireStatus(t, err, http.StatusBadRequest, "invalid_source")
}

func TestActionCreateValidatesInput(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusBrouillon)
	dbc := e.as(e.adp)

	_, err := svc.Create(dbc, p.ID, ActionInput{Etat: "PLAN", Year: 2025, ActionKey: "k"})
	requireStatus(t, err, http.StatusBadRequest, "invalid_etat")

	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "CONCERTE", Year: 2031, ActionKey: "k"})
	requireStatus(t, err, http.StatusBadRequest, "invalid_year")

	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "CONCERTE", Year: 2025, ActionKey: "k", Physique: -1})
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "EXECUTE", Year: 2025, ActionKey: "k", StatutExecution: "fini"})
	requireStatus(t, err, http.StatusBadRequest, "invalid_statut_execution")

	// a CONCERTE line used as the source of an execution line
	plan := testutil.SeedAction(t, e.ctx, e.db, p.ID, types.EtatConcerte, 2025, "k", 1, 1)
	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "EXECUTE", Year: 2025, ActionKey: "k", SourceCPLineID: &plan.ID})
	requireStatus(t, err, http.StatusBadRequest, "invalid_source")
}

func TestActionCreateStoresGeometry(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusBrouillon)
	dbc := e.as(e.adp)

	poly := json.RawMessage(`{"type":"Polygon","coordinates":[[[-5.0,34.0],[-4.99,34.0],[-4.99,34.01],[-5.0,34.01],[-5.0,34.0]]]}`)
	res, err := svc.Create(dbc, p.ID, ActionInput{Etat: "EXECUTE", Year: 2025, ActionKey: "k", GeometryType: "polygon", Coordinates: poly})
	require.NoError(t, err)
	require.NotNil(t, res.Geo)
	assert.Equal(t, "Polygon", res.GeometryType)
	require.NotNil(t, res.Geo.SurfaceRealiseeHa)
	assert.Greater(t, *res.Geo.SurfaceRealiseeHa, 0.0)
	assert.InDelta(t, 34.005, res.Geo.CentroidLat, 0.001)
	assert.InDelta(t, -4.995, res.Geo.CentroidLng, 0.001)

	_, err = svc.Create(dbc, p.ID, ActionInput{Etat: "EXECUTE", Year: 2025, ActionKey: "k", GeometryType: "line", Coordinates: poly})
	requireStatus(t, err, http.StatusBadRequest, "invalid_geometry")

	list, err := svc.List(dbc, p.ID, repos.ActionFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Geo)

	require.NoError(t, svc.Delete(dbc, p.ID, res.ID))
	rows, err := repos.NewActionGeoRepo(e.db, e.log).ListByProgram(dbc, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestActionPatchAndLocks(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusBrouillon)
	line := testutil.SeedAction(t, e.ctx, e.db, p.ID, types.EtatExecute, 2025, "k", 10, 100)
	dbc := e.as(e.adp)

	var patch ActionPatch
	require.NoError(t, json.Unmarshal([]byte(`{"physique": 12, "notes": "ok", "preuves": [{"url": "https://x/p.jpg"}]}`), &patch))
	res, err := svc.Patch(dbc, p.ID, line.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, 12.0, res.Physique)
	assert.Equal(t, "ok", res.Notes)
	assert.True(t, res.NeedsProof)
	require.Len(t, res.Preuves, 1)
	assert.Equal(t, 100.0, res.Financier)

	_, err = svc.Patch(e.as(e.otherAdp), p.ID, line.ID, patch)
	requireStatus(t, err, http.StatusNotFound, "")

	_, err = svc.Patch(dbc, p.ID, uuid.New(), patch)
	requireStatus(t, err, http.StatusNotFound, "")

	require.NoError(t, repos.NewActionRepo(e.db, e.log).UpdateFields(dbc, line.ID, map[string]any{"locked": true}))
	_, err = svc.Patch(dbc, p.ID, line.ID, patch)
	requireStatus(t, err, http.StatusLocked, "")
	_, err = svc.Patch(e.as(e.admin), p.ID, line.ID, patch)
	require.NoError(t, err)
}

func TestActionWritesRefusedOnLockedProgram(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusVerrouille)

	_, err := svc.Create(e.as(e.adp), p.ID, ActionInput{Etat: "CONCERTE", Year: 2025, ActionKey: "k"})
	requireStatus(t, err, http.StatusLocked, "")

	_, err = svc.Create(e.as(e.admin), p.ID, ActionInput{Etat: "CONCERTE", Year: 2025, ActionKey: "k"})
	require.NoError(t, err)
}

func TestActionConcerteEditsKeepCPLinesJustified(t *testing.T) {
	e := newEnv(t)
	svc := e.actionService()
	p := e.program(types.StatusBrouillon)
	plan := testutil.SeedAction(t, e.ctx, e.db, p.ID, types.EtatConcerte, 2025, "reboisement", 100, 50000)
	dbc := e.as(e.adp)

	cp, err := svc.Create(dbc, p.ID, ActionInput{Etat: "CP", Year: 2025, ActionKey: "reboisement", Physique: 100, Financier: 50000, SourcePlanLineID: &plan.ID})
	require.NoError(t, err)

	_, err = svc.Patch(dbc, p.ID, plan.ID, ActionPatch{Physique: OptionalFloat64{Set: true, Value: pointers.Float64(40)}})
	requireStatus(t, err, http.StatusBadRequest, "justification_required")
	row, err := repos.NewActionRepo(e.db, e.log).GetByID(dbc, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, row.Physique)

	_, err = svc.Patch(dbc, p.ID, plan.ID, ActionPatch{Notes: OptionalString{Set: true, Value: pointers.String("revu")}})
	require.NoError(t, err)

	// a justified CP line follows its source freely
	_, err = svc.Patch(dbc, p.ID, cp.ID, ActionPatch{JustificationEcart: OptionalString{Set: true, Value: pointers.String("parcelle réduite")}})
	require.NoError(t, err)
	_, err = svc.Patch(dbc, p.ID, plan.ID, ActionPatch{Physique: OptionalFloat64{Set: true, Value: pointers.Float64(40)}})
	require.NoError(t, err)

	err = svc.Delete(dbc, p.ID, plan.ID)
	requireStatus(t, err, http.StatusConflict, "line_in_use")

	require.NoError(t, svc.Delete(dbc, p.ID, cp.ID))
	require.NoError(t, svc.Delete(dbc, p.ID, plan.ID))
}
