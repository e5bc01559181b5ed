package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
)

func (e *testEnv) activityService() ActivityService {
	return NewActivityService(e.db, e.log, repos.NewActivityRepo(e.db, e.log), repos.NewProgramRepo(e.db, e.log), e.territory)
}

func (e *testEnv) organizationService() OrganizationService {
	return NewOrganizationService(e.db, e.log, repos.NewOrganizationRepo(e.db, e.log), e.territory)
}

func (e *testEnv) conflictService() ConflictService {
	return NewConflictService(e.db, e.log, repos.NewConflictRepo(e.db, e.log), repos.NewProgramRepo(e.db, e.log), e.territory)
}

func (e *testEnv) journalService() JournalService {
	return NewJournalService(e.db, e.log, repos.NewJournalEntryRepo(e.db, e.log), repos.NewProgramRepo(e.db, e.log), e.territory)
}

func day(y int, m time.Month, d int) Date { return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)} }

func TestActivityPlacementAndScope(t *testing.T) {
	e := newEnv(t)
	svc := e.activityService()
	commune := e.terr.Communes[0].ID

	a, err := svc.Create(e.as(e.adp), ActivityInput{
		ActivityType: "formation",
		ActivityDate: day(2025, 3, 12),
		Title:        "Formation pépinière",
		AnchorInput:  AnchorInput{CommuneID: &commune},
	})
	require.NoError(t, err)
	require.NotNil(t, a.DpanefID)
	require.NotNil(t, a.DranefID)
	assert.Equal(t, e.terr.Dpanefs[0].ID, *a.DpanefID)
	assert.Equal(t, e.terr.Dranefs[0].ID, *a.DranefID)
	require.NotNil(t, a.AdpUserID)
	assert.Equal(t, e.adp.ID, *a.AdpUserID)
	assert.Equal(t, "draft", a.ValidationStatus)

	for _, u := range []*types.User{e.admin, e.national, e.regional, e.provincial, e.adp} {
		rows, err := svc.List(e.as(u), FieldQuery{})
		require.NoError(t, err)
		assert.Len(t, rows, 1, u.Email)
	}
	rows, err := svc.List(e.as(e.otherAdp), FieldQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = svc.Get(e.as(e.otherAdp), a.ID)
	requireStatus(t, err, http.StatusNotFound, "not_found")

	other := e.terr.Dpanefs[1].ID
	rows, err = svc.List(e.as(e.admin), FieldQuery{DpanefID: &other})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestActivityCreateRules(t *testing.T) {
	e := newEnv(t)
	svc := e.activityService()
	commune := e.terr.Communes[0].ID
	far := e.terr.Communes[1].ID

	_, err := svc.Create(e.as(e.adp), ActivityInput{ActivityType: "fete", ActivityDate: day(2025, 1, 1), Title: "x", AnchorInput: AnchorInput{CommuneID: &commune}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_activity_type")

	_, err = svc.Create(e.as(e.adp), ActivityInput{ActivityType: "reunion", Title: "x", AnchorInput: AnchorInput{CommuneID: &commune}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")

	_, err = svc.Create(e.as(e.regional), ActivityInput{ActivityType: "reunion", ActivityDate: day(2025, 1, 1), Title: "x", AnchorInput: AnchorInput{CommuneID: &far}})
	requireStatus(t, err, http.StatusForbidden, "out_of_scope")

	bogus := testutil.PtrUUID(e.regional.ID)
	_, err = svc.Create(e.as(e.admin), ActivityInput{ActivityType: "reunion", ActivityDate: day(2025, 1, 1), Title: "x", AnchorInput: AnchorInput{CommuneID: bogus}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_commune")

	// the commune decides the upper levels
	_, err = svc.Create(e.as(e.regional), ActivityInput{
		ActivityType: "reunion",
		ActivityDate: day(2025, 1, 1),
		Title:        "x",
		AnchorInput:  AnchorInput{DranefID: &e.terr.Dranefs[0].ID, CommuneID: &far},
	})
	requireStatus(t, err, http.StatusBadRequest, "invalid_placement")

	p := e.program(types.StatusBrouillon)
	a, err := svc.Create(e.as(e.provincial), ActivityInput{ActivityType: "reunion", ActivityDate: day(2025, 1, 1), Title: "Comité", PdfcpID: &p.ID})
	require.NoError(t, err)
	require.NotNil(t, a.CommuneID)
	assert.Equal(t, *p.CommuneID, *a.CommuneID)
	assert.Nil(t, a.AdpUserID)
}

func TestOrganizationPatchMovesOutOfScope(t *testing.T) {
	e := newEnv(t)
	svc := e.organizationService()
	commune := e.terr.Communes[0].ID

	o, err := svc.Create(e.as(e.regional), OrganizationInput{Name: "Coop Argane", OrganizationType: "cooperative", MembersCount: 12, AnchorInput: AnchorInput{CommuneID: &commune}})
	require.NoError(t, err)
	assert.Equal(t, "active", o.OrganizationStatus)

	far := e.terr.Communes[1].ID
	_, err = svc.Patch(e.as(e.regional), o.ID, OrganizationPatch{AnchorPatch: AnchorPatch{CommuneID: OptionalUUID{Set: true, Value: &far}}})
	requireStatus(t, err, http.StatusForbidden, "out_of_scope")

	_, err = svc.Patch(e.as(e.regional), o.ID, OrganizationPatch{OrganizationStatus: OptionalString{Set: true, Value: pointers.String("fermee")}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_organization_status")

	moved, err := svc.Patch(e.as(e.admin), o.ID, OrganizationPatch{AnchorPatch: AnchorPatch{CommuneID: OptionalUUID{Set: true, Value: &far}}})
	require.NoError(t, err)
	assert.Equal(t, e.terr.Dranefs[1].ID, *moved.DranefID)

	rows, err := svc.List(e.as(e.regional), FieldQuery{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, svc.Delete(e.as(e.admin), o.ID))
	_, err = svc.Get(e.as(e.admin), o.ID)
	requireStatus(t, err, http.StatusNotFound, "")
}

func TestConflictMetricsAndResolution(t *testing.T) {
	e := newEnv(t)
	svc := e.conflictService()
	dbc := e.as(e.adp)
	commune := e.terr.Communes[0].ID
	at := AnchorInput{CommuneID: &commune}

	opp, err := svc.Create(dbc, ConflictInput{ConflictType: "Opposition", Nature: "accès parcours", SuperficieOpposeeHa: pointers.Float64(10), AnchorInput: at})
	require.NoError(t, err)
	assert.Equal(t, "ouvert", opp.Status)
	assert.Equal(t, "moyenne", opp.Severity)
	assert.False(t, opp.DateReported.IsZero())

	_, err = svc.Create(dbc, ConflictInput{Nature: "Conflit foncier au douar", Status: "resolu", SuperficieOpposeeHa: pointers.Float64(5), AnchorInput: at})
	require.NoError(t, err)
	_, err = svc.Create(dbc, ConflictInput{ConflictType: "conflit", Nature: "opposition", AnchorInput: at})
	require.NoError(t, err)

	_, err = svc.Create(dbc, ConflictInput{Nature: "x", Severity: "grave", AnchorInput: at})
	requireStatus(t, err, http.StatusBadRequest, "invalid_severity")

	m, err := svc.Metrics(dbc, FieldQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, m.TotalConflits)
	assert.Equal(t, 2, m.TotalOppositions)
	assert.Equal(t, 1, m.OppositionsEnCours)
	assert.Equal(t, 1, m.OppositionsLevees)
	assert.InDelta(t, 15, m.SuperficieOpposition, 1e-9)
	assert.InDelta(t, 5, m.SuperficieLevee, 1e-9)

	m, err = svc.Metrics(e.as(e.otherAdp), FieldQuery{})
	require.NoError(t, err)
	assert.Zero(t, m.TotalConflits)

	resolved, err := svc.Patch(e.as(e.provincial), opp.ID, ConflictPatch{Status: OptionalString{Set: true, Value: pointers.String(conflictResolved)}})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolutionDate)
	require.NotNil(t, resolved.HandledBy)
	assert.Equal(t, e.provincial.ID, *resolved.HandledBy)

	_, err = svc.Patch(dbc, opp.ID, ConflictPatch{SuperficieLeveeHa: OptionalFloat64{Set: true, Value: pointers.Float64(12)}})
	requireStatus(t, err, http.StatusBadRequest, "invalid_request")
}

func TestJournalOwnership(t *testing.T) {
	e := newEnv(t)
	svc := e.journalService()
	commune := e.terr.Communes[0].ID
	in := JournalEntryInput{
		EntryDate:   day(2025, 4, 2),
		Title:       "Réunion ODF",
		Category:    "reunion",
		AnchorInput: AnchorInput{CommuneID: &commune},
	}

	bad := in
	bad.BesoinAppuiHierarchique = true
	_, err := svc.Create(e.as(e.adp), bad)
	requireStatus(t, err, http.StatusBadRequest, "justification_required")

	bad.Category = "fete"
	bad.JustificationAppui = "arbitrage"
	_, err = svc.Create(e.as(e.adp), bad)
	requireStatus(t, err, http.StatusBadRequest, "invalid_category")

	j, err := svc.Create(e.as(e.adp), in)
	require.NoError(t, err)
	assert.Equal(t, field.PrioriteMoyenne, j.Priorite)
	assert.Equal(t, field.StatutBrouillon, j.StatutValidation)
	require.True(t, j.OwnedBy(e.adp.ID))

	later := in
	later.EntryDate = day(2025, 5, 1)
	later.Title = "Diagnostic"
	_, err = svc.Create(e.as(e.adp), later)
	require.NoError(t, err)

	rows, err := svc.List(e.as(e.provincial), FieldQuery{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Diagnostic", rows[0].Title)

	title := OptionalString{Set: true, Value: pointers.String("Réunion ODF - compte rendu")}
	_, err = svc.Patch(e.as(e.provincial), j.ID, JournalEntryPatch{Title: title})
	requireStatus(t, err, http.StatusForbidden, "forbidden")
	err = svc.Delete(e.as(e.provincial), j.ID)
	requireStatus(t, err, http.StatusForbidden, "forbidden")

	_, err = svc.Patch(e.as(e.adp), j.ID, JournalEntryPatch{BesoinAppuiHierarchique: OptionalBool{Set: true, Value: pointers.Ptr(true)}})
	requireStatus(t, err, http.StatusBadRequest, "justification_required")

	updated, err := svc.Patch(e.as(e.admin), j.ID, JournalEntryPatch{Title: title, Priorite: OptionalString{Set: true, Value: pointers.String(field.PrioriteElevee)}})
	require.NoError(t, err)
	assert.Equal(t, "Réunion ODF - compte rendu", updated.Title)
	assert.Equal(t, field.PrioriteElevee, updated.Priorite)

	_, err = svc.Get(e.as(e.otherAdp), j.ID)
	requireStatus(t, err, http.StatusNotFound, "")
	require.NoError(t, svc.Delete(e.as(e.adp), j.ID))
}
