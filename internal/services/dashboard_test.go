package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/data/repos"
	"github.com/anef-maroc/pdfcp-backend/internal/data/repos/testutil"
	types "github.com/anef-maroc/pdfcp-backend/internal/domain"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/dbctx"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
	"github.com/anef-maroc/pdfcp-backend/internal/stats"
)

func (e *testEnv) dashboardService() DashboardService {
	return NewDashboardService(e.db, e.log,
		repos.NewAdpAgentRepo(e.db, e.log),
		repos.NewProgramRepo(e.db, e.log),
		repos.NewActivityRepo(e.db, e.log),
		repos.NewOrganizationRepo(e.db, e.log),
		repos.NewConflictRepo(e.db, e.log),
		e.territory,
	)
}

func TestDashboardStatsFollowScope(t *testing.T) {
	e := newEnv(t)
	e.program(types.StatusValideCentral)
	e.program(types.StatusBrouillon)
	testutil.SeedProgram(t, e.ctx, e.db, e.terr.Communes[1].ID, e.terr.Dpanefs[1].ID, e.terr.Dranefs[1].ID, types.StatusVerrouille)

	agents := repos.NewAdpAgentRepo(e.db, e.log)
	bg := dbctx.Context{Ctx: e.ctx}
	require.NoError(t, agents.Create(bg, &types.AdpAgent{Matricule: "M-1", FullName: "Agent Rif", DpanefID: &e.terr.Dpanefs[0].ID, DranefID: &e.terr.Dranefs[0].ID}))
	require.NoError(t, agents.Create(bg, &types.AdpAgent{Matricule: "M-2", FullName: "Agent Atlas", DranefID: &e.terr.Dranefs[1].ID, Status: types.AgentStatusInactive}))

	commune := e.terr.Communes[0].ID
	_, err := e.organizationService().Create(e.as(e.adp), OrganizationInput{Name: "ODF Tizi", OrganizationType: "ODF", AnchorInput: AnchorInput{CommuneID: &commune}})
	require.NoError(t, err)
	_, err = e.activityService().Create(e.as(e.adp), ActivityInput{ActivityType: "reunion", ActivityDate: day(2023, 6, 1), Title: "Ancienne réunion", AnchorInput: AnchorInput{CommuneID: &commune}})
	require.NoError(t, err)
	_, err = e.conflictService().Create(e.as(e.adp), ConflictInput{ConflictType: "opposition", Nature: "parcours", SuperficieOpposeeHa: pointers.Float64(4), AnchorInput: AnchorInput{CommuneID: &commune}})
	require.NoError(t, err)

	svc := e.dashboardService()

	all, err := svc.Stats(e.as(e.admin), stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Stats.TotalPdfcp)
	assert.Equal(t, 2, all.Stats.PdfcpValides)
	assert.Equal(t, 2, all.Stats.TotalAdp)
	assert.Equal(t, 1, all.Stats.ActiveAdp)
	assert.Len(t, all.Regions, 2)

	regional, err := svc.Stats(e.as(e.regional), stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, regional.Stats.TotalPdfcp)
	assert.Equal(t, 1, regional.Stats.PdfcpValides)
	assert.Equal(t, 1, regional.Stats.PdfcpEnCours)
	assert.Equal(t, 1, regional.Stats.TotalAdp)
	assert.Equal(t, 1, regional.Stats.Organisations.ODF)
	assert.Equal(t, 1, regional.Stats.TotalOppositions)
	assert.InDelta(t, 4, regional.Stats.SuperficieOpposeeHa, 1e-9)
	require.Len(t, regional.Regions, 1)
	assert.Equal(t, e.terr.Dranefs[0].ID, regional.Regions[0].DranefID)

	byYear, err := svc.Stats(e.as(e.regional), stats.Filters{Year: pointers.Int(2025)})
	require.NoError(t, err)
	assert.Equal(t, 2, byYear.Stats.TotalPdfcp)
	assert.Zero(t, byYear.Stats.TotalActivities)

	other, err := svc.Stats(e.as(e.otherAdp), stats.Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, other.Stats.TotalPdfcp)
	assert.Zero(t, other.Stats.Organisations.Total)
}
