package reconcile

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

func TestBuildComparatifMatchesBySourceThenSlot(t *testing.T) {
	pid := uuid.New()
	conc := line(pid, pdfcp.EtatConcerte, 2024, "reboisement", 10, 1000)
	conc.PerimetreID = "P1"

	cp := line(pid, pdfcp.EtatCP, 2024, "autre-cle", 8, 800)
	cp.SourcePlanLineID = &conc.ID
	cp.JustificationEcart = "bornage"

	exec := line(pid, pdfcp.EtatExecute, 2023, "x", 4, 400)
	exec.SourceCPLineID = &cp.ID

	conc2 := line(pid, pdfcp.EtatConcerte, 2023, "piste", 2, 500)
	conc2.PerimetreID = "P2"
	cp2 := line(pid, pdfcp.EtatCP, 2023, "piste", 2, 500)
	cp2.PerimetreID = "P2"
	exec2 := line(pid, pdfcp.EtatExecute, 2023, "piste", 1, 250)
	exec2.PerimetreID = "P2"

	orphanCP := line(pid, pdfcp.EtatCP, 2030, "nothing", 1, 1)
	orphanExec := line(pid, pdfcp.EtatExecute, 2030, "nothing", 1, 1)

	c := BuildComparatif([]pdfcp.Action{conc, cp, exec, conc2, cp2, exec2, orphanCP, orphanExec})
	require.Len(t, c.Rows, 2)

	first := c.Rows[0]
	assert.Equal(t, conc2.ID, first.ConcerteID)
	assert.Equal(t, []uuid.UUID{exec2.ID}, first.ExecuteIDs)
	require.NotNil(t, first.TauxExec)
	assert.Equal(t, 50, *first.TauxExec)

	second := c.Rows[1]
	require.NotNil(t, second.CPID)
	assert.Equal(t, cp.ID, *second.CPID)
	assert.Equal(t, []uuid.UUID{exec.ID}, second.ExecuteIDs)
	assert.Equal(t, -200.0, *second.DeltaConcerteCPBudget)
	assert.Equal(t, -400.0, *second.DeltaCPExecBudget)
	assert.Equal(t, 50, *second.TauxExec)
	assert.Equal(t, "bornage", second.Justification)
	assert.True(t, second.NeedsJustification)

	assert.Equal(t, []uuid.UUID{orphanCP.ID}, c.OrphanCP)
	assert.Equal(t, []uuid.UUID{orphanExec.ID}, c.OrphanExecute)

	assert.Equal(t, 1500.0, c.Totals.Concerte)
	assert.Equal(t, 1300.0, c.Totals.CP)
	assert.Equal(t, 650.0, c.Totals.Exec)
	assert.Equal(t, 43, c.Totals.TauxGlobal)
}

func TestBuildComparatifWithoutCP(t *testing.T) {
	pid := uuid.New()
	conc := line(pid, pdfcp.EtatConcerte, 2024, "k", 10, 0)
	c := BuildComparatif([]pdfcp.Action{conc})
	require.Len(t, c.Rows, 1)
	r := c.Rows[0]
	assert.Nil(t, r.CPBudget)
	assert.Nil(t, r.DeltaConcerteCPBudget)
	assert.Nil(t, r.DeltaCPExecBudget)
	assert.Nil(t, r.TauxExec)
	assert.Equal(t, "-", r.Perimetre)
	assert.Equal(t, 0, c.Totals.TauxGlobal)
}

func TestSummarizeByAction(t *testing.T) {
	pid := uuid.New()
	mk := func(etat pdfcp.Etat, label string, phys float64) pdfcp.Action {
		a := line(pid, etat, 2024, label, phys, 0)
		a.ActionLabel = label
		return a
	}
	lines := []pdfcp.Action{
		mk(pdfcp.EtatConcerte, "realise", 100), mk(pdfcp.EtatExecute, "realise", 100),
		mk(pdfcp.EtatConcerte, "derive", 100), mk(pdfcp.EtatExecute, "derive", 50),
		mk(pdfcp.EtatConcerte, "sur", 100), mk(pdfcp.EtatExecute, "sur", 120),
		mk(pdfcp.EtatCP, "prevu", 10),
		mk(pdfcp.EtatExecute, "hors-plan", 3),
		mk("OTHER", "vide", 7),
	}
	s := SummarizeByAction(lines)
	byLabel := map[string]ActionSummary{}
	for _, a := range s.Actions {
		byLabel[a.Label] = a
	}
	assert.Equal(t, StatutRealise, byLabel["realise"].Statut)
	assert.Equal(t, StatutDerive, byLabel["derive"].Statut)
	assert.Equal(t, StatutEnCours, byLabel["sur"].Statut)
	assert.Equal(t, StatutEnCours, byLabel["prevu"].Statut)
	assert.Equal(t, StatutNonDemarre, byLabel["vide"].Statut)

	// No plan but something executed counts as fully done against the plan.
	assert.Equal(t, 100, byLabel["hors-plan"].TauxExecVsPlan)
	assert.Equal(t, 0, byLabel["vide"].TauxExecVsPlan)
	assert.Equal(t, 50, byLabel["derive"].TauxExecVsPlan)
	assert.Equal(t, "ha", byLabel["derive"].Unite)

	assert.Equal(t, 300.0, s.Totals.PlanTotal)
	assert.Equal(t, 273.0, s.Totals.ExecTotal)
	assert.Equal(t, 91, s.Totals.TauxGlobal)
}
