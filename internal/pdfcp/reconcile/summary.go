package reconcile

import (
	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

type StatutRealisation string

const (
	StatutRealise    StatutRealisation = "realise"
	StatutDerive     StatutRealisation = "derive"
	StatutEnCours    StatutRealisation = "en_cours"
	StatutNonDemarre StatutRealisation = "non_demarre"
)

// ActionSummary is the physical progress of one action label across all years.
type ActionSummary struct {
	ID             uuid.UUID         `json:"id"`
	Label          string            `json:"label"`
	Unite          string            `json:"unite"`
	PlanSurface    float64           `json:"plan_surface"`
	CPSurface      float64           `json:"cp_surface"`
	ExecSurface    float64           `json:"exec_surface"`
	TauxExecVsPlan int               `json:"taux_exec_vs_plan"`
	TauxExecVsCP   int               `json:"taux_exec_vs_cp"`
	Statut         StatutRealisation `json:"statut"`
}

type SummaryTotals struct {
	PlanTotal  float64 `json:"plan_total"`
	CPTotal    float64 `json:"cp_total"`
	ExecTotal  float64 `json:"exec_total"`
	TauxGlobal int     `json:"taux_global"`
}

type Summary struct {
	Actions []ActionSummary `json:"actions"`
	Totals  SummaryTotals   `json:"totals"`
}

// tauxOrFull treats a zero reference as fully done once anything was executed.
func tauxOrFull(exec, ref float64) int {
	if ref > 0 {
		return Round(exec / ref * 100)
	}
	if exec > 0 {
		return 100
	}
	return 0
}

func statutOf(plan, cp, exec float64) StatutRealisation {
	if exec > 0 {
		switch {
		case exec >= plan*lowBand && exec <= plan*highBand:
			return StatutRealise
		case exec < plan*lowBand:
			return StatutDerive
		default:
			return StatutEnCours
		}
	}
	if plan > 0 || cp > 0 {
		return StatutEnCours
	}
	return StatutNonDemarre
}

// SummarizeByAction groups lines by action label (falling back to the key)
// and compares executed physique with the plan and the CP.
func SummarizeByAction(lines []pdfcp.Action) Summary {
	type acc struct {
		id             uuid.UUID
		label, unite   string
		plan, cp, exec float64
	}
	groups := map[string]*acc{}
	var order []string
	for _, a := range lines {
		label := labelOf(a)
		g, ok := groups[label]
		if !ok {
			unite := a.Unite
			if unite == "" {
				unite = "ha"
			}
			g = &acc{id: a.ID, label: label, unite: unite}
			groups[label] = g
			order = append(order, label)
		}
		switch a.Etat {
		case pdfcp.EtatConcerte:
			g.plan += a.Physique
		case pdfcp.EtatCP:
			g.cp += a.Physique
		case pdfcp.EtatExecute:
			g.exec += a.Physique
		}
	}

	out := Summary{Actions: make([]ActionSummary, 0, len(order))}
	for _, label := range order {
		g := groups[label]
		s := ActionSummary{
			ID:             g.id,
			Label:          g.label,
			Unite:          g.unite,
			PlanSurface:    Round2(g.plan),
			CPSurface:      Round2(g.cp),
			ExecSurface:    Round2(g.exec),
			TauxExecVsPlan: tauxOrFull(g.exec, g.plan),
			TauxExecVsCP:   tauxOrFull(g.exec, g.cp),
			Statut:         statutOf(g.plan, g.cp, g.exec),
		}
		out.Actions = append(out.Actions, s)
		out.Totals.PlanTotal += s.PlanSurface
		out.Totals.CPTotal += s.CPSurface
		out.Totals.ExecTotal += s.ExecSurface
	}
	out.Totals.TauxGlobal = tauxOrFull(out.Totals.ExecTotal, out.Totals.PlanTotal)
	out.Totals.PlanTotal = Round2(out.Totals.PlanTotal)
	out.Totals.CPTotal = Round2(out.Totals.CPTotal)
	out.Totals.ExecTotal = Round2(out.Totals.ExecTotal)
	return out
}
