package reconcile

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type AlertType string

const (
	AlertRetardExecution   AlertType = "retard_execution"
	AlertEcartCPConcerte   AlertType = "ecart_cp_concerte"
	AlertDepassementBudget AlertType = "depassement_budget"
	AlertFaibleTaux        AlertType = "faible_taux"
)

var AlertTypes = []AlertType{AlertRetardExecution, AlertEcartCPConcerte, AlertDepassementBudget, AlertFaibleTaux}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritique Severity = "critique"
)

type Alert struct {
	ID             string     `json:"id"`
	Type           AlertType  `json:"type"`
	Severity       Severity   `json:"severity"`
	PdfcpID        uuid.UUID  `json:"pdfcp_id"`
	PdfcpTitle     string     `json:"pdfcp_title"`
	Year           int        `json:"year"`
	ActionKey      string     `json:"action_key"`
	ActionLabel    string     `json:"action_label"`
	CommuneID      *uuid.UUID `json:"commune_id,omitempty"`
	DpanefID       *uuid.UUID `json:"dpanef_id,omitempty"`
	DranefID       *uuid.UUID `json:"dranef_id,omitempty"`
	ReferenceValue float64    `json:"reference_value"`
	ObservedValue  float64    `json:"observed_value"`
	Taux           int        `json:"taux"`
	Message        string     `json:"message"`
}

func (a Alert) ScopeAnchors() rbac.Anchors {
	return rbac.Anchors{DranefID: a.DranefID, DpanefID: a.DpanefID, CommuneID: a.CommuneID}
}

// BuildAlerts evaluates the four alert rules on each key. Keys whose program
// is not in programs are skipped.
func BuildAlerts(totals []KeyTotals, programs map[uuid.UUID]pdfcp.Program) []Alert {
	var out []Alert
	for _, t := range totals {
		p, ok := programs[t.PdfcpID]
		if !ok {
			continue
		}
		base := Alert{
			PdfcpID:     t.PdfcpID,
			PdfcpTitle:  p.Title,
			Year:        t.Year,
			ActionKey:   t.ActionKey,
			ActionLabel: t.ActionLabel,
			CommuneID:   p.CommuneID,
			DpanefID:    p.DpanefID,
			DranefID:    p.DranefID,
		}
		if t.CommuneID != uuid.Nil {
			c := t.CommuneID
			base.CommuneID = &c
		}
		emit := func(typ AlertType, sev Severity, ref, obs float64, taux int, msg string) {
			a := base
			a.ID = fmt.Sprintf("%s:%s:%d:%s:%s", typ, t.PdfcpID, t.Year, t.ActionKey, t.CommuneID)
			a.Type, a.Severity = typ, sev
			a.ReferenceValue, a.ObservedValue, a.Taux, a.Message = ref, obs, taux, msg
			out = append(out, a)
		}

		cpPhys, execPhys, concPhys := t.CP.Physique, t.Execute.Physique, t.Concerte.Physique
		cpFin, execFin := t.CP.Financier, t.Execute.Financier

		if cpPhys > 0 && execPhys < cpPhys {
			taux := Round(execPhys / cpPhys * 100)
			sev := SeverityInfo
			if taux < 50 {
				sev = SeverityCritique
			} else if taux < 80 {
				sev = SeverityWarning
			}
			emit(AlertRetardExecution, sev, cpPhys, execPhys, taux,
				fmt.Sprintf("Exécution physique à %d%% (%g/%g)", taux, execPhys, cpPhys))
		}

		if concPhys > 0 && cpPhys != concPhys {
			delta := cpPhys - concPhys
			pct := int(math.Abs(float64(Round(delta / concPhys * 100))))
			sev := SeverityInfo
			if pct > 30 {
				sev = SeverityCritique
			} else if pct > 15 {
				sev = SeverityWarning
			}
			sign := ""
			if delta > 0 {
				sign = "+"
			}
			emit(AlertEcartCPConcerte, sev, concPhys, cpPhys, pct,
				fmt.Sprintf("Écart CP/Concerté: %s%g (%d%%)", sign, delta, pct))
		}

		if cpFin > 0 && execFin > cpFin {
			over := execFin - cpFin
			pct := Round(over / cpFin * 100)
			sev := SeverityInfo
			if pct > 20 {
				sev = SeverityCritique
			} else if pct > 10 {
				sev = SeverityWarning
			}
			emit(AlertDepassementBudget, sev, cpFin, execFin, pct,
				fmt.Sprintf("Dépassement: +%d%% (+%.0f DH)", pct, over))
		}

		if cpFin > 0 {
			taux := Round(execFin / cpFin * 100)
			if taux < 80 {
				sev := SeverityWarning
				if taux < 60 {
					sev = SeverityCritique
				}
				emit(AlertFaibleTaux, sev, cpFin, execFin, taux,
					fmt.Sprintf("Taux d'exécution financière: %d%%", taux))
			}
		}
	}
	return out
}

// AlertFilter narrows alerts after scope filtering. Zero values match everything.
type AlertFilter struct {
	PdfcpID   *uuid.UUID
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	Type      AlertType
	Severity  Severity
}

func eqOpt(want, got *uuid.UUID) bool {
	if want == nil {
		return true
	}
	return got != nil && *got == *want
}

func (f AlertFilter) Match(a Alert) bool {
	if f.PdfcpID != nil && a.PdfcpID != *f.PdfcpID {
		return false
	}
	if !eqOpt(f.DranefID, a.DranefID) || !eqOpt(f.DpanefID, a.DpanefID) || !eqOpt(f.CommuneID, a.CommuneID) {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	return true
}

func (f AlertFilter) Apply(alerts []Alert) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out
}

type AlertSummary struct {
	Total    int               `json:"total"`
	Critique int               `json:"critique"`
	Warning  int               `json:"warning"`
	Info     int               `json:"info"`
	ByType   map[AlertType]int `json:"by_type"`
}

func Summarize(alerts []Alert) AlertSummary {
	s := AlertSummary{Total: len(alerts), ByType: map[AlertType]int{}}
	for _, t := range AlertTypes {
		s.ByType[t] = 0
	}
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritique:
			s.Critique++
		case SeverityWarning:
			s.Warning++
		case SeverityInfo:
			s.Info++
		}
		s.ByType[a.Type]++
	}
	return s
}

type KPIs struct {
	TotalPdfcp    int     `json:"total_pdfcp"`
	BudgetCP      float64 `json:"budget_cp"`
	BudgetExec    float64 `json:"budget_exec"`
	TauxExecution int     `json:"taux_execution"`
}

// ComputeKPIs sums the CP and EXECUTE budgets of the given programs' lines.
func ComputeKPIs(programs []pdfcp.Program, lines []pdfcp.Action) KPIs {
	ids := make(map[uuid.UUID]struct{}, len(programs))
	for _, p := range programs {
		ids[p.ID] = struct{}{}
	}
	k := KPIs{TotalPdfcp: len(programs)}
	for _, a := range lines {
		if _, ok := ids[a.PdfcpID]; !ok {
			continue
		}
		switch a.Etat {
		case pdfcp.EtatCP:
			k.BudgetCP += a.Financier
		case pdfcp.EtatExecute:
			k.BudgetExec += a.Financier
		}
	}
	if k.BudgetCP > 0 {
		k.TauxExecution = Round(k.BudgetExec / k.BudgetCP * 100)
	}
	return k
}
