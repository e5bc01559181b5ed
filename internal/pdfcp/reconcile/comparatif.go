package reconcile

import (
	"sort"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

// Row reconciles one CONCERTE line with its CP line and EXECUTE lines.
type Row struct {
	ConcerteID  uuid.UUID   `json:"concerte_id"`
	CPID        *uuid.UUID  `json:"cp_id,omitempty"`
	ExecuteIDs  []uuid.UUID `json:"execute_ids"`
	Year        int         `json:"year"`
	ActionKey   string      `json:"action_key"`
	ActionLabel string      `json:"action_label"`
	Unite       string      `json:"unite,omitempty"`
	Perimetre   string      `json:"perimetre"`

	ConcerteQty    float64  `json:"concerte_qty"`
	ConcerteBudget float64  `json:"concerte_budget"`
	CPQty          *float64 `json:"cp_qty"`
	CPBudget       *float64 `json:"cp_budget"`
	ExecQty        float64  `json:"exec_qty"`
	ExecBudget     float64  `json:"exec_budget"`

	DeltaConcerteCPBudget *float64    `json:"delta_concerte_cp_budget"`
	DeltaCPExecBudget     *float64    `json:"delta_cp_exec_budget"`
	TauxExec              *int        `json:"taux_exec"`
	EcartStatus           EcartStatus `json:"ecart_status"`
	Justification         string      `json:"justification,omitempty"`
	NeedsJustification    bool        `json:"needs_justification"`
}

type ComparatifTotals struct {
	Concerte   float64 `json:"concerte"`
	CP         float64 `json:"cp"`
	Exec       float64 `json:"exec"`
	TauxGlobal int     `json:"taux_global"`
}

type Comparatif struct {
	Rows          []Row            `json:"rows"`
	Totals        ComparatifTotals `json:"totals"`
	OrphanCP      []uuid.UUID      `json:"orphan_cp"`
	OrphanExecute []uuid.UUID      `json:"orphan_execute"`
}

func sameSlot(a, b pdfcp.Action) bool {
	return a.ActionKey == b.ActionKey && a.Year == b.Year && a.PerimetreID == b.PerimetreID
}

func sourceIs(src *uuid.UUID, id uuid.UUID) bool { return src != nil && *src == id }

// BuildComparatif walks the CONCERTE lines of a program and matches each with
// its CP line (by source_plan_line_id, else by action key, year and perimetre)
// and its EXECUTE lines (by source_cp_line_id, else by the same slot).
func BuildComparatif(lines []pdfcp.Action) Comparatif {
	var concerte, cps, execs []pdfcp.Action
	for _, l := range lines {
		switch l.Etat {
		case pdfcp.EtatConcerte:
			concerte = append(concerte, l)
		case pdfcp.EtatCP:
			cps = append(cps, l)
		case pdfcp.EtatExecute:
			execs = append(execs, l)
		}
	}

	usedCP := map[uuid.UUID]bool{}
	usedExec := map[uuid.UUID]bool{}
	rows := make([]Row, 0, len(concerte))

	for _, cl := range concerte {
		cp := matchCP(cl, cps)

		var matched []pdfcp.Action
		if cp != nil {
			for _, e := range execs {
				if sourceIs(e.SourceCPLineID, cp.ID) {
					matched = append(matched, e)
				}
			}
		}
		if len(matched) == 0 {
			for _, e := range execs {
				if sameSlot(e, cl) {
					matched = append(matched, e)
				}
			}
		}

		row := Row{
			ConcerteID:     cl.ID,
			ExecuteIDs:     []uuid.UUID{},
			Year:           cl.Year,
			ActionKey:      cl.ActionKey,
			ActionLabel:    labelOf(cl),
			Unite:          cl.Unite,
			Perimetre:      cl.PerimetreID,
			ConcerteQty:    cl.Physique,
			ConcerteBudget: cl.Financier,
		}
		if row.Perimetre == "" {
			row.Perimetre = "-"
		}
		for _, e := range matched {
			row.ExecQty += e.Physique
			row.ExecBudget += e.Financier
			row.ExecuteIDs = append(row.ExecuteIDs, e.ID)
			usedExec[e.ID] = true
		}

		ref := cl.Financier
		if cp != nil {
			usedCP[cp.ID] = true
			id, qty, budget := cp.ID, cp.Physique, cp.Financier
			dConc := budget - cl.Financier
			dExec := row.ExecBudget - budget
			row.CPID, row.CPQty, row.CPBudget = &id, &qty, &budget
			row.DeltaConcerteCPBudget, row.DeltaCPExecBudget = &dConc, &dExec
			row.Justification = cp.JustificationEcart
			row.NeedsJustification = NeedsJustification(*cp, &cl)
			ref = budget
		}
		row.TauxExec = CalculateTaux(row.ExecBudget, ref)
		row.EcartStatus = GetEcartStatus(row.ExecBudget, ref)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].ActionKey < rows[j].ActionKey
	})

	out := Comparatif{Rows: rows, OrphanCP: []uuid.UUID{}, OrphanExecute: []uuid.UUID{}}
	for _, r := range rows {
		out.Totals.Concerte += r.ConcerteBudget
		if r.CPBudget != nil {
			out.Totals.CP += *r.CPBudget
		}
		out.Totals.Exec += r.ExecBudget
	}
	if out.Totals.Concerte > 0 {
		out.Totals.TauxGlobal = Round(out.Totals.Exec / out.Totals.Concerte * 100)
	}
	for _, c := range cps {
		if !usedCP[c.ID] {
			out.OrphanCP = append(out.OrphanCP, c.ID)
		}
	}
	for _, e := range execs {
		if !usedExec[e.ID] {
			out.OrphanExecute = append(out.OrphanExecute, e.ID)
		}
	}
	return out
}

func matchCP(cl pdfcp.Action, cps []pdfcp.Action) *pdfcp.Action {
	for i := range cps {
		if sourceIs(cps[i].SourcePlanLineID, cl.ID) {
			return &cps[i]
		}
	}
	for i := range cps {
		if sameSlot(cps[i], cl) {
			return &cps[i]
		}
	}
	return nil
}
