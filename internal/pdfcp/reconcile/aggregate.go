package reconcile

import (
	"sort"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

// Key identifies the lines of the three layers that describe the same work.
type Key struct {
	PdfcpID   uuid.UUID `json:"pdfcp_id"`
	Year      int       `json:"year"`
	ActionKey string    `json:"action_key"`
	CommuneID uuid.UUID `json:"commune_id"`
}

func KeyOf(a pdfcp.Action) Key {
	k := Key{PdfcpID: a.PdfcpID, Year: a.Year, ActionKey: a.ActionKey}
	if a.CommuneID != nil {
		k.CommuneID = *a.CommuneID
	}
	return k
}

type Layer struct {
	Physique  float64 `json:"physique"`
	Financier float64 `json:"financier"`
	Lines     int     `json:"lines"`
}

func (l *Layer) add(a pdfcp.Action) {
	l.Physique += a.Physique
	l.Financier += a.Financier
	l.Lines++
}

type KeyTotals struct {
	Key
	ActionLabel string `json:"action_label"`
	Concerte    Layer  `json:"concerte"`
	CP          Layer  `json:"cp"`
	Execute     Layer  `json:"execute"`

	DeltaConcerteCPPhysique  float64 `json:"delta_concerte_cp_physique"`
	DeltaConcerteCPFinancier float64 `json:"delta_concerte_cp_financier"`
	DeltaCPExecPhysique      float64 `json:"delta_cp_exec_physique"`
	DeltaCPExecFinancier     float64 `json:"delta_cp_exec_financier"`
	TauxExec                 *int    `json:"taux_exec"`
	TauxPhysique             *int    `json:"taux_physique"`
}

// HasCP reports whether at least one CP line contributed to the key.
func (t KeyTotals) HasCP() bool { return t.CP.Lines > 0 }

func (t *KeyTotals) derive() {
	t.DeltaConcerteCPPhysique = t.CP.Physique - t.Concerte.Physique
	t.DeltaConcerteCPFinancier = t.CP.Financier - t.Concerte.Financier
	t.DeltaCPExecPhysique = t.Execute.Physique - t.CP.Physique
	t.DeltaCPExecFinancier = t.Execute.Financier - t.CP.Financier

	refFin, refPhys := t.Concerte.Financier, t.Concerte.Physique
	if t.HasCP() {
		refFin, refPhys = t.CP.Financier, t.CP.Physique
	}
	t.TauxExec = CalculateTaux(t.Execute.Financier, refFin)
	t.TauxPhysique = CalculateTaux(t.Execute.Physique, refPhys)
}

// Aggregate sums physique and financier per layer for every key.
// Lines with an unknown etat are ignored. Output is sorted by program, year, action key.
func Aggregate(lines []pdfcp.Action) []KeyTotals {
	byKey := map[Key]*KeyTotals{}
	var order []Key
	for _, a := range lines {
		k := KeyOf(a)
		t, ok := byKey[k]
		if !ok {
			t = &KeyTotals{Key: k, ActionLabel: labelOf(a)}
			byKey[k] = t
			order = append(order, k)
		}
		switch a.Etat {
		case pdfcp.EtatConcerte:
			t.Concerte.add(a)
		case pdfcp.EtatCP:
			t.CP.add(a)
		case pdfcp.EtatExecute:
			t.Execute.add(a)
		}
	}
	out := make([]KeyTotals, 0, len(order))
	for _, k := range order {
		t := byKey[k]
		t.derive()
		out = append(out, *t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PdfcpID != b.PdfcpID {
			return a.PdfcpID.String() < b.PdfcpID.String()
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.ActionKey != b.ActionKey {
			return a.ActionKey < b.ActionKey
		}
		return a.CommuneID.String() < b.CommuneID.String()
	})
	return out
}

func labelOf(a pdfcp.Action) string {
	if a.ActionLabel != "" {
		return a.ActionLabel
	}
	return a.ActionKey
}
