// Package reconcile compares the CONCERTE, CP and EXECUTE layers of a
// program's action lines.
package reconcile

import (
	"errors"
	"math"
	"strings"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

var ErrJustificationRequired = errors.New("cp line differs from its concerte source and needs a justification")

type EcartStatus string

const (
	EcartSous     EcartStatus = "sous"
	EcartConforme EcartStatus = "conforme"
	EcartSur      EcartStatus = "sur"
)

// Tolerance band around a reference value, as a ratio.
const (
	lowBand  = 0.95
	highBand = 1.05
)

// Round rounds half up, so -2.5 becomes -2.
func Round(x float64) int { return int(math.Floor(x + 0.5)) }

// Round2 rounds to two decimals.
func Round2(x float64) float64 { return math.Floor(x*100+0.5) / 100 }

// CalculateTaux returns round(exec/ref*100), or nil when ref is zero.
func CalculateTaux(exec, ref float64) *int {
	if ref == 0 {
		return nil
	}
	v := Round(exec / ref * 100)
	return &v
}

func GetEcartStatus(value, ref float64) EcartStatus {
	if ref == 0 {
		return EcartConforme
	}
	ratio := value / ref
	switch {
	case ratio < lowBand:
		return EcartSous
	case ratio > highBand:
		return EcartSur
	default:
		return EcartConforme
	}
}

// NeedsJustification is true when a CP line moved away from its CONCERTE source.
func NeedsJustification(cp pdfcp.Action, concerte *pdfcp.Action) bool {
	if concerte == nil {
		return false
	}
	return cp.Physique != concerte.Physique || cp.Financier != concerte.Financier
}

func NeedsProof(line pdfcp.Action) bool {
	return line.Etat == pdfcp.EtatExecute && line.Financier > 0
}

func ValidateCPLine(cp pdfcp.Action, source *pdfcp.Action) error {
	if NeedsJustification(cp, source) && strings.TrimSpace(cp.JustificationEcart) == "" {
		return ErrJustificationRequired
	}
	return nil
}
