package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
)

func TestCalculateTaux(t *testing.T) {
	assert.Nil(t, CalculateTaux(10, 0))
	assert.Nil(t, CalculateTaux(0, 0))

	cases := []struct {
		exec, ref float64
		want      int
	}{
		{50, 100, 50},
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 67},
		{150, 100, 150},
		{1, 8, 13},
	}
	for _, tc := range cases {
		got := CalculateTaux(tc.exec, tc.ref)
		require.NotNil(t, got)
		assert.Equal(t, tc.want, *got, "exec=%v ref=%v", tc.exec, tc.ref)
	}
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -2, Round(-2.5))
	assert.Equal(t, 12.35, Round2(12.346))
}

func TestGetEcartStatus(t *testing.T) {
	cases := []struct {
		value, ref float64
		want       EcartStatus
	}{
		{10, 0, EcartConforme},
		{94, 100, EcartSous},
		{95, 100, EcartConforme},
		{100, 100, EcartConforme},
		{105, 100, EcartConforme},
		{106, 100, EcartSur},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GetEcartStatus(tc.value, tc.ref), "value=%v ref=%v", tc.value, tc.ref)
	}
}

func TestNeedsJustificationAndValidateCPLine(t *testing.T) {
	src := pdfcp.Action{Etat: pdfcp.EtatConcerte, Physique: 10, Financier: 1000}

	same := pdfcp.Action{Etat: pdfcp.EtatCP, Physique: 10, Financier: 1000}
	assert.False(t, NeedsJustification(same, &src))
	assert.NoError(t, ValidateCPLine(same, &src))

	moved := pdfcp.Action{Etat: pdfcp.EtatCP, Physique: 8, Financier: 1000}
	assert.True(t, NeedsJustification(moved, &src))
	assert.ErrorIs(t, ValidateCPLine(moved, &src), ErrJustificationRequired)

	moved.JustificationEcart = "   "
	assert.ErrorIs(t, ValidateCPLine(moved, &src), ErrJustificationRequired)

	moved.JustificationEcart = "surface réduite après bornage"
	assert.NoError(t, ValidateCPLine(moved, &src))

	assert.False(t, NeedsJustification(moved, nil))
}

func TestNeedsProof(t *testing.T) {
	assert.True(t, NeedsProof(pdfcp.Action{Etat: pdfcp.EtatExecute, Financier: 1}))
	assert.False(t, NeedsProof(pdfcp.Action{Etat: pdfcp.EtatExecute}))
	assert.False(t, NeedsProof(pdfcp.Action{Etat: pdfcp.EtatCP, Financier: 1}))
}
