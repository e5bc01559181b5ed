package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/pkg/pointers"
)

func TestIsOpposition(t *testing.T) {
	cases := []struct {
		name   string
		c      field.Conflict
		expect bool
	}{
		{"type opposition", field.Conflict{ConflictType: "opposition"}, true},
		{"type wins over nature", field.Conflict{ConflictType: "conflit", Nature: "Opposition aux travaux"}, false},
		{"type is case insensitive", field.Conflict{ConflictType: "Opposition"}, true},
		{"nature pattern", field.Conflict{Nature: "Privation du droit d'usage"}, true},
		{"nature conflit foncier", field.Conflict{Nature: "Conflit foncier entre douars"}, true},
		{"plain nature", field.Conflict{Nature: "Dégâts de bétail"}, false},
		{"empty", field.Conflict{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, IsOpposition(tc.c))
		})
	}
}

func TestIsResolved(t *testing.T) {
	for _, s := range []string{"resolu", "Résolu", " levé ", "leve", "Clôturé", "cloture"} {
		assert.True(t, IsResolved(field.Conflict{Status: s}), s)
	}
	for _, s := range []string{"ouvert", "en_cours", "escalade", ""} {
		assert.False(t, IsResolved(field.Conflict{Status: s}), s)
	}
}

func TestMetrics(t *testing.T) {
	conflicts := []field.Conflict{
		{ConflictType: "opposition", Status: "ouvert", SuperficieOpposeeHa: pointers.Float64(10)},
		{ConflictType: "opposition", Status: "resolu", SuperficieOpposeeHa: pointers.Float64(4)},
		{Nature: "opposition des accès", Status: "en_cours"},
		{ConflictType: "conflit", Status: "resolu", SuperficieOpposeeHa: pointers.Float64(99)},
	}
	m := Metrics(conflicts)
	assert.Equal(t, 4, m.TotalConflits)
	assert.Equal(t, 3, m.TotalOppositions)
	assert.Equal(t, 2, m.OppositionsEnCours)
	assert.Equal(t, 1, m.OppositionsLevees)
	assert.InDelta(t, 14.0, m.SuperficieOpposition, 1e-9)
	assert.InDelta(t, 4.0, m.SuperficieLevee, 1e-9)
}
