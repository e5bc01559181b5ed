package stats

import (
	"strings"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
)

var oppositionNatures = []string{
	"opposition",
	"privation du droit d'usage",
	"opposition aux accès",
	"opposition des accès",
	"opposition aux travaux de reforestation",
	"conflit foncier",
	"exploitation illégale",
}

var resolvedStatuses = map[string]bool{
	"résolu":  true,
	"resolu":  true,
	"levé":    true,
	"leve":    true,
	"clôturé": true,
	"cloture": true,
}

// IsOpposition trusts conflict_type when it is set and falls back to the nature text.
func IsOpposition(c field.Conflict) bool {
	switch strings.ToLower(strings.TrimSpace(c.ConflictType)) {
	case field.ConflictTypeOpposition:
		return true
	case field.ConflictTypeConflit:
		return false
	}
	nature := strings.ToLower(c.Nature)
	if nature == "" {
		return false
	}
	for _, p := range oppositionNatures {
		if strings.Contains(nature, p) {
			return true
		}
	}
	return false
}

func IsResolved(c field.Conflict) bool {
	return resolvedStatuses[strings.ToLower(strings.TrimSpace(c.Status))]
}

type ConflictMetrics struct {
	TotalConflits        int     `json:"totalConflits"`
	TotalOppositions     int     `json:"totalOppositions"`
	OppositionsEnCours   int     `json:"oppositionsEnCours"`
	OppositionsLevees    int     `json:"oppositionsLevees"`
	SuperficieOpposition float64 `json:"superficieOpposition"`
	SuperficieLevee      float64 `json:"superficieLevee"`
}

// Metrics summarizes an already scoped and filtered conflict list.
func Metrics(conflicts []field.Conflict) ConflictMetrics {
	m := ConflictMetrics{TotalConflits: len(conflicts)}
	for _, c := range conflicts {
		if !IsOpposition(c) {
			continue
		}
		m.TotalOppositions++
		ha := 0.0
		if c.SuperficieOpposeeHa != nil {
			ha = *c.SuperficieOpposeeHa
		}
		m.SuperficieOpposition += ha
		if IsResolved(c) {
			m.OppositionsLevees++
			m.SuperficieLevee += ha
		} else {
			m.OppositionsEnCours++
		}
	}
	return m
}
