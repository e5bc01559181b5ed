package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveScopeLevel(t *testing.T) {
	cases := []struct {
		role, label string
		want        ScopeLevel
	}{
		{"admin", "", ScopeAdmin},
		{"adp", "DG", ScopeNational},
		{"adp", "Chef service central", ScopeNational},
		{"adp", "DRANEF", ScopeRegional},
		{"adp", "Chef service régional SAP", ScopeRegional},
		{"adp", "DPANEF", ScopeProvincial},
		{"adp", "", ScopeLocal},
		{"ADP", "unknown label", ScopeLocal},
		{"", "", ScopeLocal},
		{"Admin", "", ScopeAdmin},
		{"adp", " dpanef ", ScopeProvincial},
		{"technicien", "", ScopeLocal},
	}
	for _, tc := range cases {
		got := DeriveScopeLevel(tc.role, tc.label)
		assert.Equal(t, tc.want, got, "role=%q label=%q", tc.role, tc.label)
	}
}

func TestHighestScope(t *testing.T) {
	assert.Equal(t, ScopeAdmin, HighestScope("adp", "admin", "DRANEF"))
	assert.Equal(t, ScopeRegional, HighestScope("DPANEF", "DRANEF"))
	assert.Equal(t, ScopeNational, HighestScope("NATIONAL"))
	assert.Equal(t, ScopeLocal, HighestScope())
}

func TestParseScopeLevel(t *testing.T) {
	s, ok := ParseScopeLevel(" regional ")
	assert.True(t, ok)
	assert.Equal(t, ScopeRegional, s)
	_, ok = ParseScopeLevel("guest")
	assert.False(t, ok)
}

func TestMenuFor(t *testing.T) {
	local := MenuFor(ScopeLocal)
	assert.Contains(t, local, MenuPDFCP)
	assert.NotContains(t, local, MenuGestionADP)
	assert.NotContains(t, local, MenuAdminUsers)

	national := MenuFor(ScopeNational)
	assert.Contains(t, national, MenuAdminUsers)
	assert.NotContains(t, national, MenuAdminUnlockRequests)

	assert.Len(t, MenuFor(ScopeAdmin), len(menuOrder))
	assert.Equal(t, "Local (ADP)", ScopeLocal.Label())
}
