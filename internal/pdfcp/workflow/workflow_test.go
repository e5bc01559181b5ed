package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

var allScopes = []rbac.ScopeLevel{rbac.ScopeAdmin, rbac.ScopeNational, rbac.ScopeRegional, rbac.ScopeProvincial, rbac.ScopeLocal}

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		level    rbac.ScopeLevel
		want     error
	}{
		{pdfcp.StatusBrouillon, pdfcp.StatusConcerteADP, rbac.ScopeLocal, nil},
		{"", pdfcp.StatusConcerteADP, rbac.ScopeLocal, nil},
		{pdfcp.StatusBrouillon, pdfcp.StatusConcerteADP, rbac.ScopeProvincial, ErrForbiddenTransition},
		{pdfcp.StatusConcerteADP, pdfcp.StatusValideDPANEF, rbac.ScopeProvincial, nil},
		{pdfcp.StatusConcerteADP, pdfcp.StatusValideDPANEF, rbac.ScopeLocal, ErrForbiddenTransition},
		{pdfcp.StatusValideDPANEF, pdfcp.StatusValideCentral, rbac.ScopeRegional, nil},
		{pdfcp.StatusValideDPANEF, pdfcp.StatusValideCentral, rbac.ScopeNational, nil},
		{pdfcp.StatusValideCentral, pdfcp.StatusVerrouille, rbac.ScopeRegional, ErrForbiddenTransition},
		{pdfcp.StatusValideCentral, pdfcp.StatusVerrouille, rbac.ScopeAdmin, nil},
		{pdfcp.StatusBrouillon, pdfcp.StatusVerrouille, rbac.ScopeAdmin, ErrInvalidTransition},
		{pdfcp.StatusBrouillon, pdfcp.StatusValideDPANEF, rbac.ScopeAdmin, ErrInvalidTransition},
		{pdfcp.StatusVerrouille, pdfcp.StatusValideCentral, rbac.ScopeRegional, ErrForbiddenTransition},
		{pdfcp.StatusVerrouille, pdfcp.StatusValideCentral, rbac.ScopeAdmin, nil},
		{pdfcp.StatusVerrouille, pdfcp.StatusBrouillon, rbac.ScopeAdmin, ErrInvalidTransition},
		{pdfcp.StatusConcerteADP, pdfcp.StatusBrouillon, rbac.ScopeLocal, ErrForbiddenTransition},
		{pdfcp.StatusConcerteADP, pdfcp.StatusBrouillon, rbac.ScopeAdmin, nil},
	}
	for _, tc := range cases {
		got := CheckTransition(tc.from, tc.to, tc.level)
		assert.ErrorIs(t, got, tc.want, "%s -> %s as %s", tc.from, tc.to, tc.level)
		if tc.want == nil {
			assert.NoError(t, got)
		}
	}
}

func TestCanCancel(t *testing.T) {
	for _, lvl := range allScopes {
		assert.False(t, CanCancel(pdfcp.StatusBrouillon, lvl))
		assert.False(t, CanCancel(pdfcp.StatusVerrouille, lvl))
	}
	assert.True(t, CanCancel(pdfcp.StatusConcerteADP, rbac.ScopeAdmin))
	assert.True(t, CanCancel(pdfcp.StatusConcerteADP, rbac.ScopeLocal))
	assert.False(t, CanCancel(pdfcp.StatusConcerteADP, rbac.ScopeProvincial))
	assert.False(t, CanCancel(pdfcp.StatusConcerteADP, rbac.ScopeNational))

	for _, s := range []Status{pdfcp.StatusValideDPANEF, pdfcp.StatusValideCentral} {
		assert.True(t, CanCancel(s, rbac.ScopeProvincial))
		assert.True(t, CanCancel(s, rbac.ScopeRegional))
		assert.True(t, CanCancel(s, rbac.ScopeAdmin))
		assert.False(t, CanCancel(s, rbac.ScopeLocal))
		assert.False(t, CanCancel(s, rbac.ScopeNational))
	}
}

func TestCanUnlockAndLocking(t *testing.T) {
	for _, lvl := range allScopes {
		assert.Equal(t, lvl == rbac.ScopeAdmin, CanUnlock(pdfcp.StatusVerrouille, lvl))
		assert.False(t, IsLockedForScope(pdfcp.StatusValideCentral, lvl))
		assert.Equal(t, lvl != rbac.ScopeAdmin, IsLockedForScope(pdfcp.StatusVerrouille, lvl))
	}
	assert.False(t, CanUnlock(pdfcp.StatusValideCentral, rbac.ScopeAdmin))
}

func TestNextActions(t *testing.T) {
	assert.Equal(t, []Status{pdfcp.StatusConcerteADP}, NextActions(pdfcp.StatusBrouillon, rbac.ScopeLocal))
	assert.Empty(t, NextActions(pdfcp.StatusConcerteADP, rbac.ScopeLocal))
	assert.Equal(t, []Status{pdfcp.StatusVerrouille}, NextActions(pdfcp.StatusValideCentral, rbac.ScopeAdmin))
	assert.Empty(t, NextActions(pdfcp.StatusVerrouille, rbac.ScopeNational))
}

func TestHistoryNames(t *testing.T) {
	assert.Equal(t, "status_change_valide_dpanef", HistoryAction(pdfcp.StatusValideDPANEF))
	assert.Equal(t, "cancellation_concerte_adp", CancellationAction(pdfcp.StatusConcerteADP))
	assert.Equal(t, "Annulation motivée: erreur de saisie", CancellationNote("  erreur de saisie "))

	s, err := ParseStatus(" valide_central")
	assert.NoError(t, err)
	assert.Equal(t, pdfcp.StatusValideCentral, s)
	_, err = ParseStatus("DONE")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}
