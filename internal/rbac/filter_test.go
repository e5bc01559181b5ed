package rbac

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type mapLookup struct {
	communeDpanef map[uuid.UUID]uuid.UUID
	dpanefDranef  map[uuid.UUID]uuid.UUID
}

func (m mapLookup) DpanefOfCommune(id uuid.UUID) (uuid.UUID, bool) {
	v, ok := m.communeDpanef[id]
	return v, ok
}

func (m mapLookup) DranefOfDpanef(id uuid.UUID) (uuid.UUID, bool) {
	v, ok := m.dpanefDranef[id]
	return v, ok
}

type item struct {
	name string
	a    Anchors
}

func (i item) ScopeAnchors() Anchors { return i.a }

func ptr(id uuid.UUID) *uuid.UUID { return &id }

// Two DRANEF, each with one DPANEF and one commune.
type fixture struct {
	dranefA, dranefB   uuid.UUID
	dpanefA, dpanefB   uuid.UUID
	communeA, communeB uuid.UUID
	orphanCommune      uuid.UUID
	lk                 mapLookup
}

func newFixture() fixture {
	f := fixture{
		dranefA:       uuid.New(),
		dranefB:       uuid.New(),
		dpanefA:       uuid.New(),
		dpanefB:       uuid.New(),
		communeA:      uuid.New(),
		communeB:      uuid.New(),
		orphanCommune: uuid.New(),
	}
	f.lk = mapLookup{
		communeDpanef: map[uuid.UUID]uuid.UUID{f.communeA: f.dpanefA, f.communeB: f.dpanefB},
		dpanefDranef:  map[uuid.UUID]uuid.UUID{f.dpanefA: f.dranefA, f.dpanefB: f.dranefB},
	}
	return f
}

func names(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.name)
	}
	return out
}

func TestFilterRegional(t *testing.T) {
	f := newFixture()
	items := []item{
		{"direct-match", Anchors{DranefID: ptr(f.dranefA)}},
		{"direct-mismatch-no-fallthrough", Anchors{DranefID: ptr(f.dranefB), CommuneID: ptr(f.communeA)}},
		{"via-dpanef", Anchors{DpanefID: ptr(f.dpanefA)}},
		{"via-dpanef-other", Anchors{DpanefID: ptr(f.dpanefB)}},
		{"via-commune", Anchors{CommuneID: ptr(f.communeA)}},
		{"via-unknown-commune", Anchors{CommuneID: ptr(f.orphanCommune)}},
		{"no-anchor", Anchors{}},
		{"nil-uuid-anchor", Anchors{DranefID: ptr(uuid.Nil)}},
	}
	scope := UserScope{Level: ScopeRegional, UserID: uuid.New(), DranefID: ptr(f.dranefA)}

	got := Filter(items, scope, f.lk)
	assert.Equal(t, []string{"direct-match", "via-dpanef", "via-commune"}, names(got))
}

func TestFilterRegionalEveryKeptItemResolvesToUserDranef(t *testing.T) {
	f := newFixture()
	var items []item
	for _, dr := range []uuid.UUID{f.dranefA, f.dranefB} {
		items = append(items, item{"dr", Anchors{DranefID: ptr(dr)}})
	}
	for _, dp := range []uuid.UUID{f.dpanefA, f.dpanefB} {
		items = append(items, item{"dp", Anchors{DpanefID: ptr(dp)}})
	}
	for _, c := range []uuid.UUID{f.communeA, f.communeB, f.orphanCommune} {
		items = append(items, item{"c", Anchors{CommuneID: ptr(c)}})
	}

	for _, dranef := range []uuid.UUID{f.dranefA, f.dranefB} {
		scope := UserScope{Level: ScopeRegional, DranefID: ptr(dranef)}
		for _, it := range Filter(items, scope, f.lk) {
			resolved := uuid.Nil
			switch {
			case present(it.a.DranefID):
				resolved = *it.a.DranefID
			case present(it.a.DpanefID):
				resolved = f.lk.dpanefDranef[*it.a.DpanefID]
			case present(it.a.CommuneID):
				resolved = f.lk.dpanefDranef[f.lk.communeDpanef[*it.a.CommuneID]]
			}
			assert.Equal(t, dranef, resolved, "item %+v leaked into scope", it)
		}
	}
}

func TestFilterRegionalWithoutAnchorSeesNothing(t *testing.T) {
	f := newFixture()
	items := []item{{"x", Anchors{DranefID: ptr(f.dranefA)}}}
	got := Filter(items, UserScope{Level: ScopeRegional}, f.lk)
	assert.Empty(t, got)
}

func TestFilterProvincial(t *testing.T) {
	f := newFixture()
	items := []item{
		{"direct", Anchors{DpanefID: ptr(f.dpanefA)}},
		{"direct-other", Anchors{DpanefID: ptr(f.dpanefB), CommuneID: ptr(f.communeA)}},
		{"via-commune", Anchors{CommuneID: ptr(f.communeA)}},
		{"other-commune", Anchors{CommuneID: ptr(f.communeB)}},
		{"dranef-only", Anchors{DranefID: ptr(f.dranefA)}},
	}
	scope := UserScope{Level: ScopeProvincial, DpanefID: ptr(f.dpanefA)}
	assert.Equal(t, []string{"direct", "via-commune"}, names(Filter(items, scope, f.lk)))
}

func TestFilterLocal(t *testing.T) {
	f := newFixture()
	me := uuid.New()
	items := []item{
		{"owned-elsewhere", Anchors{CommuneID: ptr(f.communeB), Owners: []uuid.UUID{me}}},
		{"my-commune", Anchors{CommuneID: ptr(f.communeA)}},
		{"my-second-commune", Anchors{CommuneID: ptr(f.communeB), Communes: []uuid.UUID{uuid.Nil, f.communeA}}},
		{"other-commune", Anchors{CommuneID: ptr(f.communeB)}},
		{"someone-else", Anchors{Owners: []uuid.UUID{uuid.New()}}},
		{"dpanef-only", Anchors{DpanefID: ptr(f.dpanefA)}},
		{"nothing", Anchors{}},
	}
	scope := UserScope{Level: ScopeLocal, UserID: me, CommuneIDs: []uuid.UUID{f.communeA}}
	assert.Equal(t, []string{"owned-elsewhere", "my-commune", "my-second-commune"}, names(Filter(items, scope, f.lk)))
}

func TestFilterProvincialIgnoresExtraCommunes(t *testing.T) {
	f := newFixture()
	items := []item{{"x", Anchors{CommuneID: ptr(f.communeB), Communes: []uuid.UUID{f.communeA}}}}
	scope := UserScope{Level: ScopeProvincial, DpanefID: ptr(f.dpanefA)}
	assert.Empty(t, Filter(items, scope, f.lk))
}

func TestFilterUnrestrictedScopesKeepEverything(t *testing.T) {
	f := newFixture()
	items := []item{{"a", Anchors{}}, {"b", Anchors{CommuneID: ptr(f.orphanCommune)}}}
	for _, lvl := range []ScopeLevel{ScopeAdmin, ScopeNational} {
		assert.Len(t, Filter(items, UserScope{Level: lvl}, f.lk), 2, string(lvl))
	}
}

func TestFilterUnknownScopeExcludesEverything(t *testing.T) {
	f := newFixture()
	items := []item{{"a", Anchors{DranefID: ptr(f.dranefA)}}}
	assert.Empty(t, Filter(items, UserScope{Level: "GUEST"}, f.lk))
}

func TestAllowsWithoutLookupOnlyUsesDirectAnchors(t *testing.T) {
	f := newFixture()
	scope := UserScope{Level: ScopeRegional, DranefID: ptr(f.dranefA)}
	assert.True(t, Allows(Anchors{DranefID: ptr(f.dranefA)}, scope, nil))
	assert.False(t, Allows(Anchors{CommuneID: ptr(f.communeA)}, scope, nil))
}
