package rbac

import "github.com/google/uuid"

// Lookup resolves the upward links of the territorial tree.
type Lookup interface {
	DpanefOfCommune(communeID uuid.UUID) (uuid.UUID, bool)
	DranefOfDpanef(dpanefID uuid.UUID) (uuid.UUID, bool)
}

// Anchors are the territorial and ownership fields an entity exposes to the filter.
// A nil or zero id counts as absent.
type Anchors struct {
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	Owners    []uuid.UUID

	// Communes are further communes a LOCAL scope may match on. Upper
	// scopes resolve through CommuneID only.
	Communes []uuid.UUID
}

type Scoped interface {
	ScopeAnchors() Anchors
}

func present(id *uuid.UUID) bool { return id != nil && *id != uuid.Nil }

// Allows reports whether scope may see an entity with the given anchors.
// Non-national scopes fail closed: an entity that cannot be traced to the
// caller's anchor is excluded.
func Allows(a Anchors, scope UserScope, lk Lookup) bool {
	switch scope.Level {
	case ScopeAdmin, ScopeNational:
		return true
	case ScopeRegional:
		if !present(scope.DranefID) {
			return false
		}
		return regionalMatch(a, *scope.DranefID, lk)
	case ScopeProvincial:
		if !present(scope.DpanefID) {
			return false
		}
		return provincialMatch(a, *scope.DpanefID, lk)
	case ScopeLocal:
		return localMatch(a, scope)
	default:
		return false
	}
}

// a direct anchor decides on its own, even when it does not match
func regionalMatch(a Anchors, dranef uuid.UUID, lk Lookup) bool {
	if present(a.DranefID) {
		return *a.DranefID == dranef
	}
	if lk == nil {
		return false
	}
	if present(a.DpanefID) {
		got, ok := lk.DranefOfDpanef(*a.DpanefID)
		return ok && got == dranef
	}
	if present(a.CommuneID) {
		dp, ok := lk.DpanefOfCommune(*a.CommuneID)
		if !ok {
			return false
		}
		got, ok := lk.DranefOfDpanef(dp)
		return ok && got == dranef
	}
	return false
}

func provincialMatch(a Anchors, dpanef uuid.UUID, lk Lookup) bool {
	if present(a.DpanefID) {
		return *a.DpanefID == dpanef
	}
	if lk == nil {
		return false
	}
	if present(a.CommuneID) {
		got, ok := lk.DpanefOfCommune(*a.CommuneID)
		return ok && got == dpanef
	}
	return false
}

func localMatch(a Anchors, scope UserScope) bool {
	if scope.UserID != uuid.Nil {
		for _, o := range a.Owners {
			if o == scope.UserID {
				return true
			}
		}
	}
	if present(a.CommuneID) && scope.HasCommune(*a.CommuneID) {
		return true
	}
	for _, c := range a.Communes {
		if c != uuid.Nil && scope.HasCommune(c) {
			return true
		}
	}
	return false
}

// Filter keeps the items the scope may see, preserving order.
func Filter[T Scoped](items []T, scope UserScope, lk Lookup) []T {
	if scope.Level.Unrestricted() {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Allows(it.ScopeAnchors(), scope, lk) {
			out = append(out, it)
		}
	}
	return out
}

// AllowsItem is the single-entity form of Filter.
func AllowsItem(item Scoped, scope UserScope, lk Lookup) bool {
	if item == nil {
		return false
	}
	return Allows(item.ScopeAnchors(), scope, lk)
}
