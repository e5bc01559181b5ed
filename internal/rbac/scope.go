package rbac

import (
	"strings"

	"github.com/google/uuid"
)

type ScopeLevel string

const (
	ScopeAdmin      ScopeLevel = "ADMIN"
	ScopeNational   ScopeLevel = "NATIONAL"
	ScopeRegional   ScopeLevel = "REGIONAL"
	ScopeProvincial ScopeLevel = "PROVINCIAL"
	ScopeLocal      ScopeLevel = "LOCAL"
)

var scopePriority = map[ScopeLevel]int{
	ScopeAdmin:      5,
	ScopeNational:   4,
	ScopeRegional:   3,
	ScopeProvincial: 2,
	ScopeLocal:      1,
}

var scopeLabels = map[ScopeLevel]string{
	ScopeAdmin:      "Administrateur",
	ScopeNational:   "National",
	ScopeRegional:   "Régional",
	ScopeProvincial: "Provincial",
	ScopeLocal:      "Local (ADP)",
}

// roleToScope maps role codes and hierarchical role labels to a scope level.
var roleToScope = map[string]ScopeLevel{
	"admin": ScopeAdmin,

	"DG":                       ScopeNational,
	"Secrétaire général":       ScopeNational,
	"Directeur central":        ScopeNational,
	"Chef département central": ScopeNational,
	"Chef service central":     ScopeNational,

	"DRANEF":                    ScopeRegional,
	"Chef service régional SAP": ScopeRegional,

	"DPANEF": ScopeProvincial,

	"ADP": ScopeLocal,
	"adp": ScopeLocal,
}

func (s ScopeLevel) Valid() bool {
	_, ok := scopePriority[s]
	return ok
}

// Priority orders scopes from LOCAL (1) to ADMIN (5); unknown scopes are 0.
func (s ScopeLevel) Priority() int { return scopePriority[s] }

// Unrestricted reports whether the scope sees every territory.
func (s ScopeLevel) Unrestricted() bool { return s == ScopeAdmin || s == ScopeNational }

func (s ScopeLevel) Label() string {
	if l, ok := scopeLabels[s]; ok {
		return l
	}
	return string(s)
}

func ParseScopeLevel(raw string) (ScopeLevel, bool) {
	s := ScopeLevel(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// RoleToScope resolves a single role or role label. ok is false when nothing matched.
func RoleToScope(role string) (ScopeLevel, bool) {
	if s, ok := roleToScope[role]; ok {
		return s, true
	}
	needle := strings.TrimSpace(role)
	if needle == "" {
		return "", false
	}
	for k, s := range roleToScope {
		if strings.EqualFold(k, needle) {
			return s, true
		}
	}
	return "", false
}

// DeriveScopeLevel prefers the role label over the role and defaults to LOCAL.
func DeriveScopeLevel(role, roleLabel string) ScopeLevel {
	if s, ok := RoleToScope(roleLabel); ok {
		return s
	}
	if s, ok := RoleToScope(role); ok {
		return s
	}
	return ScopeLocal
}

// HighestScope picks the strongest scope across all roles held by a user.
func HighestScope(roles ...string) ScopeLevel {
	best := ScopeLocal
	for _, r := range roles {
		s, ok := RoleToScope(r)
		if !ok {
			if parsed, valid := ParseScopeLevel(r); valid {
				s, ok = parsed, true
			}
		}
		if ok && s.Priority() > best.Priority() {
			best = s
		}
	}
	return best
}

// UserScope is the caller's level plus its territorial anchors.
type UserScope struct {
	Level      ScopeLevel  `json:"scope_level"`
	UserID     uuid.UUID   `json:"user_id"`
	DranefID   *uuid.UUID  `json:"dranef_id,omitempty"`
	DpanefID   *uuid.UUID  `json:"dpanef_id,omitempty"`
	CommuneIDs []uuid.UUID `json:"commune_ids"`
}

func (u UserScope) IsAdmin() bool { return u.Level == ScopeAdmin }

func (u UserScope) HasCommune(id uuid.UUID) bool {
	for _, c := range u.CommuneIDs {
		if c == id {
			return true
		}
	}
	return false
}
