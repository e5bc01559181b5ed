// Package workflow is the PDFCP validation state machine.
package workflow

import (
	"errors"
	"strings"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

type Status = pdfcp.ValidationStatus

var (
	ErrInvalidTransition   = errors.New("transition not allowed from current status")
	ErrForbiddenTransition = errors.New("role not allowed to perform this transition")
	ErrUnknownStatus       = errors.New("unknown validation status")
)

// Statuses in workflow order.
var Statuses = []Status{
	pdfcp.StatusBrouillon,
	pdfcp.StatusConcerteADP,
	pdfcp.StatusValideDPANEF,
	pdfcp.StatusValideCentral,
	pdfcp.StatusVerrouille,
}

var transitions = map[Status][]Status{
	pdfcp.StatusBrouillon:     {pdfcp.StatusConcerteADP},
	pdfcp.StatusConcerteADP:   {pdfcp.StatusValideDPANEF, pdfcp.StatusBrouillon},
	pdfcp.StatusValideDPANEF:  {pdfcp.StatusValideCentral, pdfcp.StatusBrouillon},
	pdfcp.StatusValideCentral: {pdfcp.StatusVerrouille, pdfcp.StatusBrouillon},
	pdfcp.StatusVerrouille:    {pdfcp.StatusValideCentral},
}

var rolesForTarget = map[Status][]rbac.ScopeLevel{
	pdfcp.StatusBrouillon:     {rbac.ScopeAdmin},
	pdfcp.StatusConcerteADP:   {rbac.ScopeLocal, rbac.ScopeAdmin},
	pdfcp.StatusValideDPANEF:  {rbac.ScopeProvincial, rbac.ScopeAdmin},
	pdfcp.StatusValideCentral: {rbac.ScopeRegional, rbac.ScopeNational, rbac.ScopeAdmin},
	pdfcp.StatusVerrouille:    {rbac.ScopeAdmin},
}

var labels = map[Status]string{
	pdfcp.StatusBrouillon:     "Brouillon",
	pdfcp.StatusConcerteADP:   "Concerté ADP",
	pdfcp.StatusValideDPANEF:  "Validé DPANEF",
	pdfcp.StatusValideCentral: "Validé DRANEF / Central",
	pdfcp.StatusVerrouille:    "Verrouillé",
}

func Label(s Status) string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := transitions[s]; !ok {
		return "", ErrUnknownStatus
	}
	return s, nil
}

// Normalize maps an empty status to BROUILLON.
func Normalize(s Status) Status {
	if s == "" {
		return pdfcp.StatusBrouillon
	}
	return s
}

func IsValidTransition(from, to Status) bool {
	for _, t := range transitions[Normalize(from)] {
		if t == to {
			return true
		}
	}
	return false
}

func RoleAllowed(to Status, level rbac.ScopeLevel) bool {
	for _, l := range rolesForTarget[to] {
		if l == level {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition when the edge does not exist and
// ErrForbiddenTransition when the caller's scope may not take it. Leaving
// VERROUILLE is reserved to ADMIN whatever the target.
func CheckTransition(from, to Status, level rbac.ScopeLevel) error {
	from = Normalize(from)
	if !IsValidTransition(from, to) {
		return ErrInvalidTransition
	}
	if !RoleAllowed(to, level) {
		return ErrForbiddenTransition
	}
	if from == pdfcp.StatusVerrouille && level != rbac.ScopeAdmin {
		return ErrForbiddenTransition
	}
	return nil
}

// NextActions lists the forward moves available to a scope. Returns to
// BROUILLON are exposed through CanCancel.
func NextActions(from Status, level rbac.ScopeLevel) []Status {
	var out []Status
	for _, t := range transitions[Normalize(from)] {
		if t == pdfcp.StatusBrouillon {
			continue
		}
		if CheckTransition(from, t, level) == nil {
			out = append(out, t)
		}
	}
	return out
}

func CanCancel(current Status, level rbac.ScopeLevel) bool {
	current = Normalize(current)
	if current == pdfcp.StatusBrouillon || current == pdfcp.StatusVerrouille {
		return false
	}
	switch level {
	case rbac.ScopeAdmin:
		return true
	case rbac.ScopeLocal:
		return current == pdfcp.StatusConcerteADP
	case rbac.ScopeProvincial, rbac.ScopeRegional:
		return current == pdfcp.StatusValideDPANEF || current == pdfcp.StatusValideCentral
	}
	return false
}

func CanUnlock(current Status, level rbac.ScopeLevel) bool {
	return current == pdfcp.StatusVerrouille && level == rbac.ScopeAdmin
}

// IsLockedForScope is true only for VERROUILLE, and never for ADMIN.
func IsLockedForScope(status Status, level rbac.ScopeLevel) bool {
	if level == rbac.ScopeAdmin {
		return false
	}
	return status == pdfcp.StatusVerrouille
}

func HistoryAction(to Status) string { return "status_change_" + strings.ToLower(string(to)) }

func CancellationAction(from Status) string {
	return "cancellation_" + strings.ToLower(string(Normalize(from)))
}

const (
	HistoryCreated  = "created"
	HistoryUnlocked = "unlocked"
	HistoryNote     = "note"
)

func CancellationNote(reason string) string {
	return "Annulation motivée: " + strings.TrimSpace(reason)
}
