package stats

import (
	"strings"

	"github.com/google/uuid"

	"github.com/anef-maroc/pdfcp-backend/internal/domain/field"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/pdfcp"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/territory"
	"github.com/anef-maroc/pdfcp-backend/internal/domain/user"
	"github.com/anef-maroc/pdfcp-backend/internal/rbac"
)

// Territory expands a DRANEF or DPANEF into its communes.
type Territory interface {
	CommunesOfDranef(dranefID uuid.UUID) []uuid.UUID
	CommunesOfDpanef(dpanefID uuid.UUID) []uuid.UUID
}

type Filters struct {
	DranefID  *uuid.UUID
	DpanefID  *uuid.UUID
	CommuneID *uuid.UUID
	Year      *int
}

// Inputs are the scope-filtered lists the dashboard is computed from.
type Inputs struct {
	Agents        []user.AdpAgent
	Programs      []pdfcp.Program
	Activities    []field.Activity
	Organizations []field.Organization
	Conflicts     []field.Conflict
	Dranefs       []territory.Dranef
}

type OrganisationCounts struct {
	ODF          int `json:"odf"`
	Cooperatives int `json:"cooperatives"`
	Associations int `json:"associations"`
	AGS          int `json:"ags"`
	Total        int `json:"total"`
}

type DashboardStats struct {
	TotalAdp     int `json:"totalAdp"`
	ActiveAdp    int `json:"activeAdp"`
	TotalPdfcp   int `json:"totalPdfcp"`
	PdfcpValides int `json:"pdfcpValides"`
	PdfcpEnCours int `json:"pdfcpEnCours"`

	Organisations OrganisationCounts `json:"organisations"`

	TotalOppositions         int     `json:"totalOppositions"`
	OppositionsEnCours       int     `json:"oppositionsEnCours"`
	OppositionsResolues      int     `json:"oppositionsResolues"`
	SuperficieOpposeeHa      float64 `json:"superficieOpposeeHa"`
	SuperficieOpposeeLeveeHa float64 `json:"superficieOpposeeLeveeHa"`
	TotalConflicts           int     `json:"totalConflicts"`
	ConflictsEnCours         int     `json:"conflictsEnCours"`
	ConflictsResolus         int     `json:"conflictsResolus"`

	TotalActivities int `json:"totalActivities"`
}

type DranefStats struct {
	DranefID      uuid.UUID `json:"regionId"`
	Name          string    `json:"region"`
	Adp           int       `json:"adp"`
	Pdfcp         int       `json:"pdfcp"`
	Organisations int       `json:"organisations"`
	Activites     int       `json:"activites"`
	Oppositions   int       `json:"oppositions"`
	Conflits      int       `json:"conflits"`
}

type Dashboard struct {
	Stats   DashboardStats `json:"stats"`
	Regions []DranefStats  `json:"regionStats"`
}

// zone is a geographic filter expanded to a commune set. A nil zone matches everything.
type zone struct {
	dranefID  *uuid.UUID
	dpanefID  *uuid.UUID
	communeID *uuid.UUID
	communes  map[uuid.UUID]bool
}

func newZone(f Filters, t Territory) *zone {
	z := &zone{dranefID: f.DranefID, dpanefID: f.DpanefID, communeID: f.CommuneID}
	switch {
	case f.CommuneID != nil:
	case f.DpanefID != nil:
		z.communes = set(t.CommunesOfDpanef(*f.DpanefID))
	case f.DranefID != nil:
		z.communes = set(t.CommunesOfDranef(*f.DranefID))
	default:
		return nil
	}
	return z
}

func dranefZone(id uuid.UUID, t Territory) *zone {
	return &zone{dranefID: &id, communes: set(t.CommunesOfDranef(id))}
}

func set(ids []uuid.UUID) map[uuid.UUID]bool {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

func eq(a, b *uuid.UUID) bool { return a != nil && b != nil && *a == *b }

func (z *zone) match(a rbac.Anchors) bool {
	if z == nil {
		return true
	}
	if z.communeID != nil {
		return eq(a.CommuneID, z.communeID)
	}
	if a.CommuneID != nil && *a.CommuneID != uuid.Nil {
		return z.communes[*a.CommuneID]
	}
	if z.dpanefID != nil {
		return eq(a.DpanefID, z.dpanefID)
	}
	return eq(a.DranefID, z.dranefID)
}

// agents are matched on their own dranef/dpanef fields and on any assigned commune
func (z *zone) matchAgent(a user.AdpAgent) bool {
	if z == nil {
		return true
	}
	if z.communeID != nil {
		for _, c := range a.CommuneIDs {
			if c == *z.communeID {
				return true
			}
		}
		return false
	}
	if z.dpanefID != nil {
		return eq(a.DpanefID, z.dpanefID)
	}
	return eq(a.DranefID, z.dranefID)
}

type filtered struct {
	agents        []user.AdpAgent
	programs      []pdfcp.Program
	activities    []field.Activity
	organizations []field.Organization
	conflicts     []field.Conflict
}

func apply(in Inputs, z *zone, year *int) filtered {
	var out filtered
	for _, a := range in.Agents {
		if z.matchAgent(a) {
			out.agents = append(out.agents, a)
		}
	}
	for _, p := range in.Programs {
		if z.match(p.ScopeAnchors()) && (year == nil || p.CoversYear(*year)) {
			out.programs = append(out.programs, p)
		}
	}
	for _, a := range in.Activities {
		if z.match(a.ScopeAnchors()) && (year == nil || a.ActivityDate.Year() == *year) {
			out.activities = append(out.activities, a)
		}
	}
	for _, o := range in.Organizations {
		if z.match(o.ScopeAnchors()) {
			out.organizations = append(out.organizations, o)
		}
	}
	for _, c := range in.Conflicts {
		if z.match(c.ScopeAnchors()) && (year == nil || c.DateReported.Year() == *year) {
			out.conflicts = append(out.conflicts, c)
		}
	}
	return out
}

func isValidated(s pdfcp.ValidationStatus) bool {
	return s == pdfcp.StatusValideCentral || s == pdfcp.StatusVerrouille
}

func CountOrganisations(orgs []field.Organization) OrganisationCounts {
	out := OrganisationCounts{Total: len(orgs)}
	for _, o := range orgs {
		switch strings.ToLower(o.OrganizationType) {
		case "odf":
			out.ODF++
		case "cooperative":
			out.Cooperatives++
		case "association":
			out.Associations++
		case "ags":
			out.AGS++
		}
	}
	return out
}

// Compute builds the dashboard from lists the caller has already scope-filtered.
func Compute(in Inputs, f Filters, t Territory) Dashboard {
	data := apply(in, newZone(f, t), f.Year)

	var s DashboardStats
	s.TotalAdp = len(data.agents)
	for _, a := range data.agents {
		if a.IsActive() {
			s.ActiveAdp++
		}
	}
	s.TotalPdfcp = len(data.programs)
	for _, p := range data.programs {
		if isValidated(p.ValidationStatus) {
			s.PdfcpValides++
		} else {
			s.PdfcpEnCours++
		}
	}
	s.Organisations = CountOrganisations(data.organizations)

	m := Metrics(data.conflicts)
	s.TotalOppositions = m.TotalOppositions
	s.OppositionsEnCours = m.OppositionsEnCours
	s.OppositionsResolues = m.OppositionsLevees
	s.SuperficieOpposeeHa = m.SuperficieOpposition
	s.SuperficieOpposeeLeveeHa = m.SuperficieLevee
	s.TotalConflicts = m.TotalConflits
	s.ConflictsEnCours = m.TotalConflits - m.OppositionsLevees
	s.ConflictsResolus = m.OppositionsLevees
	s.TotalActivities = len(data.activities)

	return Dashboard{Stats: s, Regions: byDranef(in, t)}
}

// per-DRANEF rows ignore the request filters but keep the scope
func byDranef(in Inputs, t Territory) []DranefStats {
	rows := make([]DranefStats, 0, len(in.Dranefs))
	for _, d := range in.Dranefs {
		data := apply(in, dranefZone(d.ID, t), nil)
		row := DranefStats{
			DranefID:      d.ID,
			Name:          strings.TrimSpace(strings.TrimPrefix(d.Name, "DRANEF ")),
			Adp:           len(data.agents),
			Pdfcp:         len(data.programs),
			Organisations: len(data.organizations),
			Activites:     len(data.activities),
		}
		for _, c := range data.conflicts {
			if IsOpposition(c) {
				row.Oppositions++
			} else {
				row.Conflits++
			}
		}
		rows = append(rows, row)
	}
	return rows
}
