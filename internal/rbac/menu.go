package rbac

type MenuKey string

const (
	MenuDashboard           MenuKey = "dashboard"
	MenuPlanningIntelligent MenuKey = "planning_intelligent"
	MenuGestionADP          MenuKey = "gestion_adp"
	MenuPDFCP               MenuKey = "pdfcp"
	MenuOrganisations       MenuKey = "organisations"
	MenuActivites           MenuKey = "activites"
	MenuConflits            MenuKey = "conflits"
	MenuRapports            MenuKey = "rapports"
	MenuCahierJournal       MenuKey = "cahier_journal"
	MenuAdminSettings       MenuKey = "admin_settings"
	MenuAdminUnlockRequests MenuKey = "admin_unlock_requests"
	MenuAdminUsers          MenuKey = "admin_users"
	MenuAdminRoles          MenuKey = "admin_roles"
	MenuAdminAccessCodes    MenuKey = "admin_access_codes"
	MenuDebugAccess         MenuKey = "debug_access"
)

var everyone = []ScopeLevel{ScopeAdmin, ScopeNational, ScopeRegional, ScopeProvincial, ScopeLocal}

var menuOrder = []MenuKey{
	MenuDashboard,
	MenuPlanningIntelligent,
	MenuGestionADP,
	MenuPDFCP,
	MenuOrganisations,
	MenuActivites,
	MenuConflits,
	MenuRapports,
	MenuCahierJournal,
	MenuAdminSettings,
	MenuAdminUnlockRequests,
	MenuAdminUsers,
	MenuAdminRoles,
	MenuAdminAccessCodes,
	MenuDebugAccess,
}

var menuAccess = map[MenuKey][]ScopeLevel{
	MenuDashboard:           everyone,
	MenuPlanningIntelligent: everyone,
	MenuGestionADP:          {ScopeAdmin, ScopeNational, ScopeRegional, ScopeProvincial},
	MenuPDFCP:               everyone,
	MenuOrganisations:       everyone,
	MenuActivites:           everyone,
	MenuConflits:            everyone,
	MenuRapports:            everyone,
	MenuCahierJournal:       everyone,
	MenuAdminSettings:       {ScopeAdmin},
	MenuAdminUnlockRequests: {ScopeAdmin},
	MenuAdminUsers:          {ScopeAdmin, ScopeNational},
	MenuAdminRoles:          {ScopeAdmin},
	MenuAdminAccessCodes:    {ScopeAdmin},
	MenuDebugAccess:         {ScopeAdmin},
}

func CanAccess(level ScopeLevel, key MenuKey) bool {
	for _, s := range menuAccess[key] {
		if s == level {
			return true
		}
	}
	return false
}

// MenuFor lists the menu entries visible to a scope in display order.
func MenuFor(level ScopeLevel) []MenuKey {
	out := make([]MenuKey, 0, len(menuOrder))
	for _, k := range menuOrder {
		if CanAccess(level, k) {
			out = append(out, k)
		}
	}
	return out
}
