package shared

import "strings"

// Staff groups.
const (
	GroupAdmin      = "Admin"
	GroupFinance    = "Financeiro"
	GroupAttendance = "Atendimento"
	GroupProduction = "Producao"
)

// Capabilities checked by route guards.
const (
	CapFinance = "finance"
	CapReports = "reports"
	CapOrders  = "orders"
	CapClients = "clients"
	CapKanban  = "kanban"
	CapStock   = "stock"
	CapAdmin   = "admin"
)

var groupCapabilities = map[string][]string{
	GroupAdmin:      AllCapabilities(),
	GroupFinance:    {CapFinance, CapReports, CapOrders},
	GroupAttendance: {CapOrders, CapClients, CapKanban},
	GroupProduction: {CapKanban, CapStock},
}

// AllCapabilities lists every capability.
func AllCapabilities() []string {
	return []string{CapFinance, CapReports, CapOrders, CapClients, CapKanban, CapStock, CapAdmin}
}

// Groups lists the known staff groups in display order.
func Groups() []string {
	return []string{GroupAdmin, GroupFinance, GroupAttendance, GroupProduction}
}

// CapabilitiesFor resolves the capability set of a user. Superusers get all.
func CapabilitiesFor(groups []string, superuser bool) []string {
	if superuser {
		return AllCapabilities()
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(AllCapabilities()))
	for _, g := range groups {
		for name, caps := range groupCapabilities {
			if !strings.EqualFold(name, strings.TrimSpace(g)) {
				continue
			}
			for _, c := range caps {
				if _, ok := seen[c]; ok {
					continue
				}
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	return out
}
