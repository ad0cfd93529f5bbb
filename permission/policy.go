package permission

import "strings"

// Admin levels recorded on the cached user record.
const (
	LevelSuperAdmin = "super_admin"
	LevelAdmin      = "admin"
)

// Membership tiers of the customer product.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

// FullAdminPermissions is granted to super admins.
var FullAdminPermissions = []string{
	"users.view",
	"users.manage",
	"admins.view",
	"admins.manage",
	"companies.view",
	"companies.manage",
	"subscriptions.view",
	"subscriptions.manage",
	"orders.view",
	"orders.manage",
	"system.settings",
	"logs.view",
}

// ReducedAdminPermissions is granted to every other admin. It is a strict
// subset of FullAdminPermissions.
var ReducedAdminPermissions = []string{
	"users.view",
	"users.manage",
	"companies.view",
	"subscriptions.view",
	"orders.view",
}

// MemberTierPermissions maps membership tiers to their permissions. Each tier
// includes everything the tier below it has.
var MemberTierPermissions = map[string][]string{
	TierFree: {
		"wps.view",
		"pqr.view",
	},
	TierPro: {
		"wps.view",
		"pqr.view",
		"wps.create",
		"wps.edit",
		"pqr.create",
		"pqr.edit",
		"documents.export",
	},
	TierEnterprise: {
		"wps.view",
		"pqr.view",
		"wps.create",
		"wps.edit",
		"pqr.create",
		"pqr.edit",
		"documents.export",
		"team.manage",
		"welders.manage",
	},
}

// Table is the frozen policy lookup built from the permission lists above.
type Table struct {
	registry *Registry
	roles    *RoleManager
}

var defaultTable = mustBuildTable()

// Default returns the process-wide policy table.
func Default() *Table {
	return defaultTable
}

func mustBuildTable() *Table {
	t, err := buildTable()
	if err != nil {
		panic("permission: " + err.Error())
	}
	return t
}

func buildTable() (*Table, error) {
	reg := NewRegistry()
	lists := [][]string{FullAdminPermissions, ReducedAdminPermissions}
	for _, tier := range []string{TierFree, TierPro, TierEnterprise} {
		lists = append(lists, MemberTierPermissions[tier])
	}
	for _, list := range lists {
		for _, name := range list {
			if _, err := reg.Register(name); err != nil {
				return nil, err
			}
		}
	}
	reg.Freeze()

	roles := NewRoleManager(reg)
	if err := roles.RegisterRole(LevelSuperAdmin, FullAdminPermissions); err != nil {
		return nil, err
	}
	if err := roles.RegisterRole(LevelAdmin, ReducedAdminPermissions); err != nil {
		return nil, err
	}
	for tier, perms := range MemberTierPermissions {
		if err := roles.RegisterRole(tierRole(tier), perms); err != nil {
			return nil, err
		}
	}
	roles.Freeze()

	return &Table{registry: reg, roles: roles}, nil
}

func tierRole(tier string) string {
	return "tier:" + tier
}

// ForAdmin returns the admin level and permission set for the super-admin flag.
func (t *Table) ForAdmin(isSuperAdmin bool) (string, Set) {
	level := LevelAdmin
	if isSuperAdmin {
		level = LevelSuperAdmin
	}
	set, _ := t.roles.Resolve(level)
	return level, set
}

// ForTier returns the normalized tier and its permission set. Unknown or empty
// tiers fall back to TierFree.
func (t *Table) ForTier(tier string) (string, Set) {
	tier = strings.ToLower(strings.TrimSpace(tier))
	set, ok := t.roles.Resolve(tierRole(tier))
	if !ok {
		tier = TierFree
		set, _ = t.roles.Resolve(tierRole(tier))
	}
	return tier, set
}

// FromNames rebuilds a set from a persisted permission list.
func (t *Table) FromNames(names []string) Set {
	return t.registry.SetOf(names)
}

// Registry exposes the frozen registry backing the table.
func (t *Table) Registry() *Registry {
	return t.registry
}
