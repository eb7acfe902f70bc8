package api

import (
	"fmt"
	"strings"
)

// Role selects the endpoint group a request is made against.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
	RoleTenant  Role = "tenant"
	RoleManager Role = "property-manager"
	RoleVendor  Role = "vendor"
)

var roleAliases = map[string]Role{
	"admin":            RoleAdmin,
	"administrator":    RoleAdmin,
	"owner":            RoleOwner,
	"tenant":           RoleTenant,
	"property-manager": RoleManager,
	"property_manager": RoleManager,
	"manager":          RoleManager,
	"pm":               RoleManager,
	"vendor":           RoleVendor,
}

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleOwner, RoleTenant, RoleManager, RoleVendor}
}

// ParseRole maps user or server spellings onto a Role.
func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q (want one of admin, owner, tenant, property-manager, vendor)", s)
}

// Path joins parts under the role's endpoint prefix: RoleOwner.Path("tasks", "7")
// is "/owner/tasks/7".
func (r Role) Path(parts ...string) string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(string(r))
	for _, p := range parts {
		b.WriteString("/")
		b.WriteString(strings.Trim(p, "/"))
	}
	return b.String()
}
