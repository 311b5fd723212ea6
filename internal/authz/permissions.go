package authz

import (
	"github.com/calebmartin/daybook/internal/models"
)

// Permission identifies a single action a role may perform.
type Permission string

const (
	PermReadOwnEntries  Permission = "entries:read:own"
	PermWriteOwnEntries Permission = "entries:write:own"
	PermReadAllEntries  Permission = "entries:read:all"
	PermWriteAllEntries Permission = "entries:write:all"
	PermAssignRoles     Permission = "users:assign_role"
	PermManageSettings  Permission = "system:settings"
	PermReadAuditLog    Permission = "audit:read"
	PermPendingStatus   Permission = "account:pending_status"
)

// rolePermissions is the static permission matrix: a total function
// from role to granted permissions, compiled in. Adding a role means
// adding a row here; the closed Role type forces every call site to be
// reconsidered.
var rolePermissions = map[models.Role]map[Permission]struct{}{
	models.RolePending: {
		PermPendingStatus: {},
	},
	models.RoleUser: {
		PermReadOwnEntries:  {},
		PermWriteOwnEntries: {},
		PermPendingStatus:   {},
	},
	models.RoleAdmin: {
		PermReadOwnEntries:  {},
		PermWriteOwnEntries: {},
		PermReadAllEntries:  {},
		PermWriteAllEntries: {},
		PermAssignRoles:     {},
		PermManageSettings:  {},
		PermReadAuditLog:    {},
		PermPendingStatus:   {},
	},
}

// ownScoped reports whether a permission is scoped to the requester's
// own data.
func ownScoped(perm Permission) bool {
	switch perm {
	case PermReadOwnEntries, PermWriteOwnEntries:
		return true
	}
	return false
}

// HasPermission checks the permission matrix. Own-scoped permissions
// are granted automatically when the requester acts on its own
// resource, for every role above PENDING, so promoted accounts can
// always read and write their own data.
func HasPermission(role models.Role, perm Permission, ownResource bool) bool {
	if ownResource && ownScoped(perm) && role.AtLeast(models.RoleUser) {
		return true
	}

	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, granted := perms[perm]
	return granted
}

// IsAdmin reports whether the role carries administrative privileges.
func IsAdmin(role models.Role) bool {
	return role == models.RoleAdmin
}

// CanAssignRole reports whether an actor may assign the target role.
// Only admins assign roles at all, and assignment is monotonic: an
// actor can never grant a privilege tier it does not already hold.
func CanAssignRole(actorRole, targetRole models.Role) bool {
	if !IsAdmin(actorRole) {
		return false
	}
	if !targetRole.Valid() {
		return false
	}
	return actorRole.AtLeast(targetRole)
}
