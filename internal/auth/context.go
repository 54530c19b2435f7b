package auth

import (
	"context"
	"sort"

	"github.com/planiapp/tareas-api/internal/domain"
)

// Permission is a capability checked before an operation runs
type Permission string

const (
	PermissionStaffRead          Permission = "staff:read"
	PermissionStaffCreate        Permission = "staff:create"
	PermissionStaffEdit          Permission = "staff:edit"
	PermissionStaffDelete        Permission = "staff:delete"
	PermissionDepartmentsWrite   Permission = "departments:write"
	PermissionTasksRead          Permission = "tasks:read"
	PermissionTasksWrite         Permission = "tasks:write"
	PermissionTasksManage        Permission = "tasks:manage"
	PermissionGeographyWrite     Permission = "geography:write"
	PermissionOrganizationManage Permission = "organization:manage"
	PermissionAuditRead          Permission = "audit:read"
	PermissionReportsExport      Permission = "reports:export"
)

var allPermissions = []Permission{
	PermissionStaffRead, PermissionStaffCreate, PermissionStaffEdit, PermissionStaffDelete,
	PermissionDepartmentsWrite,
	PermissionTasksRead, PermissionTasksWrite, PermissionTasksManage,
	PermissionGeographyWrite,
	PermissionOrganizationManage,
	PermissionAuditRead,
	PermissionReportsExport,
}

var rolePermissions = map[domain.UserRoleType][]Permission{
	domain.RoleAdmin: allPermissions,
	domain.RoleCoordinator: {
		PermissionStaffRead,
		PermissionDepartmentsWrite,
		PermissionTasksRead, PermissionTasksWrite, PermissionTasksManage,
		PermissionAuditRead,
		PermissionReportsExport,
	},
	domain.RoleStaff: {
		PermissionStaffRead,
		PermissionTasksRead, PermissionTasksWrite,
		PermissionAuditRead,
	},
}

// UserContext is the authenticated actor of a request
type UserContext struct {
	AccountID uint
	StaffID   *uint
	Username  string
	Email     string
	Role      domain.UserRoleType
}

type contextKey string

const userContextKey contextKey = "userContext"

type actorSlotKey struct{}

type actorSlot struct {
	user *UserContext
}

// TrackActor returns a context that records the actor attached further down
// the handler chain, and a func reading it back once the chain returns
func TrackActor(ctx context.Context) (context.Context, func() (*UserContext, bool)) {
	slot := &actorSlot{}
	return context.WithValue(ctx, actorSlotKey{}, slot), func() (*UserContext, bool) {
		return slot.user, slot.user != nil
	}
}

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	if slot, ok := ctx.Value(actorSlotKey{}).(*actorSlot); ok {
		slot.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// IsSuperuser reports whether the actor bypasses permission checks
func (u *UserContext) IsSuperuser() bool {
	return u.Role == domain.RoleSuperuser
}

// HasPermission checks the actor's role against the permission table
func (u *UserContext) HasPermission(p Permission) bool {
	if u.IsSuperuser() {
		return true
	}
	for _, granted := range rolePermissions[u.Role] {
		if granted == p {
			return true
		}
	}
	return false
}

// Permissions lists the actor's permissions, sorted
func (u *UserContext) Permissions() []string {
	var perms []Permission
	if u.IsSuperuser() {
		perms = allPermissions
	} else {
		perms = rolePermissions[u.Role]
	}
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	sort.Strings(out)
	return out
}
