package rbac

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
)

var (
	// ErrRoleNotFound indicates that an assigned role no longer exists.
	ErrRoleNotFound = errors.New("rbac: role not found")
	// ErrMalformedModuleLevels indicates stored role data that cannot be decoded.
	ErrMalformedModuleLevels = errors.New("rbac: malformed module levels")
	// ErrMalformedRole indicates a stored role record missing required fields.
	ErrMalformedRole = errors.New("rbac: malformed role")
)

// Role is a named grouping of module levels.
//
// ModuleLevels is nil when the role carries no level configuration. Stores may
// hand it over as a native map or as serialized JSON; see decodeModuleLevels.
type Role struct {
	ID           string
	Name         string
	ModuleLevels any
}

// RoleAssignment links a user to a role.
type RoleAssignment struct {
	UserID string
	RoleID string
}

// LegacyGrant is a pre-level module/action grant held by a role.
type LegacyGrant struct {
	Module string
	Action string
}

// Store is the read side of the role storage consumed by Service.
type Store interface {
	GetRoleAssignmentsForUser(ctx context.Context, userID string) ([]RoleAssignment, error)
	// GetRole returns ErrRoleNotFound when the role does not exist.
	GetRole(ctx context.Context, roleID string) (Role, error)
	GetLegacyGrantsForRole(ctx context.Context, roleID string) ([]LegacyGrant, error)
}

// Profile is the resolved permission state of a user. It is recomputed on every
// request and never stored.
type Profile struct {
	UserID            string                  `json:"user_id"`
	ModuleLevels      map[string]access.Level `json:"module_levels"`
	EffectiveLevel    access.Level            `json:"effective_level"`
	IsSuperAdmin      bool                    `json:"is_super_admin"`
	LegacyPermissions map[string][]string     `json:"legacy_permissions,omitempty"`
}

// Level returns the resolved level for module, None when absent.
func (p Profile) Level(module string) access.Level {
	return p.ModuleLevels[module]
}

// PermissionsContext is the action-list view kept for callers that predate levels.
// New checks should use Service.CheckPermissionLevel instead.
type PermissionsContext struct {
	Permissions   []access.ModulePermission `json:"permissions"`
	PermissionMap access.PermissionMap      `json:"permission_map"`
	IsSuperAdmin  bool                      `json:"is_super_admin"`
}

// SettingsAccess describes what a user can see and do in the settings area.
type SettingsAccess struct {
	Level   access.Level `json:"level"`
	Actions []string     `json:"actions"`
	Groups  []string     `json:"groups"`
}

func emptyProfile(userID string) Profile {
	return Profile{
		UserID:         userID,
		ModuleLevels:   map[string]access.Level{},
		EffectiveLevel: access.None,
	}
}
