// Package redisstore keeps roles, assignments and legacy grants in Redis.
//
// Layout, with the default "authz" prefix:
//
//	authz:user:{id}:roles          set of role ids
//	authz:role:{id}                hash {id, name, module_levels}
//	authz:role:{id}:permissions    set of legacy permission ids
//	authz:permission:{id}          hash {id, module, action}
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "authz"

const (
	fieldID           = "id"
	fieldName         = "name"
	fieldModuleLevels = "module_levels"
	fieldModule       = "module"
	fieldAction       = "action"
)

type roleRecord struct {
	ID   string `validate:"required"`
	Name string `validate:"required"`
}

type permissionRecord struct {
	ID     string `validate:"required"`
	Module string `validate:"required"`
	Action string `validate:"required"`
}

// Store implements rbac.Store on top of Redis.
type Store struct {
	client   redis.Cmdable
	prefix   string
	validate *validator.Validate
}

var _ rbac.Store = (*Store)(nil)

// New constructs a Store. An empty prefix selects DefaultPrefix.
func New(client redis.Cmdable, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix, validate: validator.New()}
}

func (s *Store) userRolesKey(userID string) string {
	return fmt.Sprintf("%s:user:%s:roles", s.prefix, userID)
}

func (s *Store) roleKey(roleID string) string {
	return fmt.Sprintf("%s:role:%s", s.prefix, roleID)
}

func (s *Store) rolePermissionsKey(roleID string) string {
	return fmt.Sprintf("%s:role:%s:permissions", s.prefix, roleID)
}

func (s *Store) permissionKey(permissionID string) string {
	return fmt.Sprintf("%s:permission:%s", s.prefix, permissionID)
}

// GetRoleAssignmentsForUser returns the user's role assignments ordered by role id.
func (s *Store) GetRoleAssignmentsForUser(ctx context.Context, userID string) ([]rbac.RoleAssignment, error) {
	roleIDs, err := s.client.SMembers(ctx, s.userRolesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: user roles: %w", err)
	}
	sort.Strings(roleIDs)
	assignments := make([]rbac.RoleAssignment, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		assignments = append(assignments, rbac.RoleAssignment{UserID: userID, RoleID: roleID})
	}
	return assignments, nil
}

// GetRole fetches a role hash. module_levels is passed through as the stored
// string for the resolver to decode.
func (s *Store) GetRole(ctx context.Context, roleID string) (rbac.Role, error) {
	fields, err := s.client.HGetAll(ctx, s.roleKey(roleID)).Result()
	if err != nil {
		return rbac.Role{}, fmt.Errorf("redisstore: get role: %w", err)
	}
	if len(fields) == 0 {
		return rbac.Role{}, rbac.ErrRoleNotFound
	}
	rec := roleRecord{ID: fields[fieldID], Name: fields[fieldName]}
	if err := s.validate.Struct(rec); err != nil {
		return rbac.Role{}, fmt.Errorf("%w: %s: %w", rbac.ErrMalformedRole, roleID, err)
	}
	role := rbac.Role{ID: rec.ID, Name: rec.Name}
	if raw, ok := fields[fieldModuleLevels]; ok {
		role.ModuleLevels = raw
	}
	return role, nil
}

// GetLegacyGrantsForRole joins the role's permission ids to their module/action
// pairs. Permission ids without a record are ignored.
func (s *Store) GetLegacyGrantsForRole(ctx context.Context, roleID string) ([]rbac.LegacyGrant, error) {
	permIDs, err := s.client.SMembers(ctx, s.rolePermissionsKey(roleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: role permissions: %w", err)
	}
	if len(permIDs) == 0 {
		return nil, nil
	}
	sort.Strings(permIDs)

	cmds := make([]*redis.MapStringStringCmd, len(permIDs))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range permIDs {
			cmds[i] = pipe.HGetAll(ctx, s.permissionKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: load permissions: %w", err)
	}

	grants := make([]rbac.LegacyGrant, 0, len(cmds))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			return nil, fmt.Errorf("redisstore: permission %s: %w", permIDs[i], err)
		}
		if len(fields) == 0 {
			continue
		}
		rec := permissionRecord{ID: permIDs[i], Module: fields[fieldModule], Action: fields[fieldAction]}
		if err := s.validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("redisstore: permission %s: %w", permIDs[i], err)
		}
		grants = append(grants, rbac.LegacyGrant{Module: rec.Module, Action: rec.Action})
	}
	return grants, nil
}

// SaveRole writes a role. Module levels are stored as a JSON object string.
// Serialized values (string, []byte, json.RawMessage) are stored unchanged and a
// nil value removes the field.
func (s *Store) SaveRole(ctx context.Context, role rbac.Role) error {
	if err := s.validate.Struct(roleRecord{ID: role.ID, Name: role.Name}); err != nil {
		return fmt.Errorf("%w: %w", rbac.ErrMalformedRole, err)
	}
	key := s.roleKey(role.ID)
	var encoded string
	switch v := role.ModuleLevels.(type) {
	case nil:
	case string:
		encoded = v
	case []byte:
		encoded = string(v)
	case json.RawMessage:
		encoded = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("redisstore: encode module levels: %w", err)
		}
		encoded = string(data)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldID, role.ID, fieldName, role.Name)
		if role.ModuleLevels == nil {
			pipe.HDel(ctx, key, fieldModuleLevels)
		} else {
			pipe.HSet(ctx, key, fieldModuleLevels, encoded)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: save role: %w", err)
	}
	return nil
}

// DeleteRole removes a role and its legacy grants. Assignments pointing at it
// are left in place and are skipped on resolution.
func (s *Store) DeleteRole(ctx context.Context, roleID string) error {
	if err := s.client.Del(ctx, s.roleKey(roleID), s.rolePermissionsKey(roleID)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete role: %w", err)
	}
	return nil
}

// AssignRole adds roleID to the user's roles.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	if err := s.client.SAdd(ctx, s.userRolesKey(userID), roleID).Err(); err != nil {
		return fmt.Errorf("redisstore: assign role: %w", err)
	}
	return nil
}

// RemoveRole removes roleID from the user's roles.
func (s *Store) RemoveRole(ctx context.Context, userID, roleID string) error {
	if err := s.client.SRem(ctx, s.userRolesKey(userID), roleID).Err(); err != nil {
		return fmt.Errorf("redisstore: remove role: %w", err)
	}
	return nil
}

// SavePermission writes a legacy permission record.
func (s *Store) SavePermission(ctx context.Context, id, module, action string) error {
	rec := permissionRecord{ID: id, Module: module, Action: action}
	if err := s.validate.Struct(rec); err != nil {
		return fmt.Errorf("redisstore: invalid permission: %w", err)
	}
	err := s.client.HSet(ctx, s.permissionKey(id), fieldID, id, fieldModule, module, fieldAction, action).Err()
	if err != nil {
		return fmt.Errorf("redisstore: save permission: %w", err)
	}
	return nil
}

// GrantPermission attaches a legacy permission to a role.
func (s *Store) GrantPermission(ctx context.Context, roleID, permissionID string) error {
	if err := s.client.SAdd(ctx, s.rolePermissionsKey(roleID), permissionID).Err(); err != nil {
		return fmt.Errorf("redisstore: grant permission: %w", err)
	}
	return nil
}
