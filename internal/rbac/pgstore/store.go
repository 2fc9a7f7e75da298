// Package pgstore reads roles, assignments and legacy grants from PostgreSQL.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

//go:embed schema.sql
var schema string

// Querier is the subset of *pgxpool.Pool used by Store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides PostgreSQL backed role lookups.
type Store struct {
	db Querier
}

var _ rbac.Store = (*Store)(nil)

// New constructs a Store.
func New(db Querier) *Store {
	return &Store{db: db}
}

// Migrate creates the RBAC tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	return nil
}

// GetRoleAssignmentsForUser returns the user's role assignments. Ids that are not
// UUIDs cannot exist in the tables and yield no assignments.
func (s *Store) GetRoleAssignmentsForUser(ctx context.Context, userID string) ([]rbac.RoleAssignment, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT role_id::text FROM user_roles WHERE user_id = $1 ORDER BY role_id`, uid.String())
	if err != nil {
		return nil, fmt.Errorf("pgstore: user roles: %w", err)
	}
	defer rows.Close()
	var assignments []rbac.RoleAssignment
	for rows.Next() {
		var roleID string
		if err := rows.Scan(&roleID); err != nil {
			return nil, fmt.Errorf("pgstore: scan user role: %w", err)
		}
		assignments = append(assignments, rbac.RoleAssignment{UserID: userID, RoleID: roleID})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: user roles: %w", err)
	}
	return assignments, nil
}

// GetRole fetches a role. module_levels is handed over as raw JSON; NULL means
// the role has no level configuration.
func (s *Store) GetRole(ctx context.Context, roleID string) (rbac.Role, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return rbac.Role{}, rbac.ErrRoleNotFound
	}
	var (
		name   string
		levels []byte
	)
	err = s.db.QueryRow(ctx, `SELECT name, module_levels FROM roles WHERE id = $1`, id.String()).Scan(&name, &levels)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, rbac.ErrRoleNotFound
		}
		return rbac.Role{}, fmt.Errorf("pgstore: get role: %w", err)
	}
	role := rbac.Role{ID: id.String(), Name: name}
	if levels != nil {
		role.ModuleLevels = json.RawMessage(levels)
	}
	return role, nil
}

// GetLegacyGrantsForRole joins the role's legacy permissions.
func (s *Store) GetLegacyGrantsForRole(ctx context.Context, roleID string) ([]rbac.LegacyGrant, error) {
	id, err := uuid.Parse(roleID)
	if err != nil {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT p.module, p.action
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.module, p.action`, id.String())
	if err != nil {
		return nil, fmt.Errorf("pgstore: legacy grants: %w", err)
	}
	grants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rbac.LegacyGrant, error) {
		var g rbac.LegacyGrant
		err := row.Scan(&g.Module, &g.Action)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: scan legacy grants: %w", err)
	}
	return grants, nil
}
