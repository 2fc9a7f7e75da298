package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-authz/internal/platform/db"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
)

// RoleSeed describes a role together with its legacy grants and the users
// assigned to it.
type RoleSeed struct {
	Role   rbac.Role
	Grants []rbac.LegacyGrant
	Users  []string
}

// Apply upserts every seed in a single transaction. Existing grants and
// assignments are kept; the role's name and module levels are overwritten.
func Apply(ctx context.Context, conn db.Beginner, seeds ...RoleSeed) error {
	return db.WithTx(ctx, conn, func(tx pgx.Tx) error {
		for _, seed := range seeds {
			if err := applySeed(ctx, tx, seed); err != nil {
				return err
			}
		}
		return nil
	})
}

func applySeed(ctx context.Context, tx pgx.Tx, seed RoleSeed) error {
	roleID, err := uuid.Parse(seed.Role.ID)
	if err != nil {
		return fmt.Errorf("%w: role id %q", rbac.ErrMalformedRole, seed.Role.ID)
	}
	if seed.Role.Name == "" {
		return fmt.Errorf("%w: role %s has no name", rbac.ErrMalformedRole, roleID)
	}
	levels, err := encodeLevels(seed.Role.ModuleLevels)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO roles (id, name, module_levels)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, module_levels = EXCLUDED.module_levels, updated_at = NOW()`,
		roleID.String(), seed.Role.Name, levels); err != nil {
		return fmt.Errorf("pgstore: upsert role %s: %w", seed.Role.Name, err)
	}

	for _, grant := range seed.Grants {
		var permissionID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO permissions (module, action) VALUES ($1, $2)
			ON CONFLICT (module, action) DO UPDATE SET module = EXCLUDED.module
			RETURNING id`, grant.Module, grant.Action).Scan(&permissionID)
		if err != nil {
			return fmt.Errorf("pgstore: upsert permission %s:%s: %w", grant.Module, grant.Action, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, roleID.String(), permissionID); err != nil {
			return fmt.Errorf("pgstore: grant permission: %w", err)
		}
	}

	for _, userID := range seed.Users {
		uid, err := uuid.Parse(userID)
		if err != nil {
			return fmt.Errorf("pgstore: user id %q: %w", userID, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, uid.String(), roleID.String()); err != nil {
			return fmt.Errorf("pgstore: assign role: %w", err)
		}
	}
	return nil
}

// encodeLevels returns the JSON text for the module_levels column, or nil for
// NULL. Strings and raw JSON are passed through unchanged.
func encodeLevels(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("pgstore: encode module levels: %w", err)
		}
		return string(data), nil
	}
}
