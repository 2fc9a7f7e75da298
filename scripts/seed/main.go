package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/app"
	"github.com/odyssey-erp/odyssey-authz/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-authz/internal/platform/db"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac/pgstore"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac/redisstore"
)

// seedNamespace keeps role and user ids stable across runs.
var seedNamespace = uuid.MustParse("6f1c2a4e-8b0d-4d3a-9c57-2f0e1b7a9d11")

func seedID(name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(name)).String()
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	seeds := defaultSeeds()
	fmt.Printf("→ Seeding %d roles into %s...\n", len(seeds), cfg.Store)
	switch cfg.Store {
	case app.StorePostgres:
		err = seedPostgres(ctx, cfg, seeds)
	default:
		err = seedRedis(ctx, cfg, seeds)
	}
	if err != nil {
		log.Fatalf("seed %s: %v", cfg.Store, err)
	}
	for _, seed := range seeds {
		fmt.Printf("  %-16s %s users=%v\n", seed.Role.Name, seed.Role.ID, seed.Users)
	}
	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func defaultSeeds() []pgstore.RoleSeed {
	role := func(name string, levels map[string]access.Level) rbac.Role {
		r := rbac.Role{ID: seedID("role:" + name), Name: name}
		if levels != nil {
			r.ModuleLevels = levels
		}
		return r
	}
	return []pgstore.RoleSeed{
		{
			Role:  role("super_admin", map[string]access.Level{"system": access.SuperAdmin}),
			Users: []string{seedID("user:root")},
		},
		{
			Role: role("admin", map[string]access.Level{
				"users":    access.Admin,
				"roles":    access.Admin,
				"settings": access.Admin,
				"crm":      access.Admin,
				"reports":  access.Full,
			}),
			Users: []string{seedID("user:admin")},
		},
		{
			Role: role("manager", map[string]access.Level{
				"users":    access.Read,
				"crm":      access.Full,
				"tickets":  access.Full,
				"reports":  access.Write,
				"settings": access.Read,
			}),
			Users: []string{seedID("user:manager")},
		},
		{
			Role: role("agent", map[string]access.Level{
				"crm":     access.Write,
				"tickets": access.Write,
			}),
			Users: []string{seedID("user:agent"), seedID("user:manager")},
		},
		{
			Role: role("viewer", map[string]access.Level{
				"crm":     access.Read,
				"tickets": access.Read,
				"reports": access.Read,
			}),
			Users: []string{seedID("user:viewer")},
		},
		{
			Role: role("support_legacy", nil),
			Grants: []rbac.LegacyGrant{
				{Module: "tickets", Action: "view"},
				{Module: "tickets", Action: "create"},
				{Module: "tickets", Action: "update"},
				{Module: "knowledge_base", Action: "view"},
			},
			Users: []string{seedID("user:support")},
		},
	}
}

func seedPostgres(ctx context.Context, cfg *app.Config, seeds []pgstore.RoleSeed) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pgstore.New(pool).Migrate(ctx); err != nil {
		return err
	}
	return pgstore.Apply(ctx, pool, seeds...)
}

func seedRedis(ctx context.Context, cfg *app.Config, seeds []pgstore.RoleSeed) error {
	client, err := cache.New(ctx, cfg.RedisAddr, cache.Options{Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck
	store := redisstore.New(client, cfg.RedisPrefix)
	for _, seed := range seeds {
		if err := store.SaveRole(ctx, seed.Role); err != nil {
			return fmt.Errorf("role %s: %w", seed.Role.Name, err)
		}
		for _, grant := range seed.Grants {
			permissionID := grant.Module + ":" + grant.Action
			if err := store.SavePermission(ctx, permissionID, grant.Module, grant.Action); err != nil {
				return err
			}
			if err := store.GrantPermission(ctx, seed.Role.ID, permissionID); err != nil {
				return err
			}
		}
		for _, userID := range seed.Users {
			if err := store.AssignRole(ctx, userID, seed.Role.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
