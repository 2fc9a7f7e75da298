package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
)

const defaultConcurrency = 8

// Recorder receives resolution and decision outcomes, typically for metrics.
type Recorder interface {
	ObserveResolution(outcome string, elapsed time.Duration)
	ObserveDecision(check string, allowed bool)
}

// Option customises a Service.
type Option func(*Service)

// WithConcurrency bounds how many roles are loaded from the store in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// Service resolves effective module levels for users and answers permission checks.
// It holds no mutable state; every call re-reads the store.
type Service struct {
	store       Store
	logger      *slog.Logger
	concurrency int
	recorder    Recorder
}

// NewService constructs a Service reading from store.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: store, logger: logger, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type roleData struct {
	levels map[string]access.Level
	grants []LegacyGrant
}

// ResolveProfile computes the user's profile and reports store or decoding
// failures. On error the returned profile is empty.
func (s *Service) ResolveProfile(ctx context.Context, userID string) (Profile, error) {
	assignments, err := s.store.GetRoleAssignmentsForUser(ctx, userID)
	if err != nil {
		return emptyProfile(userID), fmt.Errorf("rbac: role assignments: %w", err)
	}
	roleIDs := uniqueRoleIDs(assignments)

	results := make([]roleData, len(roleIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, roleID := range roleIDs {
		g.Go(func() error {
			data, err := s.loadRole(gctx, userID, roleID)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return emptyProfile(userID), err
	}
	return buildProfile(userID, results), nil
}

func (s *Service) loadRole(ctx context.Context, userID, roleID string) (roleData, error) {
	var data roleData
	role, err := s.store.GetRole(ctx, roleID)
	switch {
	case errors.Is(err, ErrRoleNotFound):
		s.logger.Debug("rbac skip missing role", slog.String("user_id", userID), slog.String("role_id", roleID))
	case err != nil:
		return data, fmt.Errorf("rbac: get role %s: %w", roleID, err)
	default:
		levels, _, err := decodeModuleLevels(role.ModuleLevels)
		if err != nil {
			return data, fmt.Errorf("rbac: role %s: %w", roleID, err)
		}
		data.levels = levels
	}

	grants, err := s.store.GetLegacyGrantsForRole(ctx, roleID)
	if err != nil {
		return data, fmt.Errorf("rbac: legacy grants for role %s: %w", roleID, err)
	}
	data.grants = grants
	return data, nil
}

// buildProfile merges explicit levels by maximum, then fills modules no role
// configured explicitly from the legacy grants of all roles.
func buildProfile(userID string, roles []roleData) Profile {
	profile := emptyProfile(userID)

	for _, role := range roles {
		for module, lvl := range role.levels {
			profile.ModuleLevels[module] = access.MaxLevel(profile.ModuleLevels[module], lvl)
		}
	}

	legacy := make(map[string]map[string]struct{})
	for _, role := range roles {
		for _, grant := range role.grants {
			if legacy[grant.Module] == nil {
				legacy[grant.Module] = make(map[string]struct{})
			}
			legacy[grant.Module][grant.Action] = struct{}{}
		}
	}
	if len(legacy) > 0 {
		profile.LegacyPermissions = make(map[string][]string, len(legacy))
	}
	for module, set := range legacy {
		actions := make([]string, 0, len(set))
		for action := range set {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		profile.LegacyPermissions[module] = actions
		if _, explicit := profile.ModuleLevels[module]; explicit {
			continue
		}
		profile.ModuleLevels[module] = access.ActionsToLevel(actions)
	}

	for _, lvl := range profile.ModuleLevels {
		if lvl == access.SuperAdmin {
			profile.IsSuperAdmin = true
		}
		profile.EffectiveLevel = access.MaxLevel(profile.EffectiveLevel, lvl)
	}
	if profile.IsSuperAdmin {
		profile.EffectiveLevel = access.SuperAdmin
	}
	return profile
}

func uniqueRoleIDs(assignments []RoleAssignment) []string {
	seen := make(map[string]struct{}, len(assignments))
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if _, ok := seen[a.RoleID]; ok {
			continue
		}
		seen[a.RoleID] = struct{}{}
		ids = append(ids, a.RoleID)
	}
	return ids
}

// resolve wraps ResolveProfile with the fail-closed policy: errors are logged with
// the caller's context and an empty profile is returned with ok=false.
func (s *Service) resolve(ctx context.Context, userID string, attrs ...any) (Profile, bool) {
	start := time.Now()
	profile, err := s.ResolveProfile(ctx, userID)
	if err != nil {
		args := append([]any{slog.String("user_id", userID)}, attrs...)
		args = append(args, slog.Any("error", err))
		s.logger.Error("rbac resolve profile", args...)
		s.observeResolution("error", start)
		return emptyProfile(userID), false
	}
	s.observeResolution("ok", start)
	return profile, true
}

// GetPermissionProfile returns the user's profile, or an empty profile when the
// store cannot be read.
func (s *Service) GetPermissionProfile(ctx context.Context, userID string) Profile {
	profile, _ := s.resolve(ctx, userID)
	return profile
}

// CheckPermissionLevel reports whether the user may perform action in module.
func (s *Service) CheckPermissionLevel(ctx context.Context, userID, module, action string) bool {
	profile, ok := s.resolve(ctx, userID, slog.String("module", module), slog.String("action", action))
	allowed := ok && (profile.IsSuperAdmin || access.HasPermissionForAction(profile.Level(module), action))
	s.observeDecision("action", allowed)
	return allowed
}

// HasMinimumLevelForUser reports whether the user holds at least required in module.
func (s *Service) HasMinimumLevelForUser(ctx context.Context, userID, module string, required access.Level) bool {
	profile, ok := s.resolve(ctx, userID, slog.String("module", module), slog.String("required", required.String()))
	allowed := ok && (profile.IsSuperAdmin || access.HasMinimumLevel(profile.Level(module), required))
	s.observeDecision("level", allowed)
	return allowed
}

// GetUserModuleLevel returns the user's resolved level in module.
func (s *Service) GetUserModuleLevel(ctx context.Context, userID, module string) access.Level {
	profile, _ := s.resolve(ctx, userID, slog.String("module", module))
	return profile.Level(module)
}

// CanAccessSettingsAction checks a settings action against the user's settings
// level. Super-admins pass; a failed resolution always denies, including for
// actions the settings policy does not list.
func (s *Service) CanAccessSettingsAction(ctx context.Context, userID, action string) bool {
	profile, ok := s.resolve(ctx, userID, slog.String("module", access.SettingsModule), slog.String("action", action))
	allowed := ok && (profile.IsSuperAdmin || access.CanAccessSettingsAction(profile.Level(access.SettingsModule), action))
	s.observeDecision("settings", allowed)
	return allowed
}

// GetSettingsAccess returns the settings actions and UI groups available to the user.
func (s *Service) GetSettingsAccess(ctx context.Context, userID string) SettingsAccess {
	profile, _ := s.resolve(ctx, userID, slog.String("module", access.SettingsModule))
	lvl := profile.Level(access.SettingsModule)
	if profile.IsSuperAdmin {
		lvl = access.SuperAdmin
	}
	return SettingsAccess{
		Level:   lvl,
		Actions: access.AvailableSettingsActions(lvl),
		Groups:  access.AccessibleSettingsGroups(lvl),
	}
}

// GetUserPermissionsContext expands the user's levels into the legacy action shapes.
func (s *Service) GetUserPermissionsContext(ctx context.Context, userID string) PermissionsContext {
	profile, _ := s.resolve(ctx, userID)
	perms, permMap := access.ExpandLevels(profile.ModuleLevels, profile.IsSuperAdmin)
	return PermissionsContext{
		Permissions:   perms,
		PermissionMap: permMap,
		IsSuperAdmin:  profile.IsSuperAdmin,
	}
}

func (s *Service) observeResolution(outcome string, start time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveResolution(outcome, time.Since(start))
	}
}

func (s *Service) observeDecision(check string, allowed bool) {
	if s.recorder != nil {
		s.recorder.ObserveDecision(check, allowed)
	}
}
