package access

import "sort"

// Wildcard grants every action.
const Wildcard = "*"

// actionCatalog holds the cumulative action vocabulary per level. Each entry is a
// strict superset of the entry below it.
var actionCatalog = buildCatalog()

func buildCatalog() map[Level]map[string]struct{} {
	tiers := []struct {
		level   Level
		actions []string
	}{
		{Read, []string{"view", "list", "read", "search"}},
		{Write, []string{"create", "edit", "update", "comment"}},
		{Full, []string{"delete", "assign", "manage", "import", "export"}},
		{Admin, []string{"configure", "admin", "manage_all", "manage_users", "manage_roles"}},
	}
	catalog := map[Level]map[string]struct{}{
		None:       {},
		SuperAdmin: {Wildcard: {}},
	}
	acc := make(map[string]struct{})
	for _, tier := range tiers {
		for _, action := range tier.actions {
			acc[action] = struct{}{}
		}
		set := make(map[string]struct{}, len(acc))
		for action := range acc {
			set[action] = struct{}{}
		}
		catalog[tier.level] = set
	}
	return catalog
}

// ActionsForLevel returns the sorted cumulative actions granted at level.
// SuperAdmin yields the wildcard only; unknown levels yield nothing.
func ActionsForLevel(level Level) []string {
	set := actionCatalog[level]
	actions := make([]string, 0, len(set))
	for action := range set {
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}

// HasPermissionForAction reports whether level grants action.
func HasPermissionForAction(level Level, action string) bool {
	switch {
	case level == SuperAdmin:
		return true
	case level <= None:
		return false
	}
	_, ok := actionCatalog[level][action]
	return ok
}

// HasMinimumLevel reports whether level is at least required.
func HasMinimumLevel(level, required Level) bool {
	return level >= required
}

// MinimumLevelForAction returns the lowest level whose action set contains action.
// Actions no level grants resolve to None.
func MinimumLevelForAction(action string) Level {
	if action == Wildcard {
		return SuperAdmin
	}
	for _, level := range Levels() {
		if _, ok := actionCatalog[level][action]; ok {
			return level
		}
	}
	return None
}

// ActionsToLevel infers a level from a legacy action grant list.
func ActionsToLevel(actions []string) Level {
	if len(actions) == 0 {
		return None
	}
	set := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		set[action] = struct{}{}
	}
	has := func(candidates ...string) bool {
		for _, c := range candidates {
			if _, ok := set[c]; ok {
				return true
			}
		}
		return false
	}
	switch {
	case has(Wildcard, "super_admin"):
		return SuperAdmin
	case has("configure", "admin", "manage_all"):
		return Admin
	case has("delete", "manage", "assign"):
		return Full
	case has("create", "edit", "update"):
		return Write
	default:
		return Read
	}
}
