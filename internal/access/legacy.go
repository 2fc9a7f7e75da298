package access

import "sort"

// legacyLevelActions is the action list older call sites observe per level. It is
// deliberately separate from actionCatalog and uses different wording; merging the
// two would change the action names those callers match against.
var legacyLevelActions = map[Level][]string{
	None:       {},
	Read:       {"view", "list", "read"},
	Write:      {"view", "list", "read", "create", "update"},
	Full:       {"view", "list", "read", "create", "update", "delete"},
	Admin:      {"view", "list", "read", "create", "update", "delete", "manage", "admin"},
	SuperAdmin: {Wildcard},
}

// ModulePermission is a single module/action pair in the legacy shape.
type ModulePermission struct {
	Module string `json:"module"`
	Action string `json:"action"`
}

// PermissionMap is the legacy {module: [actions]} view.
type PermissionMap map[string][]string

// LevelActions returns the legacy action list for level.
func LevelActions(level Level) []string {
	actions := legacyLevelActions[level]
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// ExpandLevels flattens module levels into the legacy list and map views. Modules
// are emitted in name order; super-admins also receive the "*": ["*"] entry.
func ExpandLevels(levels map[string]Level, superAdmin bool) ([]ModulePermission, PermissionMap) {
	modules := make([]string, 0, len(levels))
	for module := range levels {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	perms := make([]ModulePermission, 0)
	permMap := make(PermissionMap, len(modules)+1)
	for _, module := range modules {
		actions := LevelActions(levels[module])
		if len(actions) == 0 {
			continue
		}
		permMap[module] = actions
		for _, action := range actions {
			perms = append(perms, ModulePermission{Module: module, Action: action})
		}
	}
	if superAdmin {
		permMap[Wildcard] = []string{Wildcard}
	}
	return perms, permMap
}

// HasPermission answers a legacy check against a permission map.
func HasPermission(permMap PermissionMap, module, action string) bool {
	if contains(permMap[Wildcard], Wildcard) {
		return true
	}
	actions, ok := permMap[module]
	if !ok {
		return false
	}
	return contains(actions, action) || contains(actions, Wildcard)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
