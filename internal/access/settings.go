package access

import "sort"

// SettingsModule is the module whose level gates the settings actions below.
const SettingsModule = "settings"

// SettingsGroup is a UI section of the settings area. MinLevel only decides
// whether the section is rendered; individual actions are still checked against
// settingsRequiredLevel.
type SettingsGroup struct {
	Name     string   `json:"name"`
	MinLevel Level    `json:"min_level"`
	Actions  []string `json:"actions"`
}

var settingsRequiredLevel = map[string]Level{
	"view_general": Read,
	"edit_general": Write,

	"view_company_info": Read,
	"edit_company_info": Full,

	"view_email_settings":  Read,
	"edit_email_settings":  Full,
	"manage_notifications": Full,
	"manage_templates":     Full,

	"view_integrations":   Full,
	"manage_integrations": Admin,
	"manage_webhooks":     Admin,
	"manage_api_keys":     Admin,

	"view_security":   Full,
	"manage_security": Admin,
	"manage_roles":    Admin,
	"manage_users":    Admin,
	"view_audit_logs": Admin,

	"view_system":    Admin,
	"manage_backups": SuperAdmin,
	"manage_system":  SuperAdmin,

	"manage_database": SuperAdmin,
	"reset_system":    SuperAdmin,
	"delete_all_data": SuperAdmin,
}

var settingsGroups = []SettingsGroup{
	{Name: "general", MinLevel: Read, Actions: []string{"view_general", "edit_general"}},
	{Name: "company", MinLevel: Read, Actions: []string{"view_company_info", "edit_company_info"}},
	{Name: "communication", MinLevel: Read, Actions: []string{"view_email_settings", "edit_email_settings", "manage_notifications", "manage_templates"}},
	{Name: "integration", MinLevel: Full, Actions: []string{"view_integrations", "manage_integrations", "manage_webhooks", "manage_api_keys"}},
	{Name: "security", MinLevel: Full, Actions: []string{"view_security", "manage_security", "manage_roles", "manage_users", "view_audit_logs"}},
	{Name: "system", MinLevel: Admin, Actions: []string{"view_system", "manage_backups", "manage_system"}},
	{Name: "dangerZone", MinLevel: SuperAdmin, Actions: []string{"manage_database", "reset_system", "delete_all_data"}},
}

// RequiredSettingsLevel returns the level action needs and whether it is configured.
func RequiredSettingsLevel(action string) (Level, bool) {
	lvl, ok := settingsRequiredLevel[action]
	return lvl, ok
}

// SettingsActions returns every configured settings action with its required level.
func SettingsActions() map[string]Level {
	out := make(map[string]Level, len(settingsRequiredLevel))
	for action, lvl := range settingsRequiredLevel {
		out[action] = lvl
	}
	return out
}

// CanAccessSettingsAction reports whether a settings-module level allows action.
// Unconfigured actions require None and are therefore always allowed.
func CanAccessSettingsAction(level Level, action string) bool {
	return level >= settingsRequiredLevel[action]
}

// AvailableSettingsActions returns the sorted actions level can perform.
func AvailableSettingsActions(level Level) []string {
	actions := make([]string, 0, len(settingsRequiredLevel))
	for action, required := range settingsRequiredLevel {
		if required <= level {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)
	return actions
}

// SettingsGroups returns the presentation groups in display order.
func SettingsGroups() []SettingsGroup {
	out := make([]SettingsGroup, len(settingsGroups))
	for i, g := range settingsGroups {
		actions := make([]string, len(g.Actions))
		copy(actions, g.Actions)
		out[i] = SettingsGroup{Name: g.Name, MinLevel: g.MinLevel, Actions: actions}
	}
	return out
}

// AccessibleSettingsGroups returns, in display order, the groups level may see.
func AccessibleSettingsGroups(level Level) []string {
	names := make([]string, 0, len(settingsGroups))
	for _, g := range settingsGroups {
		if level >= g.MinLevel {
			names = append(names, g.Name)
		}
	}
	return names
}
