package access

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActionsForLevelIsCumulative(t *testing.T) {
	chain := []Level{Read, Write, Full, Admin}
	for i := 1; i < len(chain); i++ {
		lower := ActionsForLevel(chain[i-1])
		higher := ActionsForLevel(chain[i])
		require.Greater(t, len(higher), len(lower), "%s must grant more than %s", chain[i], chain[i-1])
		for _, action := range lower {
			require.Contains(t, higher, action, "%s lost %q granted by %s", chain[i], action, chain[i-1])
		}
	}
	require.Empty(t, ActionsForLevel(None))
	require.Equal(t, []string{Wildcard}, ActionsForLevel(SuperAdmin))
	require.Empty(t, ActionsForLevel(Level(42)))
}

func TestHasMinimumLevelIsMonotonic(t *testing.T) {
	for _, low := range Levels() {
		for _, high := range Levels() {
			require.Equal(t, high >= low, HasMinimumLevel(high, low), "%s vs %s", high, low)
		}
	}
}

func TestHasPermissionForAction(t *testing.T) {
	for _, action := range []string{"view", "delete", "configure", "launch_rockets", "", Wildcard} {
		require.True(t, HasPermissionForAction(SuperAdmin, action), "super admin must allow %q", action)
		require.False(t, HasPermissionForAction(None, action), "none must deny %q", action)
	}

	require.True(t, HasPermissionForAction(Read, "view"))
	require.False(t, HasPermissionForAction(Read, "create"))
	require.True(t, HasPermissionForAction(Write, "edit"))
	require.False(t, HasPermissionForAction(Write, "delete"))
	require.True(t, HasPermissionForAction(Full, "export"))
	require.False(t, HasPermissionForAction(Full, "configure"))
	require.True(t, HasPermissionForAction(Admin, "manage_all"))
	require.False(t, HasPermissionForAction(Admin, "launch_rockets"))
	require.False(t, HasPermissionForAction(Admin, Wildcard))
}

func TestHasPermissionForActionNeverRegresses(t *testing.T) {
	for _, level := range Levels() {
		for _, action := range ActionsForLevel(level) {
			for _, higher := range Levels() {
				if higher < level {
					continue
				}
				require.True(t, HasPermissionForAction(higher, action), "%s should keep %q from %s", higher, action, level)
			}
		}
	}
}

func TestMinimumLevelForAction(t *testing.T) {
	cases := map[string]Level{
		"view":       Read,
		"search":     Read,
		"create":     Write,
		"comment":    Write,
		"delete":     Full,
		"import":     Full,
		"configure":  Admin,
		"manage_all": Admin,
		Wildcard:     SuperAdmin,
		"unknown":    None,
		"":           None,
	}
	for action, want := range cases {
		require.Equal(t, want, MinimumLevelForAction(action), "action %q", action)
	}
}

func TestMinimumLevelForActionMatchesCatalog(t *testing.T) {
	for _, level := range []Level{Read, Write, Full, Admin} {
		for _, action := range ActionsForLevel(level) {
			min := MinimumLevelForAction(action)
			require.LessOrEqual(t, min, level)
			require.True(t, HasPermissionForAction(min, action))
			if min > Read {
				require.False(t, HasPermissionForAction(min-1, action))
			}
		}
	}
}

func TestActionsToLevel(t *testing.T) {
	cases := []struct {
		name    string
		actions []string
		want    Level
	}{
		{"empty", nil, None},
		{"wildcard", []string{"view", Wildcard}, SuperAdmin},
		{"super admin keyword", []string{"super_admin"}, SuperAdmin},
		{"configure", []string{"view", "configure"}, Admin},
		{"manage all", []string{"manage_all"}, Admin},
		{"delete", []string{"read", "delete"}, Full},
		{"assign", []string{"assign"}, Full},
		{"create and read", []string{"create", "read"}, Write},
		{"update", []string{"update"}, Write},
		{"only reads", []string{"view", "list"}, Read},
		{"unrecognised", []string{"frobnicate"}, Read},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ActionsToLevel(tc.actions))
		})
	}
}
