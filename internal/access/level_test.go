package access

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"none":        None,
		"READ":        Read,
		" Write ":     Write,
		"full":        Full,
		"admin":       Admin,
		"super_admin": SuperAdmin,
		"SuperAdmin":  SuperAdmin,
		"0":           None,
		"5":           SuperAdmin,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "owner", "6", "-1"} {
		_, err := ParseLevel(raw)
		require.ErrorIs(t, err, ErrInvalidLevel, raw)
	}
}

func TestLevelString(t *testing.T) {
	require.Equal(t, "super_admin", SuperAdmin.String())
	require.Equal(t, "none", None.String())
	require.Equal(t, "level(9)", Level(9).String())
	for _, lvl := range Levels() {
		parsed, err := ParseLevel(lvl.String())
		require.NoError(t, err)
		require.Equal(t, lvl, parsed)
	}
}

func TestLevelJSON(t *testing.T) {
	var levels map[string]Level
	require.NoError(t, json.Unmarshal([]byte(`{"crm":2,"users":"admin","tasks":"3"}`), &levels))
	require.Equal(t, map[string]Level{"crm": Write, "users": Admin, "tasks": Full}, levels)

	out, err := json.Marshal(map[string]Level{"crm": Full})
	require.NoError(t, err)
	require.JSONEq(t, `{"crm":3}`, string(out))

	var bad Level
	require.ErrorIs(t, json.Unmarshal([]byte(`7`), &bad), ErrInvalidLevel)
	require.ErrorIs(t, json.Unmarshal([]byte(`"owner"`), &bad), ErrInvalidLevel)
	require.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

func TestLevelJSONAcceptsWholeFloats(t *testing.T) {
	var levels map[string]Level
	require.NoError(t, json.Unmarshal([]byte(`{"crm":2.0,"users":4e0}`), &levels))
	require.Equal(t, map[string]Level{"crm": Write, "users": Admin}, levels)

	var bad Level
	require.ErrorIs(t, json.Unmarshal([]byte(`2.5`), &bad), ErrInvalidLevel)
}

func TestParseNumber(t *testing.T) {
	cases := map[string]Level{"0": None, "3": Full, "2.0": Write, "5e0": SuperAdmin, "1.00": Read}
	for raw, want := range cases {
		got, err := ParseNumber(json.Number(raw))
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"2.5", "-1", "6", "1e300", "x"} {
		_, err := ParseNumber(json.Number(raw))
		require.ErrorIs(t, err, ErrInvalidLevel, raw)
	}
}

func TestParseLevelConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				lvl, err := ParseLevel("Super_Admin")
				if err != nil || lvl != SuperAdmin {
					t.Errorf("ParseLevel: %v %v", lvl, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestMaxLevel(t *testing.T) {
	require.Equal(t, Admin, MaxLevel(Write, Admin))
	require.Equal(t, Admin, MaxLevel(Admin, Write))
	require.Equal(t, None, MaxLevel(None, None))
}
