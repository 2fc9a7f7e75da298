package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-authz/testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StoreRedis, cfg.Store)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "X-User-ID", cfg.UserIDHeader)
	require.Equal(t, 8, cfg.ResolveConcurrency)
	require.Equal(t, 10*time.Second, cfg.AppRequestTimeout)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTHZ_STORE", "postgres")
	t.Setenv("AUTHZ_RESOLVE_CONCURRENCY", "4")
	t.Setenv("AUTHZ_USER_HEADER", "X-Forwarded-User")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, StorePostgres, cfg.Store)
	require.Equal(t, 4, cfg.ResolveConcurrency)
	require.Equal(t, "X-Forwarded-User", cfg.UserIDHeader)
	require.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"unknown store":      {"AUTHZ_STORE", "mysql"},
		"zero concurrency":   {"AUTHZ_RESOLVE_CONCURRENCY", "0"},
		"unknown log format": {"LOG_FORMAT", "xml"},
		"bad duration":       {"APP_READ_TIMEOUT", "soon"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(env[0], env[1])
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestValidateRequiresStoreAddress(t *testing.T) {
	cfg := &Config{
		AppAddr:            ":0",
		LogFormat:          "json",
		LogLevel:           "info",
		Store:              StoreRedis,
		PGMaxConns:         1,
		UserIDHeader:       "X-User-ID",
		ResolveConcurrency: 1,
	}
	require.Error(t, cfg.Validate())
	cfg.RedisAddr = "127.0.0.1:6379"
	require.NoError(t, cfg.Validate())

	cfg.Store = StorePostgres
	require.Error(t, cfg.Validate())
	cfg.PGDSN = "postgres://localhost/authz"
	require.NoError(t, cfg.Validate())
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, "INFO", parseLogLevel(nil).String())
	require.Equal(t, "DEBUG", parseLogLevel(&Config{LogLevel: "debug"}).String())
	require.Equal(t, "INFO", parseLogLevel(&Config{LogLevel: "loud"}).String())
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	require.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	require.False(t, InTestMode())

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
}
