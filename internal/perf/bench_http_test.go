package perf

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac"
	"github.com/odyssey-erp/odyssey-authz/internal/rbac/redisstore"
)

const rolesPerUser = 12

func seededService(tb testing.TB) *rbac.Service {
	tb.Helper()
	mr := miniredis.RunT(tb)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = client.Close() })

	store := redisstore.New(client, "")
	ctx := context.Background()
	for i := 0; i < rolesPerUser; i++ {
		roleID := fmt.Sprintf("role-%02d", i)
		levels := map[string]access.Level{
			fmt.Sprintf("module-%02d", i): access.Level(i%4 + 1),
			"crm":                         access.Level(i % 4),
		}
		require.NoError(tb, store.SaveRole(ctx, rbac.Role{ID: roleID, Name: roleID, ModuleLevels: levels}))
		permID := fmt.Sprintf("legacy-%02d", i)
		require.NoError(tb, store.SavePermission(ctx, permID, fmt.Sprintf("legacy-%02d", i), "view"))
		require.NoError(tb, store.GrantPermission(ctx, roleID, permID))
		require.NoError(tb, store.AssignRole(ctx, "bench-user", roleID))
	}
	return rbac.NewService(store, nil, rbac.WithConcurrency(4))
}

func TestResolutionLatencyTargets(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	samples := make([]time.Duration, 0, 50)
	for i := 0; i < cap(samples); i++ {
		start := time.Now()
		profile, err := svc.ResolveProfile(ctx, "bench-user")
		samples = append(samples, time.Since(start))
		require.NoError(t, err)
		require.Len(t, profile.ModuleLevels, 2*rolesPerUser+1)
	}

	threshold := 250 * time.Millisecond
	if p95 := percentile95(samples); p95 > threshold {
		t.Fatalf("resolution latency regression: p95=%s threshold=%s", p95, threshold)
	}
}

func BenchmarkResolveProfile(b *testing.B) {
	svc := seededService(b)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ResolveProfile(ctx, "bench-user"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGuardedRoute(b *testing.B) {
	svc := seededService(b)
	mw := rbac.Middleware{Service: svc}
	r := chi.NewRouter()
	r.With(mw.RequireAction("crm", "edit")).Get("/crm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/crm", nil)
		req.Header.Set(rbac.DefaultUserIDHeader, "bench-user")
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
