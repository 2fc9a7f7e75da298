package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/platform/httpx"
)

// DefaultUserIDHeader carries the caller identity set by the upstream gateway.
const DefaultUserIDHeader = "X-User-ID"

type userIDKey struct{}

// ContextWithUserID stores the acting user id on ctx.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the acting user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// Middleware wires RBAC authorization helpers for HTTP handlers. Identity is taken
// from the request context first and then from UserIDHeader; it is never
// authenticated here.
type Middleware struct {
	Service      *Service
	Logger       *slog.Logger
	UserIDHeader string
}

// RequireAction ensures the current user may perform action in module.
func (m Middleware) RequireAction(module, action string) func(http.Handler) http.Handler {
	module = strings.TrimSpace(module)
	action = strings.TrimSpace(action)
	return m.guard("rbac require action", func(r *http.Request, userID string) bool {
		return m.Service.CheckPermissionLevel(r.Context(), userID, module, action)
	}, slog.String("module", module), slog.String("action", action))
}

// RequireLevel ensures the current user holds at least required in module.
func (m Middleware) RequireLevel(module string, required access.Level) func(http.Handler) http.Handler {
	module = strings.TrimSpace(module)
	return m.guard("rbac require level", func(r *http.Request, userID string) bool {
		return m.Service.HasMinimumLevelForUser(r.Context(), userID, module, required)
	}, slog.String("module", module), slog.String("required", required.String()))
}

// RequireSettingsAction ensures the current user may perform a settings action.
func (m Middleware) RequireSettingsAction(action string) func(http.Handler) http.Handler {
	action = strings.TrimSpace(action)
	return m.guard("rbac require settings action", func(r *http.Request, userID string) bool {
		return m.Service.CanAccessSettingsAction(r.Context(), userID, action)
	}, slog.String("action", action))
}

// Identify copies the identity header into the request context.
func (m Middleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(m.header())); id != "" {
			r = r.WithContext(ContextWithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) guard(msg string, allow func(*http.Request, string) bool, attrs ...any) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			if !allow(r, userID) {
				if m.Logger != nil {
					args := append([]any{slog.String("user_id", userID)}, attrs...)
					m.Logger.Info(msg+" denied", args...)
				}
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (string, bool) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		return id, true
	}
	raw := strings.TrimSpace(r.Header.Get(m.header()))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func (m Middleware) header() string {
	if m.UserIDHeader == "" {
		return DefaultUserIDHeader
	}
	return m.UserIDHeader
}
