package rbac

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-authz/internal/access"
	"github.com/odyssey-erp/odyssey-authz/internal/platform/httpx"
)

// ModuleUsers is the module that gates inspecting other users' permissions.
const ModuleUsers = "users"

// Handler exposes permission lookups as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

type levelView struct {
	Level         access.Level `json:"level"`
	Name          string       `json:"name"`
	Actions       []string     `json:"actions"`
	LegacyActions []string     `json:"legacy_actions"`
}

// checkResult reports a decision. Level is the user's level in Module and
// RequiredLevel is what the check demanded.
type checkResult struct {
	UserID        string       `json:"user_id"`
	Module        string       `json:"module"`
	Action        string       `json:"action,omitempty"`
	Level         access.Level `json:"level"`
	RequiredLevel access.Level `json:"required_level"`
	Allowed       bool         `json:"allowed"`
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.listLevels)
	r.Get("/settings/groups", h.listSettingsGroups)
	r.Route("/me", func(r chi.Router) {
		r.Get("/profile", h.selfHandler(h.showProfile))
		r.Get("/settings", h.selfHandler(h.showSettings))
		r.Get("/legacy", h.selfHandler(h.showLegacyContext))
	})
	r.Route("/users/{userID}", func(r chi.Router) {
		r.Use(h.rbac.RequireAction(ModuleUsers, "view"))
		r.Get("/profile", h.userHandler(h.showProfile))
		r.Get("/check", h.userHandler(h.check))
		r.Get("/modules/{module}/level", h.userHandler(h.showModuleLevel))
		r.Get("/settings", h.userHandler(h.showSettings))
		r.Get("/settings/{action}", h.userHandler(h.checkSettingsAction))
		r.Get("/legacy", h.userHandler(h.showLegacyContext))
	})
}

type userScoped func(w http.ResponseWriter, r *http.Request, userID string)

func (h *Handler) userHandler(fn userScoped) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userID"))
		if userID == "" {
			httpx.RespondError(w, fmt.Errorf("%w: user id required", httpx.ErrValidation))
			return
		}
		fn(w, r, userID)
	}
}

func (h *Handler) selfHandler(fn userScoped) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.rbac.currentUserID(r)
		if !ok {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		fn(w, r, userID)
	}
}

func (h *Handler) listLevels(w http.ResponseWriter, r *http.Request) {
	levels := access.Levels()
	out := make([]levelView, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, levelView{
			Level:         lvl,
			Name:          lvl.String(),
			Actions:       access.ActionsForLevel(lvl),
			LegacyActions: access.LevelActions(lvl),
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) listSettingsGroups(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, access.SettingsGroups())
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request, userID string) {
	httpx.JSON(w, http.StatusOK, h.service.GetPermissionProfile(r.Context(), userID))
}

func (h *Handler) showSettings(w http.ResponseWriter, r *http.Request, userID string) {
	httpx.JSON(w, http.StatusOK, h.service.GetSettingsAccess(r.Context(), userID))
}

func (h *Handler) showLegacyContext(w http.ResponseWriter, r *http.Request, userID string) {
	httpx.JSON(w, http.StatusOK, h.service.GetUserPermissionsContext(r.Context(), userID))
}

func (h *Handler) showModuleLevel(w http.ResponseWriter, r *http.Request, userID string) {
	module := strings.TrimSpace(chi.URLParam(r, "module"))
	lvl := h.service.GetUserModuleLevel(r.Context(), userID, module)
	httpx.JSON(w, http.StatusOK, checkResult{
		UserID:        userID,
		Module:        module,
		Level:         lvl,
		RequiredLevel: access.Read,
		Allowed:       lvl > access.None,
	})
}

// effectiveLevel is the level a check compares against: SuperAdmin for
// super-admins, the module level otherwise.
func (h *Handler) effectiveLevel(r *http.Request, userID, module string) access.Level {
	profile := h.service.GetPermissionProfile(r.Context(), userID)
	if profile.IsSuperAdmin {
		return access.SuperAdmin
	}
	return profile.Level(module)
}

// check answers either ?module=&action= or ?module=&level=.
func (h *Handler) check(w http.ResponseWriter, r *http.Request, userID string) {
	query := r.URL.Query()
	module := strings.TrimSpace(query.Get("module"))
	action := strings.TrimSpace(query.Get("action"))
	rawLevel := strings.TrimSpace(query.Get("level"))
	if module == "" {
		httpx.RespondError(w, fmt.Errorf("%w: module required", httpx.ErrValidation))
		return
	}
	switch {
	case rawLevel != "":
		required, err := access.ParseLevel(rawLevel)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return
		}
		allowed := h.service.HasMinimumLevelForUser(r.Context(), userID, module, required)
		httpx.JSON(w, http.StatusOK, checkResult{
			UserID:        userID,
			Module:        module,
			Level:         h.effectiveLevel(r, userID, module),
			RequiredLevel: required,
			Allowed:       allowed,
		})
	case action != "":
		allowed := h.service.CheckPermissionLevel(r.Context(), userID, module, action)
		httpx.JSON(w, http.StatusOK, checkResult{
			UserID:        userID,
			Module:        module,
			Action:        action,
			Level:         h.effectiveLevel(r, userID, module),
			RequiredLevel: access.MinimumLevelForAction(action),
			Allowed:       allowed,
		})
	default:
		httpx.RespondError(w, fmt.Errorf("%w: action or level required", httpx.ErrValidation))
	}
}

func (h *Handler) checkSettingsAction(w http.ResponseWriter, r *http.Request, userID string) {
	action := strings.TrimSpace(chi.URLParam(r, "action"))
	required, _ := access.RequiredSettingsLevel(action)
	allowed := h.service.CanAccessSettingsAction(r.Context(), userID, action)
	if h.logger != nil && !allowed {
		h.logger.Debug("settings action denied", slog.String("user_id", userID), slog.String("action", action))
	}
	httpx.JSON(w, http.StatusOK, checkResult{
		UserID:        userID,
		Module:        access.SettingsModule,
		Action:        action,
		Level:         h.effectiveLevel(r, userID, access.SettingsModule),
		RequiredLevel: required,
		Allowed:       allowed,
	})
}
