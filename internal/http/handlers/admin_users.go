package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/auth/providers"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/http/viewmodels"
	"github.com/medportal/medportal/internal/http/views"
)

const adminUsersPerPage = 25

func (h *Handlers) HandleAdminUsers(c *echo.Context) error {
	return h.renderAdminUsersPage(c, nil)
}

// HandleAdminUserRoles replaces a user's roles. Other users pick the change
// up on their next request; a change to the caller's own roles is applied to
// the current session straight away.
func (h *Handlers) HandleAdminUserRoles(c *echo.Context) error {
	req := c.Request()
	ctx := req.Context()
	if err := req.ParseForm(); err != nil {
		return h.renderAdminUsersPage(c, &viewmodels.Alert{
			Title:       "Invalid request",
			Message:     "The form could not be read.",
			Destructive: true,
		})
	}
	id := strings.TrimSpace(req.PostForm.Get("id"))
	roles := auth.NormalizeRoles(auth.ParseRoles(req.PostForm["roles"]))

	if id == "" {
		return h.renderAdminUsersPage(c, &viewmodels.Alert{
			Title:       "User required",
			Message:     "Choose a user to update.",
			Destructive: true,
		})
	}

	target, err := h.Q.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return h.renderAdminUsersPage(c, &viewmodels.Alert{
				Title:       "User not found",
				Message:     "The user no longer exists.",
				Destructive: true,
			})
		}
		return h.RenderError(c, err)
	}

	user, err := h.Q.SetUserRolesKeepingAdmin(ctx, db.SetUserRolesParams{
		ID:    target.ID,
		Roles: auth.RoleStrings(roles),
	})
	if err != nil {
		if errors.Is(err, db.ErrLastAdmin) {
			return h.renderAdminUsersPage(c, &viewmodels.Alert{
				Title:       "Last admin",
				Message:     "At least one active admin is required.",
				Destructive: true,
			})
		}
		return h.RenderError(c, err)
	}
	c.Logger().Info("user roles updated", "user_id", user.ID, "roles", user.Roles)

	if principal, ok := authn.PrincipalFromContext(c); ok && principal.ID == user.ID {
		if err := authn.StoreFromContext(c).SetPrincipal(ctx, providers.PrincipalFromUser(user, principal.Method)); err != nil {
			return h.RenderError(c, err)
		}
		if route, ok := authn.PendingNavigation(c); ok {
			setFlashToast(c, viewmodels.ToastViewData{
				Category:    "info",
				Title:       "Your roles changed",
				Description: "You were moved to the area for your new role.",
			})
			return authn.Redirect(c, route)
		}
	}

	setFlashToast(c, viewmodels.ToastViewData{
		Category:    "success",
		Title:       "Roles updated",
		Description: user.Email,
	})
	return authn.Redirect(c, h.Guard.Table().Route(access.AreaAdminUsers))
}

func (h *Handlers) renderAdminUsersPage(c *echo.Context, alert *viewmodels.Alert) error {
	ctx := c.Request().Context()
	total, err := h.Q.CountUsers(ctx)
	if err != nil {
		return h.RenderError(c, err)
	}
	activeAdmins, err := h.Q.CountAdmins(ctx)
	if err != nil {
		return h.RenderError(c, err)
	}
	window := newPageWindow(c, total, adminUsersPerPage)
	users, err := h.Q.ListUsers(ctx, window.ListParams())
	if err != nil {
		return h.RenderError(c, err)
	}

	principal, _ := authn.PrincipalFromContext(c)
	items := make([]viewmodels.AdminUsersUserItem, 0, len(users))
	for _, u := range users {
		roles := auth.RoleStrings(auth.NormalizeRoles(auth.ParseRoles(u.Roles)))
		item := viewmodels.AdminUsersUserItem{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Roles:     roles,
			IsActive:  u.IsActive,
			IsSelf:    u.ID == principal.ID,
			LastLogin: "Never",
		}
		item.IsLastAdmin = activeAdmins == 1 && u.IsActive && item.HasRole(string(auth.RoleAdmin))
		if u.LastLoginAt != nil {
			item.LastLogin = u.LastLoginAt.Format("2006-01-02 15:04")
			item.LastLoginTitle = u.LastLoginAt.Format(time.RFC3339)
			if u.LastLoginIP != "" {
				item.LastLoginTitle = fmt.Sprintf("%s from %s", item.LastLoginTitle, u.LastLoginIP)
			}
		}
		items = append(items, item)
	}

	return h.RenderComponent(c, views.AdminUsersPage(viewmodels.AdminUsersViewData{
		Layout:   h.LayoutData(c, "Users"),
		Users:    items,
		HasUsers: len(items) > 0,
		Roles:    auth.RoleStrings(auth.AllRoles()),
		Alert:    alert,
		Pagination: window.View(len(users), h.Guard.Table().Route(access.AreaAdminUsers)),
	}))
}
