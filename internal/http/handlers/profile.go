package handlers

import (
	"errors"
	"strings"

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

func (h *Handlers) HandleProfileGet(c *echo.Context) error {
	principal, ok := authn.PrincipalFromContext(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	return h.renderProfilePage(c, principal, viewmodels.ProfileForm{
		Name:  principal.Name,
		Phone: principal.Phone,
	}, nil)
}

// HandleProfilePost saves the profile and replaces the session principal
// with the stored account.
func (h *Handlers) HandleProfilePost(c *echo.Context) error {
	principal, ok := authn.PrincipalFromContext(c)
	if !ok {
		return echo.ErrUnauthorized
	}

	ctx := c.Request().Context()
	store := authn.StoreFromContext(c)
	form := viewmodels.ProfileForm{
		Name:  strings.TrimSpace(c.FormValue("name")),
		Phone: strings.TrimSpace(c.FormValue("phone")),
	}
	if form.Name == "" {
		return h.renderProfilePage(c, principal, form, &viewmodels.Alert{
			Title:       "Name required",
			Message:     "Provide your full name.",
			Destructive: true,
		})
	}

	user, err := h.Q.UpdateUserProfile(ctx, db.UpdateUserProfileParams{
		ID:    principal.ID,
		Name:  form.Name,
		Phone: form.Phone,
	})
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return h.RenderError(c, err)
		}
		if err := store.Clear(ctx); err != nil {
			return h.RenderError(c, err)
		}
		if route, ok := authn.PendingNavigation(c); ok {
			return authn.Redirect(c, route)
		}
		return authn.Redirect(c, h.Guard.Table().Route(h.Guard.Table().Login()))
	}

	if err := store.SetPrincipal(ctx, providers.PrincipalFromUser(user, principal.Method)); err != nil {
		return h.RenderError(c, err)
	}
	if route, ok := authn.PendingNavigation(c); ok {
		return authn.Redirect(c, route)
	}

	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    "Profile updated",
	})
	return authn.Redirect(c, h.Guard.Table().Route(access.AreaPatientProfile))
}

func (h *Handlers) renderProfilePage(c *echo.Context, principal auth.Principal, form viewmodels.ProfileForm, alert *viewmodels.Alert) error {
	return h.RenderComponent(c, views.ProfilePage(viewmodels.ProfileViewData{
		Layout: h.LayoutData(c, "Profile"),
		Email:  principal.Email,
		Roles:  auth.RoleStrings(principal.Roles),
		Form:   form,
		Alert:  alert,
	}))
}
