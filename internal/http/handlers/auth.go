package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/auth/providers"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/http/viewmodels"
	"github.com/medportal/medportal/internal/http/views"
	"github.com/medportal/medportal/internal/metrics"
)

const invalidCredentialsMessage = "Invalid email or password."

func (h *Handlers) HandleLoginGet(c *echo.Context) error {
	if principal, ok := authn.PrincipalFromContext(c); ok {
		return authn.Redirect(c, h.Guard.Resolver().CanonicalRoute(&principal))
	}

	data := viewmodels.LoginViewData{
		CSRFToken:     csrfToken(c),
		Next:          authn.SanitizeNext(c.QueryParam("next")),
		SignupEnabled: h.Cfg.SignupEnabled,
		Toast:         popFlashToast(c),
	}
	return h.RenderComponent(c, views.LoginPage(data))
}

func (h *Handlers) HandleLoginPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	ctx := c.Request().Context()
	email := auth.NormalizeEmail(c.FormValue("email"))
	password := c.FormValue("password")
	next := authn.SanitizeNext(c.FormValue("next"))

	data := viewmodels.LoginViewData{
		CSRFToken:     csrfToken(c),
		Email:         email,
		Next:          next,
		SignupEnabled: h.Cfg.SignupEnabled,
	}

	if email == "" || strings.TrimSpace(password) == "" {
		metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodPassword, "invalid").Inc()
		data.ErrorMessage = invalidCredentialsMessage
		return h.RenderComponent(c, views.LoginPage(data))
	}

	principal, err := providers.NewPasswordProvider(h.Q).Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodPassword, "invalid").Inc()
			data.ErrorMessage = invalidCredentialsMessage
			return h.RenderComponent(c, views.LoginPage(data))
		}
		metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodPassword, "error").Inc()
		return err
	}

	if err := h.startSession(c, principal); err != nil {
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodPassword, "success").Inc()

	if err := h.Q.UpdateUserLoginMeta(ctx, db.UpdateUserLoginMetaParams{
		ID:          principal.ID,
		LastLoginAt: time.Now(),
		LastLoginIP: strings.TrimSpace(c.RealIP()),
	}); err != nil {
		c.Logger().Warn("record login failed", "principal_id", principal.ID, "error", err)
	}

	return authn.Redirect(c, authn.LandingRoute(h.Guard, &principal, next))
}

func (h *Handlers) HandleSignupGet(c *echo.Context) error {
	if !h.Cfg.SignupEnabled {
		return RenderNotFound(c)
	}
	if principal, ok := authn.PrincipalFromContext(c); ok {
		return authn.Redirect(c, h.Guard.Resolver().CanonicalRoute(&principal))
	}

	return h.RenderComponent(c, views.SignupPage(viewmodels.SignupViewData{
		CSRFToken: csrfToken(c),
		Toast:     popFlashToast(c),
	}))
}

func (h *Handlers) HandleSignupPost(c *echo.Context) error {
	if !h.Cfg.SignupEnabled {
		return RenderNotFound(c)
	}
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	reg := providers.Registration{
		Email:    auth.NormalizeEmail(c.FormValue("email")),
		Name:     strings.TrimSpace(c.FormValue("name")),
		Phone:    strings.TrimSpace(c.FormValue("phone")),
		Password: c.FormValue("password"),
	}
	data := viewmodels.SignupViewData{
		CSRFToken: csrfToken(c),
		Email:     reg.Email,
		Name:      reg.Name,
		Phone:     reg.Phone,
	}

	switch {
	case reg.Email == "":
		data.ErrorMessage = "Provide an email address."
	case reg.Name == "":
		data.ErrorMessage = "Provide your full name."
	case reg.Password != c.FormValue("confirm_password"):
		data.ErrorMessage = "Passwords do not match."
	}
	if data.ErrorMessage != "" {
		metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodSignup, "invalid").Inc()
		return h.RenderComponent(c, views.SignupPage(data))
	}

	principal, err := providers.NewPasswordProvider(h.Q).Register(c.Request().Context(), reg)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordTooShort):
			data.ErrorMessage = "Use at least 8 characters for your password."
		case errors.Is(err, auth.ErrEmailTaken):
			data.ErrorMessage = "An account with that email address already exists."
		case errors.Is(err, auth.ErrInvalidCredentials):
			data.ErrorMessage = "Provide an email address."
		default:
			metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodSignup, "error").Inc()
			return err
		}
		metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodSignup, "invalid").Inc()
		return h.RenderComponent(c, views.SignupPage(data))
	}

	if err := h.startSession(c, principal); err != nil {
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(auth.MethodSignup, "success").Inc()

	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    "Welcome to MedPortal",
	})
	return authn.Redirect(c, authn.LandingRoute(h.Guard, &principal, ""))
}

func (h *Handlers) HandleLogoutPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	ctx := c.Request().Context()
	if err := authn.StoreFromContext(c).Clear(ctx); err != nil {
		return err
	}
	if err := h.Sessions.Destroy(ctx); err != nil {
		return err
	}
	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    "Signed out",
	})
	return authn.Redirect(c, h.Guard.Table().Route(h.Guard.Table().Login()))
}

// startSession rotates the session token and stores the new principal.
func (h *Handlers) startSession(c *echo.Context, principal auth.Principal) error {
	ctx := c.Request().Context()
	if err := h.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	return authn.StoreFromContext(c).SetPrincipal(ctx, principal)
}
