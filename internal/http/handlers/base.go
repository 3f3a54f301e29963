// Package handlers contains HTTP handler logic split by domain.
package handlers

import (
	"fmt"
	"net/http"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/config"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/http/viewmodels"
	"github.com/medportal/medportal/internal/http/views"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = "request_id"

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"
)

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Q        db.Directory
	Sessions *scs.SessionManager
	Guard    *access.Guard
}

// LayoutData builds the common layout data for page rendering.
func (h *Handlers) LayoutData(c *echo.Context, title string) viewmodels.LayoutData {
	layout := viewmodels.LayoutData{
		Title:      title,
		CSRFToken:  csrfToken(c),
		HomeHref:   "/",
		Toast:      popFlashToast(c),
		ActivePath: c.Request().URL.Path,
	}

	principal, ok := authn.PrincipalFromContext(c)
	if !ok {
		return layout
	}
	layout.SignedIn = true
	layout.UserEmail = principal.Email
	layout.UserName = principal.Name
	layout.UserRoles = auth.RoleStrings(principal.Roles)
	layout.IsAdmin = principal.IsAdmin()

	if h.Guard != nil {
		layout.HomeHref = h.Guard.Resolver().CanonicalRoute(&principal)
		for _, area := range h.Guard.Reachable(&principal) {
			layout.Nav = append(layout.Nav, viewmodels.NavItem{
				Title:  area.Title,
				Href:   area.Route,
				Group:  areaGroup(area),
				Active: area.Route == layout.ActivePath,
			})
		}
	}
	return layout
}

func areaGroup(area access.Area) string {
	roles := area.Requirement.Roles()
	if len(roles) == 0 {
		return ""
	}
	return views.Humanize(roles[0].String())
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	return h.renderComponentStatus(c, http.StatusOK, component)
}

func (h *Handlers) renderComponentStatus(c *echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(status)
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// HandleHealthz returns a simple health check response.
func (h *Handlers) HandleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func csrfToken(c *echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
