package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/metrics"
)

type principalResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	PrimaryRole string   `json:"primary_role,omitempty"`
}

type sessionResponse struct {
	Authenticated  bool               `json:"authenticated"`
	Principal      *principalResponse `json:"principal,omitempty"`
	CanonicalArea  string             `json:"canonical_area,omitempty"`
	CanonicalRoute string             `json:"canonical_route,omitempty"`
}

type accessResponse struct {
	Area        string `json:"area"`
	Outcome     string `json:"outcome"`
	Target      string `json:"target,omitempty"`
	TargetRoute string `json:"target_route,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// HandleAPISession describes the current session.
func (h *Handlers) HandleAPISession(c *echo.Context) error {
	principal, ok := authn.PrincipalFromContext(c)
	if !ok {
		return c.JSON(http.StatusOK, sessionResponse{})
	}

	resp := sessionResponse{
		Authenticated: true,
		Principal: &principalResponse{
			ID:    principal.ID,
			Email: principal.Email,
			Name:  principal.Name,
			Roles: auth.RoleStrings(principal.Roles),
		},
		CanonicalArea:  string(h.Guard.Resolver().CanonicalArea(&principal)),
		CanonicalRoute: h.Guard.Resolver().CanonicalRoute(&principal),
	}
	if role, ok := principal.PrimaryRole(); ok {
		resp.Principal.PrimaryRole = role.String()
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleAPIAccess reports what the route guard would decide for the current
// session entering ?area= (an area identifier) or ?path= (a route).
func (h *Handlers) HandleAPIAccess(c *echo.Context) error {
	table := h.Guard.Table()
	area := access.AreaPath(strings.TrimSpace(c.QueryParam("area")))
	if area == "" {
		if path := strings.TrimSpace(c.QueryParam("path")); path != "" {
			if a, ok := table.AreaForRoute(path); ok {
				area = a.Path
			} else {
				area = access.AreaPath(path)
			}
		}
	}
	if area == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "area or path is required"})
	}

	var p *auth.Principal
	if principal, ok := authn.PrincipalFromContext(c); ok {
		p = &principal
	}
	d := h.Guard.Evaluate(p, area)

	label := "unknown"
	if _, ok := table.Area(area); ok {
		label = string(area)
	}
	metrics.GuardDecisionsTotal.WithLabelValues("api", label, d.Outcome.String(), string(d.Reason)).Inc()

	resp := accessResponse{
		Area:    string(area),
		Outcome: d.Outcome.String(),
		Reason:  string(d.Reason),
	}
	if d.Target != "" {
		resp.Target = string(d.Target)
		resp.TargetRoute = table.Route(d.Target)
	}
	return c.JSON(http.StatusOK, resp)
}
