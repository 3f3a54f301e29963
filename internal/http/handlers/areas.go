package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/http/authn"
	"github.com/medportal/medportal/internal/http/viewmodels"
	"github.com/medportal/medportal/internal/http/views"
)

var areaDescriptions = map[access.AreaPath]string{
	access.AreaPatientDashboard:    "Upcoming appointments, recent results and messages from your care team.",
	access.AreaPatientAppointments: "Book, move or cancel appointments.",
	access.AreaPatientRecords:      "Your medical records, prescriptions and test results.",
	access.AreaDoctorDashboard:     "Today's appointments and patients waiting for review.",
	access.AreaDoctorPatients:      "Patients under your care.",
	access.AreaDoctorSchedule:      "Your working hours and booked slots.",
	access.AreaAdminDashboard:      "Portal activity at a glance.",
	access.AreaAdminDoctors:        "Doctor accounts, specialties and availability.",
}

// HandleHome sends signed-in users to their own area and shows the landing
// page to everyone else.
func (h *Handlers) HandleHome(c *echo.Context) error {
	if principal, ok := authn.PrincipalFromContext(c); ok {
		return authn.Redirect(c, h.Guard.Resolver().CanonicalRoute(&principal))
	}
	return h.RenderComponent(c, views.HomePage(viewmodels.HomeViewData{
		Layout:        h.LayoutData(c, "Welcome"),
		SignupEnabled: h.Cfg.SignupEnabled,
	}))
}

// HandleArea serves the landing page of an area.
func (h *Handlers) HandleArea(path access.AreaPath) echo.HandlerFunc {
	return func(c *echo.Context) error {
		area, ok := h.Guard.Table().Area(path)
		if !ok {
			return RenderNotFound(c)
		}

		data := viewmodels.AreaViewData{
			Layout:      h.LayoutData(c, area.Title),
			Area:        string(area.Path),
			Heading:     area.Title,
			Description: areaDescriptions[area.Path],
		}
		if principal, ok := authn.PrincipalFromContext(c); ok {
			if role, ok := principal.PrimaryRole(); ok {
				data.RoleLabel = views.Humanize(role.String())
			}
		}
		return h.RenderComponent(c, views.AreaPage(data))
	}
}

func (h *Handlers) HandleAccessDenied(c *echo.Context) error {
	return h.RenderAccessDenied(c, access.Deny(parseReason(c.QueryParam("reason"))))
}

// RenderAccessDenied renders the access-denied page for d with status 403.
func (h *Handlers) RenderAccessDenied(c *echo.Context, d access.Decision) error {
	var p *auth.Principal
	if principal, ok := authn.PrincipalFromContext(c); ok {
		p = &principal
	}

	view := access.NewDeniedView(h.Guard, d, p)
	homeText := "Return to my dashboard"
	if !view.SignedIn {
		homeText = "Sign in"
	}
	data := viewmodels.DeniedViewData{
		Layout:   h.LayoutData(c, view.Title),
		Title:    view.Title,
		Message:  view.Message,
		Reason:   string(view.Reason),
		HomeHref: view.HomeHref,
		HomeText: homeText,
		SignedIn: view.SignedIn,
	}
	return h.renderComponentStatus(c, http.StatusForbidden, views.AccessDeniedPage(data))
}

func parseReason(raw string) access.Reason {
	switch r := access.Reason(strings.ToLower(strings.TrimSpace(raw))); r {
	case access.ReasonRedirectLoop, access.ReasonRedirectDisabled, access.ReasonUnknownArea:
		return r
	default:
		return access.ReasonNone
	}
}
