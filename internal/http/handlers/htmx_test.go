package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
)

func newTestContext(method, target string) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func varyTokens(rec *httptest.ResponseRecorder) map[string]int {
	out := make(map[string]int)
	for _, line := range rec.Header().Values(echo.HeaderVary) {
		for _, token := range strings.Split(line, ",") {
			if token = strings.ToLower(strings.TrimSpace(token)); token != "" {
				out[token]++
			}
		}
	}
	return out
}

// assertRedirect checks a redirect in the shape the request asked for:
// HX-Redirect with 200 for htmx, 303 otherwise, varying on HX-Request.
func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, hx bool, want string) {
	t.Helper()

	if hx {
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Header().Get("HX-Redirect"); got != want {
			t.Fatalf("HX-Redirect = %q, want %q", got, want)
		}
		if got := rec.Header().Get("Location"); got != "" {
			t.Fatalf("Location = %q on an htmx response", got)
		}
	} else {
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
		}
		if got := rec.Header().Get("Location"); got != want {
			t.Fatalf("Location = %q, want %q", got, want)
		}
	}
	if vary := varyTokens(rec); vary["hx-request"] != 1 {
		t.Fatalf("Vary = %v, want hx-request once", vary)
	}
}

func TestRedirectsVaryOnHXRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
		run  func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder
	}{
		{
			name: "anonymous_gate",
			want: "/login?next=%2Fadmin%2Fdashboard",
			run: func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder {
				c, rec := newTestContext(http.MethodGet, "/admin/dashboard")
				setHX(c, hx)
				withSession(t, h, c, nil)
				if err := throughGate(h, access.AreaAdminDashboard, h.HandleArea(access.AreaAdminDashboard))(c); err != nil {
					t.Fatalf("gate error = %v", err)
				}
				return rec
			},
		},
		{
			name: "cross_role_gate",
			want: "/patient/dashboard",
			run: func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder {
				c, rec := newTestContext(http.MethodGet, "/doctor/schedule")
				setHX(c, hx)
				withSession(t, h, c, &auth.Principal{ID: "p", Roles: []auth.Role{auth.RolePatient}})
				if err := throughGate(h, access.AreaDoctorSchedule, h.HandleArea(access.AreaDoctorSchedule))(c); err != nil {
					t.Fatalf("gate error = %v", err)
				}
				return rec
			},
		},
		{
			name: "home",
			want: "/doctor/dashboard",
			run: func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder {
				c, rec := newTestContext(http.MethodGet, "/")
				setHX(c, hx)
				withSession(t, h, c, &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}})
				if err := h.HandleHome(c); err != nil {
					t.Fatalf("HandleHome() error = %v", err)
				}
				return rec
			},
		},
		{
			name: "login_post",
			want: "/admin/dashboard",
			run: func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder {
				c, rec := newFormContext("/login", url.Values{"email": {"root@example.com"}, "password": {testPassword}})
				setHX(c, hx)
				withSession(t, h, c, nil)
				if err := h.HandleLoginPost(c); err != nil {
					t.Fatalf("HandleLoginPost() error = %v", err)
				}
				return rec
			},
		},
		{
			name: "logout",
			want: "/login",
			run: func(t *testing.T, h *Handlers, hx bool) *httptest.ResponseRecorder {
				c, rec := newTestContext(http.MethodPost, "/logout")
				setHX(c, hx)
				store := withSession(t, h, c, &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}})
				if err := h.HandleLogoutPost(c); err != nil {
					t.Fatalf("HandleLogoutPost() error = %v", err)
				}
				if p := store.Current(); p != nil {
					t.Fatalf("principal = %+v after logout", p)
				}
				return rec
			},
		},
	}

	for _, tt := range tests {
		for _, hx := range []bool{false, true} {
			name := tt.name
			if hx {
				name += "/htmx"
			}
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				h, users := newTestHandlers(t)
				addUser(t, users, "root@example.com", auth.RoleAdmin)
				rec := tt.run(t, h, hx)
				assertRedirect(t, rec, hx, tt.want)
			})
		}
	}
}

func TestGateDeniedPageDoesNotRedirect(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)
	c, rec := newTestContext(http.MethodGet, "/patient/records")
	setHX(c, true)
	withSession(t, h, c, &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}})

	if err := throughGate(h, access.AreaPatientRecords, h.HandleArea(access.AreaPatientRecords))(c); err != nil {
		t.Fatalf("gate error = %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "" {
		t.Fatalf("HX-Redirect = %q on a denied page", got)
	}
}

func setHX(c *echo.Context, hx bool) {
	if hx {
		c.Request().Header.Set("HX-Request", "true")
	}
}
