package authn

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/db"
	"github.com/medportal/medportal/internal/db/dbtest"
	"github.com/medportal/medportal/internal/session"
)

func TestSanitizeNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace", in: "   ", want: ""},
		{name: "root", in: "/", want: ""},
		{name: "ok_path", in: "/patient/records", want: "/patient/records"},
		{name: "ok_path_query", in: "/doctor/schedule?day=mon", want: "/doctor/schedule?day=mon"},
		{name: "root_query", in: "/?foo=bar", want: ""},
		{name: "absolute_url", in: "https://evil.example/", want: ""},
		{name: "protocol_relative", in: "//evil.example/", want: ""},
		{name: "triple_slash", in: "///evil.example/", want: ""},
		{name: "backslash", in: "/\\evil.example/", want: ""},
		{name: "encoded_slash", in: "/%2f%2fevil.example/", want: ""},
		{name: "encoded_backslash", in: "/%5cevil.example/", want: ""},
		{name: "login_path", in: "/login", want: ""},
		{name: "login_subpath", in: "/login/reset", want: ""},
		{name: "signup_path", in: "/signup", want: ""},
		{name: "logout_path", in: "/logout", want: ""},
		{name: "newline", in: "/\n/evil", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeNext(tt.in); got != tt.want {
				t.Fatalf("SanitizeNext(%q)=%q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func newTestContext(method, target string) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRefreshPrincipal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := dbtest.NewDirectory()
	doc := users.Add(db.User{Email: "doc@example.com", Name: "Dr Who", Roles: []string{"doctor"}, IsActive: true})
	gone := users.Add(db.User{Email: "gone@example.com", Roles: []string{"patient"}, IsActive: true})
	users.SetActive(gone.ID, false)

	t.Run("promoted", func(t *testing.T) {
		t.Parallel()
		store := session.Open(ctx, session.NewMemoryPersister(), nil)
		if err := store.SetPrincipal(ctx, auth.Principal{ID: doc.ID, Email: doc.Email, Name: doc.Name, Roles: []auth.Role{auth.RolePatient}, Method: auth.MethodPassword}); err != nil {
			t.Fatalf("SetPrincipal() error = %v", err)
		}
		if err := RefreshPrincipal(ctx, store, users); err != nil {
			t.Fatalf("RefreshPrincipal() error = %v", err)
		}
		p := store.Current()
		if p == nil || !p.HasRole(auth.RoleDoctor) || p.HasRole(auth.RolePatient) {
			t.Fatalf("principal = %+v, want doctor only", p)
		}
		if p.Method != auth.MethodPassword {
			t.Fatalf("method = %q, want %q", p.Method, auth.MethodPassword)
		}
	})

	t.Run("unchanged keeps version", func(t *testing.T) {
		t.Parallel()
		store := session.Open(ctx, session.NewMemoryPersister(), nil)
		if err := store.SetPrincipal(ctx, auth.Principal{ID: doc.ID, Email: doc.Email, Name: doc.Name, Roles: []auth.Role{auth.RoleDoctor}, Method: auth.MethodPassword}); err != nil {
			t.Fatalf("SetPrincipal() error = %v", err)
		}
		_, before := store.Snapshot()
		if err := RefreshPrincipal(ctx, store, users); err != nil {
			t.Fatalf("RefreshPrincipal() error = %v", err)
		}
		if _, after := store.Snapshot(); after != before {
			t.Fatalf("version = %d, want %d", after, before)
		}
	})

	t.Run("inactive cleared", func(t *testing.T) {
		t.Parallel()
		store := session.Open(ctx, session.NewMemoryPersister(), nil)
		if err := store.SetPrincipal(ctx, auth.Principal{ID: gone.ID, Roles: []auth.Role{auth.RolePatient}}); err != nil {
			t.Fatalf("SetPrincipal() error = %v", err)
		}
		if err := RefreshPrincipal(ctx, store, users); err != nil {
			t.Fatalf("RefreshPrincipal() error = %v", err)
		}
		if p := store.Current(); p != nil {
			t.Fatalf("principal = %+v, want nil", p)
		}
	})

	t.Run("missing cleared", func(t *testing.T) {
		t.Parallel()
		store := session.Open(ctx, session.NewMemoryPersister(), nil)
		if err := store.SetPrincipal(ctx, auth.Principal{ID: "00000000-0000-0000-0000-000000000000", Roles: []auth.Role{auth.RoleAdmin}}); err != nil {
			t.Fatalf("SetPrincipal() error = %v", err)
		}
		if err := RefreshPrincipal(ctx, store, users); err != nil {
			t.Fatalf("RefreshPrincipal() error = %v", err)
		}
		if p := store.Current(); p != nil {
			t.Fatalf("principal = %+v, want nil", p)
		}
	})
}

func runGate(t *testing.T, gate *Gate, area access.AreaPath, target string, p *auth.Principal, handler echo.HandlerFunc) (*echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	c, rec := newTestContext(http.MethodGet, target)
	store := session.Open(c.Request().Context(), session.NewMemoryPersister(), nil)
	if p != nil {
		if err := store.SetPrincipal(c.Request().Context(), *p); err != nil {
			t.Fatalf("SetPrincipal() error = %v", err)
		}
	}
	c.Set(ContextKeyStore, store)

	if handler == nil {
		handler = func(c *echo.Context) error { return c.String(http.StatusOK, "area") }
	}
	if err := gate.Area(area)(handler)(c); err != nil {
		t.Fatalf("gate error = %v", err)
	}
	return c, rec
}

func TestGateArea(t *testing.T) {
	t.Parallel()

	guard := access.NewGuard(access.DefaultTable())
	admin := &auth.Principal{ID: "a", Roles: []auth.Role{auth.RoleAdmin}}
	doctor := &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}}

	tests := []struct {
		name         string
		area         access.AreaPath
		target       string
		principal    *auth.Principal
		wantStatus   int
		wantLocation string
	}{
		{name: "allowed", area: access.AreaDoctorDashboard, target: "/doctor/dashboard", principal: doctor, wantStatus: http.StatusOK},
		{name: "public anonymous", area: access.AreaLogin, target: "/login", wantStatus: http.StatusOK},
		{name: "anonymous to login with next", area: access.AreaPatientDashboard, target: "/patient/dashboard?tab=1", wantStatus: http.StatusSeeOther, wantLocation: "/login?next=%2Fpatient%2Fdashboard%3Ftab%3D1"},
		{name: "admin to own dashboard", area: access.AreaPatientDashboard, target: "/patient/dashboard", principal: admin, wantStatus: http.StatusSeeOther, wantLocation: "/admin/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gate := &Gate{Guard: guard}
			_, rec := runGate(t, gate, tt.area, tt.target, tt.principal, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Fatalf("Location = %q, want %q", got, tt.wantLocation)
			}
			wantVary := ""
			if tt.wantLocation != "" {
				wantVary = "HX-Request"
			}
			if got := rec.Header().Get(echo.HeaderVary); got != wantVary {
				t.Fatalf("Vary = %q, want %q", got, wantVary)
			}
		})
	}
}

func TestGateAreaDeniedRendersPage(t *testing.T) {
	t.Parallel()

	var got access.Decision
	gate := &Gate{
		Guard: access.NewGuard(access.DefaultTable()),
		Denied: func(c *echo.Context, d access.Decision) error {
			got = d
			return c.String(http.StatusForbidden, "denied")
		},
	}
	doctor := &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}}
	_, rec := runGate(t, gate, access.AreaPatientRecords, "/patient/records", doctor, nil)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
	if got.Outcome != access.OutcomeDeny || got.Reason != access.ReasonRedirectDisabled {
		t.Fatalf("decision = %v, want deny(redirect-disabled)", got)
	}
}

func TestGateAreaHTMXRedirect(t *testing.T) {
	t.Parallel()

	gate := &Gate{Guard: access.NewGuard(access.DefaultTable())}
	c, rec := newTestContext(http.MethodGet, "/admin/users")
	c.Request().Header.Set("HX-Request", "true")
	store := session.Open(c.Request().Context(), nil, nil)
	if err := store.SetPrincipal(c.Request().Context(), auth.Principal{ID: "p", Roles: []auth.Role{auth.RolePatient}}); err != nil {
		t.Fatalf("SetPrincipal() error = %v", err)
	}
	c.Set(ContextKeyStore, store)

	if err := gate.Area(access.AreaAdminUsers)(func(c *echo.Context) error {
		t.Fatal("handler ran for a redirected request")
		return nil
	})(c); err != nil {
		t.Fatalf("gate error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/patient/dashboard" {
		t.Fatalf("HX-Redirect = %q, want %q", got, "/patient/dashboard")
	}
	if got := rec.Header().Get(echo.HeaderVary); got != "HX-Request" {
		t.Fatalf("Vary = %q, want HX-Request", got)
	}
}

func TestGateAreaAPIUnauthorized(t *testing.T) {
	t.Parallel()

	gate := &Gate{Guard: access.NewGuard(access.DefaultTable())}
	_, rec := runGate(t, gate, access.AreaAdminUsers, "/api/admin/users", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGateAreaRoleChangeDuringHandler(t *testing.T) {
	t.Parallel()

	gate := &Gate{Guard: access.NewGuard(access.DefaultTable())}
	admin := &auth.Principal{ID: "a", Roles: []auth.Role{auth.RoleAdmin}}

	var pending string
	var ok bool
	handler := func(c *echo.Context) error {
		store := StoreFromContext(c)
		demoted := store.Current()
		demoted.Roles = []auth.Role{auth.RoleDoctor}
		if err := store.SetPrincipal(c.Request().Context(), *demoted); err != nil {
			return err
		}
		pending, ok = PendingNavigation(c)
		return c.NoContent(http.StatusNoContent)
	}
	runGate(t, gate, access.AreaAdminUsers, "/admin/users", admin, handler)

	if !ok || pending != "/doctor/dashboard" {
		t.Fatalf("PendingNavigation() = %q, %v; want /doctor/dashboard, true", pending, ok)
	}
}

func TestGateAreaNoNavigationWhenStillAllowed(t *testing.T) {
	t.Parallel()

	gate := &Gate{Guard: access.NewGuard(access.DefaultTable())}
	patient := &auth.Principal{ID: "p", Name: "Pat", Roles: []auth.Role{auth.RolePatient}}

	var ok bool
	handler := func(c *echo.Context) error {
		store := StoreFromContext(c)
		updated := store.Current()
		updated.Name = "Patricia"
		if err := store.SetPrincipal(c.Request().Context(), *updated); err != nil {
			return err
		}
		_, ok = PendingNavigation(c)
		return c.NoContent(http.StatusNoContent)
	}
	runGate(t, gate, access.AreaPatientProfile, "/patient/profile", patient, handler)

	if ok {
		t.Fatal("PendingNavigation() reported a navigation for an allowed principal")
	}
}

func TestStoreFromContextWithoutLoadSession(t *testing.T) {
	t.Parallel()

	c, _ := newTestContext(http.MethodGet, "/")
	if _, ok := PrincipalFromContext(c); ok {
		t.Fatal("PrincipalFromContext() reported a principal without a session")
	}
	if StoreFromContext(c) != StoreFromContext(c) {
		t.Fatal("StoreFromContext() returned different stores for one request")
	}
}

func TestLandingRoute(t *testing.T) {
	t.Parallel()

	guard := access.NewGuard(access.DefaultTable())
	doctor := &auth.Principal{ID: "d", Roles: []auth.Role{auth.RoleDoctor}}

	tests := []struct {
		name string
		p    *auth.Principal
		next string
		want string
	}{
		{name: "no next", p: doctor, want: "/doctor/dashboard"},
		{name: "allowed next", p: doctor, next: "/doctor/schedule?day=mon", want: "/doctor/schedule?day=mon"},
		{name: "foreign next", p: doctor, next: "/admin/users", want: "/doctor/dashboard"},
		{name: "public next", p: doctor, next: "/access-denied", want: "/doctor/dashboard"},
		{name: "unknown next", p: doctor, next: "/nowhere", want: "/doctor/dashboard"},
		{name: "external next", p: doctor, next: "https://evil.example/", want: "/doctor/dashboard"},
		{name: "roleless", p: &auth.Principal{ID: "x"}, next: "/patient/records", want: "/patient/records"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := LandingRoute(guard, tt.p, tt.next); got != tt.want {
				t.Fatalf("LandingRoute(%q) = %q, want %q", tt.next, got, tt.want)
			}
		})
	}
}

func TestNavigatorRejectsUnroutedArea(t *testing.T) {
	t.Parallel()

	nav := NewNavigator(access.DefaultTable())
	if err := nav.NavigateTo(context.Background(), "nowhere"); err == nil {
		t.Fatal("NavigateTo() error = nil, want error")
	}
	if _, ok := nav.Pending(); ok {
		t.Fatal("Pending() reported a navigation after a failed NavigateTo")
	}
	if err := nav.NavigateTo(context.Background(), access.AreaAdminDashboard); err != nil {
		t.Fatalf("NavigateTo() error = %v", err)
	}
	if route, ok := nav.PendingRoute(); !ok || route != "/admin/dashboard" {
		t.Fatalf("PendingRoute() = %q, %v", route, ok)
	}
}

func TestRedirectVary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		existing []string
		hx       bool
		want     []string
	}{
		{name: "plain", want: []string{"HX-Request"}},
		{name: "htmx", hx: true, want: []string{"HX-Request"}},
		{name: "keeps_existing", existing: []string{"Accept-Encoding"}, want: []string{"Accept-Encoding", "HX-Request"}},
		{name: "no_duplicate", existing: []string{"Accept-Encoding, hx-request"}, want: []string{"Accept-Encoding, hx-request"}},
		{name: "wildcard", existing: []string{"*"}, want: []string{"*"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, rec := newTestContext(http.MethodGet, "/")
			if tt.hx {
				c.Request().Header.Set("HX-Request", "true")
			}
			for _, v := range tt.existing {
				c.Response().Header().Add(echo.HeaderVary, v)
			}
			if err := Redirect(c, "/patient/dashboard"); err != nil {
				t.Fatalf("Redirect() error = %v", err)
			}
			got := rec.Header().Values(echo.HeaderVary)
			if len(got) != len(tt.want) {
				t.Fatalf("Vary = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Vary = %q, want %q", got, tt.want)
				}
			}
		})
	}
}

func TestGateAreaDenyDuringHandlerCarriesReason(t *testing.T) {
	t.Parallel()

	gate := &Gate{Guard: access.NewGuard(access.DefaultTable())}
	patient := &auth.Principal{ID: "p", Roles: []auth.Role{auth.RolePatient}}

	var pending string
	var ok bool
	handler := func(c *echo.Context) error {
		store := StoreFromContext(c)
		changed := store.Current()
		changed.Roles = []auth.Role{auth.RoleDoctor}
		if err := store.SetPrincipal(c.Request().Context(), *changed); err != nil {
			return err
		}
		pending, ok = PendingNavigation(c)
		return c.NoContent(http.StatusNoContent)
	}
	runGate(t, gate, access.AreaPatientRecords, "/patient/records", patient, handler)

	if want := "/access-denied?reason=redirect-disabled"; !ok || pending != want {
		t.Fatalf("PendingNavigation() = %q, %v; want %q, true", pending, ok, want)
	}
}

func TestNavigatorDeniedReason(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	nav := NewNavigator(access.DefaultTable())
	if err := nav.NavigateToDenied(ctx, access.AreaAccessDenied, access.ReasonRedirectLoop); err != nil {
		t.Fatalf("NavigateToDenied() error = %v", err)
	}
	if route, ok := nav.PendingRoute(); !ok || route != "/access-denied?reason=redirect-loop" {
		t.Fatalf("PendingRoute() = %q, %v", route, ok)
	}

	// A later plain navigation drops the reason.
	if err := nav.NavigateTo(ctx, access.AreaDoctorDashboard); err != nil {
		t.Fatalf("NavigateTo() error = %v", err)
	}
	if route, ok := nav.PendingRoute(); !ok || route != "/doctor/dashboard" {
		t.Fatalf("PendingRoute() = %q, %v", route, ok)
	}
}

func TestLoadSessionDropsCorruptState(t *testing.T) {
	t.Parallel()

	sessions := scs.New()
	ctx, err := sessions.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("sessions.Load() error = %v", err)
	}
	sessions.Put(ctx, session.DefaultSessionKey, "{{{")

	var logs bytes.Buffer
	e := echo.New()
	e.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	mw := LoadSession(sessions, dbtest.NewDirectory())
	for i := range 2 {
		req := httptest.NewRequest(http.MethodGet, "/patient/dashboard", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if err := mw(func(c *echo.Context) error {
			if _, ok := PrincipalFromContext(c); ok {
				t.Fatal("corrupt session produced a principal")
			}
			return c.NoContent(http.StatusNoContent)
		})(c); err != nil {
			t.Fatalf("request %d: LoadSession error = %v", i, err)
		}
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}

	if sessions.Exists(ctx, session.DefaultSessionKey) {
		t.Fatal("corrupt principal still stored in the session")
	}
	if got := bytes.Count(logs.Bytes(), []byte("discarding corrupt session state")); got != 1 {
		t.Fatalf("corrupt state logged %d times, want once:\n%s", got, logs.String())
	}
}
