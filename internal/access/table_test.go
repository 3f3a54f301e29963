package access

import (
	"strings"
	"testing"

	"github.com/medportal/medportal/internal/auth"
)

func TestDefaultTableIsConsistent(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	if problems := table.Problems(); len(problems) != 0 {
		t.Fatalf("Problems() = %v", problems)
	}
	for _, role := range auth.AllRoles() {
		if _, ok := table.DefaultArea(role); !ok {
			t.Fatalf("no default area for %s", role)
		}
	}
}

func TestNewTableRejectsStructuralMistakes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*TableConfig)
		wantErr string
	}{
		{
			name: "duplicate_area",
			mutate: func(c *TableConfig) {
				c.Areas = append(c.Areas, Area{Path: AreaHome, Route: "/again", Requirement: RequirePublic()})
			},
			wantErr: "registered twice",
		},
		{
			name: "duplicate_route",
			mutate: func(c *TableConfig) {
				c.Areas = append(c.Areas, Area{Path: "other", Route: "/login", Requirement: RequirePublic()})
			},
			wantErr: "route \"/login\"",
		},
		{
			name: "relative_route",
			mutate: func(c *TableConfig) {
				c.Areas = append(c.Areas, Area{Path: "other", Route: "other", Requirement: RequirePublic()})
			},
			wantErr: "must start with /",
		},
		{
			name:    "dangling_default",
			mutate:  func(c *TableConfig) { c.Defaults[auth.RoleAdmin] = "nowhere" },
			wantErr: "not registered",
		},
		{
			name:    "unknown_role_default",
			mutate:  func(c *TableConfig) { c.Defaults[auth.Role("nurse")] = AreaHome },
			wantErr: "unknown role",
		},
		{
			name:    "protected_login",
			mutate:  func(c *TableConfig) { c.Login = AreaAdminDashboard },
			wantErr: "must be public",
		},
		{
			name:    "missing_fallback",
			mutate:  func(c *TableConfig) { c.Fallback = "" },
			wantErr: "fallback area",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := NewTable(cfg)
			if err == nil {
				t.Fatalf("NewTable() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("NewTable() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestProblemsReportsUnreachableDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Defaults[auth.RoleDoctor] = AreaAdminDashboard
	problems := MustTable(cfg).Problems()
	if len(problems) != 1 || !strings.Contains(problems[0], "doctor") {
		t.Fatalf("Problems() = %v", problems)
	}
}

func TestAreaForRoute(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	tests := []struct {
		route string
		want  AreaPath
		ok    bool
	}{
		{route: "/", want: AreaHome, ok: true},
		{route: "/doctor/dashboard", want: AreaDoctorDashboard, ok: true},
		{route: "/doctor/dashboard/", want: AreaDoctorDashboard, ok: true},
		{route: "/admin/users?page=2", want: AreaAdminUsers, ok: true},
		{route: "/nope", ok: false},
	}
	for _, tt := range tests {
		a, ok := table.AreaForRoute(tt.route)
		if ok != tt.ok || a.Path != tt.want {
			t.Fatalf("AreaForRoute(%q) = (%s, %v), want (%s, %v)", tt.route, a.Path, ok, tt.want, tt.ok)
		}
	}
}

func TestRequirementString(t *testing.T) {
	t.Parallel()

	if got := RequirePublic().String(); got != "public" {
		t.Fatalf("public = %q", got)
	}
	if got := RequireAnyOf(auth.RolePatient, auth.RoleAdmin).IncludeRoleless().String(); got != "admin|patient|no-role" {
		t.Fatalf("any-of = %q", got)
	}
	if got := RequireAnyOf(auth.Role("x")).String(); got != "nobody" {
		t.Fatalf("empty = %q", got)
	}
}
