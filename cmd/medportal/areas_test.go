package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
)

func TestPrintAccessTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if n := printAccessTable(&out, access.DefaultTable()); n != 0 {
		t.Fatalf("printAccessTable() problems = %d, want 0", n)
	}

	got := out.String()
	for _, want := range []string{"AREA", "/patient/records", "patient|no-role", "deny", "LANDS ON", "admin-dashboard"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "problems:") {
		t.Fatalf("unexpected problems section:\n%s", got)
	}
}

func TestPrintAccessTableReportsProblems(t *testing.T) {
	t.Parallel()

	cfg := access.DefaultConfig()
	cfg.Defaults[auth.RoleDoctor] = access.AreaAdminDashboard

	var out bytes.Buffer
	if n := printAccessTable(&out, access.MustTable(cfg)); n != 1 {
		t.Fatalf("printAccessTable() problems = %d, want 1", n)
	}
	if !strings.Contains(out.String(), "problems:") {
		t.Fatalf("output missing problems section:\n%s", out.String())
	}
}
