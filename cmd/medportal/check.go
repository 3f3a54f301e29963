package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/session"
	"github.com/spf13/cobra"
)

type checkOptions struct {
	Roles     string
	Anonymous bool
	Area      string

	// ThenRoles replaces the roles after the first navigation settles, the
	// way an admin edit or profile update would mid-session.
	ThenRoles    string
	ThenRolesSet bool
	ThenSignOut  bool
}

var checkOpts checkOptions

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a navigation attempt offline against the access table.",
	Example: `  medportal check --roles admin --area patient-dashboard
  medportal check --roles admin,doctor --area /admin/users --then-roles doctor
  medportal check --anonymous --area /patient/records`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := checkOpts
		opts.ThenRolesSet = cmd.Flags().Changed("then-roles")
		return runCheck(cmd.Context(), cmd.OutOrStdout(), access.NewGuard(access.DefaultTable()), opts)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkOpts.Roles, "roles", "", "Comma separated roles held by the principal (empty for a role-less account)")
	checkCmd.Flags().BoolVar(&checkOpts.Anonymous, "anonymous", false, "Evaluate without a signed-in principal")
	checkCmd.Flags().StringVar(&checkOpts.Area, "area", "", "Area name or route to navigate to")
	checkCmd.Flags().StringVar(&checkOpts.ThenRoles, "then-roles", "", "Roles to switch to once the navigation settles")
	checkCmd.Flags().BoolVar(&checkOpts.ThenSignOut, "then-sign-out", false, "Sign out once the navigation settles")
	_ = checkCmd.MarkFlagRequired("area")
}

func runCheck(ctx context.Context, w io.Writer, guard *access.Guard, opts checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Anonymous && opts.Roles != "" {
		return &exitError{code: exitCodeUsage, err: errors.New("--anonymous and --roles are mutually exclusive")}
	}
	if opts.ThenSignOut && opts.ThenRolesSet {
		return &exitError{code: exitCodeUsage, err: errors.New("--then-sign-out and --then-roles are mutually exclusive")}
	}

	area, err := resolveCheckArea(guard.Table(), opts.Area)
	if err != nil {
		return &exitError{code: exitCodeUsage, err: err}
	}

	store := session.Open(ctx, session.NewMemoryPersister(), slog.New(slog.DiscardHandler))
	if !opts.Anonymous {
		roles, err := parseRoleList(opts.Roles)
		if err != nil {
			return &exitError{code: exitCodeUsage, err: err}
		}
		if err := store.SetPrincipal(ctx, auth.Principal{ID: "check", Roles: roles}); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "principal: %s\n", describePrincipal(store.Current()))
	fmt.Fprintf(w, "area: %s (%s)\n", area, guard.Table().Route(area))

	d := guard.Evaluate(store.Current(), area)
	fmt.Fprintf(w, "decision: %s\n", d)

	landed := area
	switch d.Outcome {
	case access.OutcomeRedirect:
		landed = d.Target
		fmt.Fprintf(w, "navigate: %s (%s)\n", d.Target, guard.Table().Route(d.Target))
	case access.OutcomeDeny:
		landed = guard.Table().Denied()
		view := access.NewDeniedView(guard, d, store.Current())
		fmt.Fprintf(w, "shows: %s: %s\n", view.Title, view.Message)
		fmt.Fprintf(w, "home link: %s\n", view.HomeHref)
	}

	if !opts.ThenRolesSet && !opts.ThenSignOut {
		return nil
	}

	nav := access.NavigatorFunc(func(_ context.Context, target access.AreaPath) error {
		fmt.Fprintf(w, "cross-role navigate: %s (%s)\n", target, guard.Table().Route(target))
		return nil
	})
	crg := access.NewCrossRoleGuard(guard, store, nav, slog.New(slog.DiscardHandler))
	cancel := store.Subscribe(func(ctx context.Context, _ session.Change) {
		crg.OnSessionChanged(ctx)
	})
	defer cancel()
	crg.OnNavigated(ctx, landed)

	if opts.ThenSignOut {
		fmt.Fprintln(w, "then: sign out")
		return store.Clear(ctx)
	}

	roles, err := parseRoleList(opts.ThenRoles)
	if err != nil {
		return &exitError{code: exitCodeUsage, err: err}
	}
	fmt.Fprintf(w, "then: roles=%s\n", describeRoles(roles))
	if err := store.SetPrincipal(ctx, auth.Principal{ID: "check", Roles: roles}); err != nil {
		return err
	}
	fmt.Fprintf(w, "settled: %s\n", crg.LastDecision())
	return nil
}

// resolveCheckArea accepts an area name or a route.
func resolveCheckArea(t *access.Table, raw string) (access.AreaPath, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("--area is required")
	}
	if strings.HasPrefix(raw, "/") {
		a, ok := t.AreaForRoute(raw)
		if !ok {
			return "", fmt.Errorf("no area is served at %s", raw)
		}
		return a.Path, nil
	}
	// Unknown names go through the guard as-is so the check shows the
	// unknown-area denial.
	return access.AreaPath(raw), nil
}

func parseRoleList(raw string) ([]auth.Role, error) {
	var roles []auth.Role
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r := auth.ParseRole(part)
		if r == auth.RoleNone {
			return nil, fmt.Errorf("unknown role %q", part)
		}
		roles = append(roles, r)
	}
	return auth.NormalizeRoles(roles), nil
}

func describePrincipal(p *auth.Principal) string {
	if p == nil {
		return "anonymous"
	}
	return "roles=" + describeRoles(p.Roles)
}

func describeRoles(roles []auth.Role) string {
	if len(roles) == 0 {
		return "(none)"
	}
	return strings.Join(auth.RoleStrings(roles), ",")
}
