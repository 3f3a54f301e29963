package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/spf13/cobra"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Print the access table: areas, routes, required roles and landing areas.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		problems := printAccessTable(cmd.OutOrStdout(), access.DefaultTable())
		if problems > 0 {
			return &exitError{code: exitCodeFailure, silent: true}
		}
		return nil
	},
}

// printAccessTable writes t to w and returns the number of problems found.
func printAccessTable(w io.Writer, t *access.Table) int {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AREA\tROUTE\tREQUIRES\tON FOREIGN VISIT")
	for _, a := range t.Areas() {
		foreign := "redirect"
		switch {
		case a.Requirement.Public():
			foreign = "-"
		case a.NoRedirect:
			foreign = "deny"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Path, a.Route, a.Requirement, foreign)
	}
	_ = tw.Flush()

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tLANDS ON\tROUTE")
	for _, role := range auth.AllRoles() {
		path, ok := t.DefaultArea(role)
		if !ok {
			path = t.Fallback()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", role, path, t.Route(path))
	}
	fmt.Fprintf(tw, "(none)\t%s\t%s\n", t.Fallback(), t.Route(t.Fallback()))
	_ = tw.Flush()

	problems := t.Problems()
	if len(problems) > 0 {
		fmt.Fprintf(w, "\nproblems:\n  %s\n", strings.Join(problems, "\n  "))
	}
	return len(problems)
}
