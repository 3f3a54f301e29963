package access

import (
	"fmt"

	"github.com/medportal/medportal/internal/auth"
)

// Outcome is the kind of a guard decision.
type Outcome int

const (
	OutcomeAllow Outcome = iota
	OutcomeRedirect
	OutcomeDeny
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAllow:
		return "allow"
	case OutcomeRedirect:
		return "redirect"
	case OutcomeDeny:
		return "deny"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Reason explains a Deny.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonRedirectLoop     Reason = "redirect-loop"
	ReasonRedirectDisabled Reason = "redirect-disabled"
	ReasonUnknownArea      Reason = "unknown-area"
)

// Decision is the result of evaluating a navigation attempt.
type Decision struct {
	Outcome Outcome
	Target  AreaPath
	Reason  Reason
}

func Allow() Decision {
	return Decision{Outcome: OutcomeAllow}
}

func RedirectTo(area AreaPath) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: area}
}

func Deny(reason Reason) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason}
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeRedirect:
		return fmt.Sprintf("redirect(%s)", d.Target)
	case OutcomeDeny:
		return fmt.Sprintf("deny(%s)", d.Reason)
	default:
		return d.Outcome.String()
	}
}

// Guard evaluates single navigation attempts against a Table.
type Guard struct {
	table    *Table
	resolver *Resolver
}

func NewGuard(t *Table) *Guard {
	return &Guard{table: t, resolver: NewResolver(t)}
}

func (g *Guard) Table() *Table {
	return g.table
}

func (g *Guard) Resolver() *Resolver {
	return g.resolver
}

// Evaluate decides whether p may render area. It is total: every input maps
// to Allow, RedirectTo or Deny.
//
// A redirect never targets the requested area itself; when the canonical area
// equals the requested one the table is inconsistent and the result is
// Deny(redirect-loop).
func (g *Guard) Evaluate(p *auth.Principal, area AreaPath) Decision {
	a, ok := g.table.Area(area)
	if !ok {
		return Deny(ReasonUnknownArea)
	}
	if a.Requirement.Public() {
		return Allow()
	}
	if p == nil {
		return RedirectTo(g.table.Login())
	}
	if a.Requirement.SatisfiedBy(p) {
		return Allow()
	}
	if a.NoRedirect {
		return Deny(ReasonRedirectDisabled)
	}
	target := g.resolver.CanonicalArea(p)
	if target == area {
		return Deny(ReasonRedirectLoop)
	}
	return RedirectTo(target)
}

// Reachable lists the navigation areas p may enter, in table order. Menus and
// shortcuts use it so they never link into a foreign area.
func (g *Guard) Reachable(p *auth.Principal) []Area {
	var out []Area
	for _, a := range g.table.Areas() {
		if !a.Nav {
			continue
		}
		if g.Evaluate(p, a.Path).Allowed() {
			out = append(out, a)
		}
	}
	return out
}
