package authn

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/medportal/medportal/internal/access"
	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/metrics"
	"github.com/medportal/medportal/internal/session"
)

// Gate runs the route guard when a request enters an area and keeps a
// cross-role guard watching the session for the rest of the request.
type Gate struct {
	Guard *access.Guard

	// Denied renders the access-denied page. Nil falls back to a bare 403.
	Denied func(c *echo.Context, d access.Decision) error
}

// Area guards a route that serves area.
func (g *Gate) Area(area access.AreaPath) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			ctx := c.Request().Context()
			store := StoreFromContext(c)
			p := store.Current()

			d := g.Guard.Evaluate(p, area)
			metrics.GuardDecisionsTotal.WithLabelValues("route", string(area), d.Outcome.String(), string(d.Reason)).Inc()

			switch d.Outcome {
			case access.OutcomeRedirect:
				table := g.Guard.Table()
				if d.Target == table.Login() {
					return handleUnauth(c, table.Route(d.Target))
				}
				c.Logger().Debug("cross-role redirect", "area", area, "target", d.Target, "principal_id", principalID(p))
				return Redirect(c, table.Route(d.Target))
			case access.OutcomeDeny:
				c.Logger().Info("access denied", "area", area, "reason", d.Reason, "principal_id", principalID(p))
				return g.deny(c, d)
			}

			nav := NewNavigator(g.Guard.Table())
			crg := access.NewCrossRoleGuard(g.Guard, store, nav, c.Logger())
			crg.OnNavigated(ctx, area)
			cancel := store.Subscribe(func(ctx context.Context, _ session.Change) {
				crg.OnSessionChanged(ctx)
			})
			defer cancel()

			c.Set(ContextKeyNavigator, nav)
			c.Set(ContextKeyCrossRole, crg)
			return next(c)
		}
	}
}

func (g *Gate) deny(c *echo.Context, d access.Decision) error {
	if isAPIRequest(c) {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden", "reason": string(d.Reason)})
	}
	if g.Denied == nil {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return g.Denied(c, d)
}

// PendingNavigation returns the route the cross-role guard navigated to while
// the handler ran, if any.
func PendingNavigation(c *echo.Context) (string, bool) {
	nav, ok := c.Get(ContextKeyNavigator).(*Navigator)
	if !ok || nav == nil {
		return "", false
	}
	return nav.PendingRoute()
}

// LandingRoute is where p goes after login or signup: next when it names a
// protected area p may enter, otherwise p's canonical area.
func LandingRoute(g *access.Guard, p *auth.Principal, next string) string {
	if next = SanitizeNext(next); next != "" {
		if a, ok := g.Table().AreaForRoute(next); ok && !a.Requirement.Public() && g.Evaluate(p, a.Path).Allowed() {
			return next
		}
	}
	return g.Resolver().CanonicalRoute(p)
}

func principalID(p *auth.Principal) string {
	if p == nil {
		return ""
	}
	return p.ID
}
