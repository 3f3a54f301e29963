package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/medportal/medportal/internal/auth"
	"github.com/medportal/medportal/internal/metrics"
)

// Navigator performs navigation. Calling it with the area the session is
// already on must be harmless.
type Navigator interface {
	NavigateTo(ctx context.Context, area AreaPath) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, area AreaPath) error

func (f NavigatorFunc) NavigateTo(ctx context.Context, area AreaPath) error {
	return f(ctx, area)
}

// DeniedNavigator is implemented by navigators that can tell the denied area
// why the session was sent there. The cross-role guard prefers it over
// NavigateTo for Deny decisions.
type DeniedNavigator interface {
	NavigateToDenied(ctx context.Context, area AreaPath, reason Reason) error
}

// SessionSource exposes the current principal and a version that changes on
// every committed session write. *session.Store implements it.
type SessionSource interface {
	Snapshot() (*auth.Principal, uint64)
}

type navKey struct {
	version uint64
	area    AreaPath
	target  AreaPath
}

// CrossRoleGuard re-runs the route guard against the area the session is
// currently on, every time a navigation completes or the session changes, and
// moves the session out of areas it no longer belongs in.
//
// It issues at most one navigation per (session version, current area,
// target): re-evaluating without an intervening change is a no-op.
type CrossRoleGuard struct {
	guard  *Guard
	source SessionSource
	nav    Navigator
	logger *slog.Logger

	mu       sync.Mutex
	current  AreaPath
	last     navKey
	issued   bool
	decision Decision
}

func NewCrossRoleGuard(g *Guard, source SessionSource, nav Navigator, logger *slog.Logger) *CrossRoleGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrossRoleGuard{
		guard:    g,
		source:   source,
		nav:      nav,
		logger:   logger,
		decision: Allow(),
	}
}

// OnNavigated records that the session now shows area and re-evaluates.
func (c *CrossRoleGuard) OnNavigated(ctx context.Context, area AreaPath) Decision {
	c.mu.Lock()
	c.current = area
	c.issued = false
	c.mu.Unlock()
	return c.Reconcile(ctx)
}

// OnSessionChanged re-evaluates the current area after a committed session
// write.
func (c *CrossRoleGuard) OnSessionChanged(ctx context.Context) Decision {
	return c.Reconcile(ctx)
}

// Reconcile evaluates the current principal against the current area and
// navigates away when the decision says so. Deny decisions lead to the
// table's denied area, carrying the reason when the navigator supports it.
func (c *CrossRoleGuard) Reconcile(ctx context.Context) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == "" {
		return Allow()
	}

	p, version := c.source.Snapshot()
	d := c.guard.Evaluate(p, c.current)
	c.decision = d
	metrics.GuardDecisionsTotal.WithLabelValues("cross_role", string(c.current), d.Outcome.String(), string(d.Reason)).Inc()

	var target AreaPath
	switch d.Outcome {
	case OutcomeRedirect:
		target = d.Target
	case OutcomeDeny:
		target = c.guard.Table().Denied()
	}
	if target == "" || target == c.current {
		return d
	}

	key := navKey{version: version, area: c.current, target: target}
	if c.issued && c.last == key {
		return d
	}
	c.last = key
	c.issued = true

	if c.nav == nil {
		return d
	}
	if err := c.navigate(ctx, target, d); err != nil {
		metrics.GuardNavigationsTotal.WithLabelValues(string(target), "error").Inc()
		c.logger.Warn("cross-role navigation failed", "from", c.current, "to", target, "error", err)
		return d
	}
	metrics.GuardNavigationsTotal.WithLabelValues(string(target), "ok").Inc()
	c.logger.Debug("cross-role navigation", "from", c.current, "to", target, "decision", d.String())
	return d
}

func (c *CrossRoleGuard) navigate(ctx context.Context, target AreaPath, d Decision) error {
	if dn, ok := c.nav.(DeniedNavigator); ok && d.Outcome == OutcomeDeny {
		return dn.NavigateToDenied(ctx, target, d.Reason)
	}
	return c.nav.NavigateTo(ctx, target)
}

// CurrentArea returns the area last reported through OnNavigated.
func (c *CrossRoleGuard) CurrentArea() AreaPath {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// LastDecision returns the most recent evaluation.
func (c *CrossRoleGuard) LastDecision() Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decision
}
