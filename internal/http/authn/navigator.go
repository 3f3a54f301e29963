package authn

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/medportal/medportal/internal/access"
)

var _ access.DeniedNavigator = (*Navigator)(nil)

// Navigator records navigations requested while a handler runs. The last
// request wins; the handler turns it into a redirect response.
type Navigator struct {
	table *access.Table

	mu      sync.Mutex
	target  access.AreaPath
	reason  access.Reason
	pending bool
}

func NewNavigator(t *access.Table) *Navigator {
	return &Navigator{table: t}
}

func (n *Navigator) NavigateTo(_ context.Context, area access.AreaPath) error {
	return n.record(area, access.ReasonNone)
}

// NavigateToDenied is NavigateTo for the denied area; the reason ends up in
// the route's query so the page can explain itself.
func (n *Navigator) NavigateToDenied(_ context.Context, area access.AreaPath, reason access.Reason) error {
	return n.record(area, reason)
}

func (n *Navigator) record(area access.AreaPath, reason access.Reason) error {
	if n.table.Route(area) == "" {
		return fmt.Errorf("no route for area %q", area)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = area
	n.reason = reason
	n.pending = true
	return nil
}

// Pending returns the last requested area.
func (n *Navigator) Pending() (access.AreaPath, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.pending
}

func (n *Navigator) PendingRoute() (string, bool) {
	n.mu.Lock()
	area, reason, ok := n.target, n.reason, n.pending
	n.mu.Unlock()
	if !ok {
		return "", false
	}
	route := n.table.Route(area)
	if reason != access.ReasonNone {
		route += "?reason=" + url.QueryEscape(string(reason))
	}
	return route, true
}
