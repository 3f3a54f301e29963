package access

import "github.com/medportal/medportal/internal/auth"

// Resolver maps a principal to its canonical landing area.
type Resolver struct {
	table *Table
}

func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// CanonicalArea returns the default area of p's highest-priority role, or the
// table's fallback when p is nil, holds no known role, or its role has no
// registered default. It performs no navigation.
func (r *Resolver) CanonicalArea(p *auth.Principal) AreaPath {
	if p == nil {
		return r.table.Fallback()
	}
	role, ok := p.PrimaryRole()
	if !ok {
		return r.table.Fallback()
	}
	if area, ok := r.table.DefaultArea(role); ok {
		return area
	}
	return r.table.Fallback()
}

// CanonicalRoute is CanonicalArea expressed as a URL route.
func (r *Resolver) CanonicalRoute(p *auth.Principal) string {
	return r.table.Route(r.CanonicalArea(p))
}
