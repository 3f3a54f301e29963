package access

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/medportal/medportal/internal/auth"
)

// TableConfig is the input to NewTable.
type TableConfig struct {
	Areas []Area

	// Defaults maps a role to its landing area.
	Defaults map[auth.Role]AreaPath

	// Fallback is the lowest-privilege landing area, used when a principal
	// has no known role or its role has no default.
	Fallback AreaPath

	Login  AreaPath
	Denied AreaPath
}

// Table is the immutable access configuration: every area's requirement and
// every role's default landing area.
type Table struct {
	areas    map[AreaPath]Area
	byRoute  map[string]AreaPath
	order    []AreaPath
	defaults map[auth.Role]AreaPath
	fallback AreaPath
	login    AreaPath
	denied   AreaPath
}

// NewTable validates cfg and builds a Table. It rejects structural mistakes
// (duplicate areas or routes, dangling references, a non-public login area)
// but not policy mistakes such as a default area its own role cannot enter;
// the guard turns those into Deny at runtime and Problems reports them.
func NewTable(cfg TableConfig) (*Table, error) {
	t := &Table{
		areas:    make(map[AreaPath]Area, len(cfg.Areas)),
		byRoute:  make(map[string]AreaPath, len(cfg.Areas)),
		defaults: make(map[auth.Role]AreaPath, len(cfg.Defaults)),
		fallback: cfg.Fallback,
		login:    cfg.Login,
		denied:   cfg.Denied,
	}

	var errs []error
	for _, a := range cfg.Areas {
		if strings.TrimSpace(string(a.Path)) == "" {
			errs = append(errs, errors.New("area with empty path"))
			continue
		}
		if !strings.HasPrefix(a.Route, "/") {
			errs = append(errs, fmt.Errorf("area %q: route %q must start with /", a.Path, a.Route))
			continue
		}
		if _, dup := t.areas[a.Path]; dup {
			errs = append(errs, fmt.Errorf("area %q registered twice", a.Path))
			continue
		}
		if other, dup := t.byRoute[a.Route]; dup {
			errs = append(errs, fmt.Errorf("route %q used by %q and %q", a.Route, other, a.Path))
			continue
		}
		t.areas[a.Path] = a
		t.byRoute[a.Route] = a.Path
		t.order = append(t.order, a.Path)
	}

	for role, path := range cfg.Defaults {
		if !role.Known() {
			errs = append(errs, fmt.Errorf("default area for unknown role %q", string(role)))
			continue
		}
		if _, ok := t.areas[path]; !ok {
			errs = append(errs, fmt.Errorf("default area %q for role %s is not registered", path, role))
			continue
		}
		t.defaults[role] = path
	}

	for name, path := range map[string]AreaPath{"fallback": cfg.Fallback, "login": cfg.Login, "denied": cfg.Denied} {
		if _, ok := t.areas[path]; !ok {
			errs = append(errs, fmt.Errorf("%s area %q is not registered", name, path))
		}
	}
	if a, ok := t.areas[cfg.Login]; ok && !a.Requirement.Public() {
		errs = append(errs, fmt.Errorf("login area %q must be public", cfg.Login))
	}
	if a, ok := t.areas[cfg.Denied]; ok && !a.Requirement.Public() {
		errs = append(errs, fmt.Errorf("denied area %q must be public", cfg.Denied))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("access table: %w", err)
	}
	return t, nil
}

// MustTable is NewTable for package-level configuration.
func MustTable(cfg TableConfig) *Table {
	t, err := NewTable(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Area(path AreaPath) (Area, bool) {
	a, ok := t.areas[path]
	return a, ok
}

// AreaForRoute finds the area served at route, ignoring a trailing slash
// and any query string.
func (t *Table) AreaForRoute(route string) (Area, bool) {
	if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if len(route) > 1 {
		route = strings.TrimSuffix(route, "/")
	}
	path, ok := t.byRoute[route]
	if !ok {
		return Area{}, false
	}
	return t.areas[path], true
}

// Route returns the URL route of path, or "" if unknown.
func (t *Table) Route(path AreaPath) string {
	return t.areas[path].Route
}

// Areas returns every area in registration order.
func (t *Table) Areas() []Area {
	out := make([]Area, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.areas[p])
	}
	return out
}

// DefaultArea returns the landing area registered for role.
func (t *Table) DefaultArea(role auth.Role) (AreaPath, bool) {
	p, ok := t.defaults[role]
	return p, ok
}

func (t *Table) Fallback() AreaPath {
	return t.fallback
}

func (t *Table) Login() AreaPath {
	return t.login
}

func (t *Table) Denied() AreaPath {
	return t.denied
}

// Problems lists policy inconsistencies that would make the guard deny
// instead of redirect: default areas a role cannot enter, and a fallback that
// a role-less principal cannot enter.
func (t *Table) Problems() []string {
	var out []string
	for _, role := range auth.AllRoles() {
		path, ok := t.defaults[role]
		if !ok {
			continue
		}
		p := &auth.Principal{Roles: []auth.Role{role}}
		if !t.areas[path].Requirement.SatisfiedBy(p) {
			out = append(out, fmt.Sprintf("role %s lands on %q but cannot enter it", role, path))
		}
	}
	if !t.areas[t.fallback].Requirement.SatisfiedBy(&auth.Principal{}) {
		out = append(out, fmt.Sprintf("fallback area %q is not reachable without a role; role-less principals will be denied", t.fallback))
	}
	slices.Sort(out)
	return out
}
