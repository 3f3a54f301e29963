package auth

import (
	"slices"
	"strings"
)

const (
	MethodPassword = "password"
	MethodSignup   = "signup"
)

// Principal is the authenticated identity carried by a session. Roles is a
// set kept in precedence order; an empty set routes like the lowest
// privileged user.
type Principal struct {
	ID     string
	Email  string
	Name   string
	Phone  string
	Roles  []Role
	Method string
}

// HasRole reports whether p holds r.
func (p Principal) HasRole(r Role) bool {
	return r.Known() && slices.Contains(p.Roles, r)
}

// HasAnyRole reports whether p holds at least one of roles.
func (p Principal) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// PrimaryRole is the role used for landing-page decisions.
func (p Principal) PrimaryRole() (Role, bool) {
	return HighestPriorityRole(p.Roles)
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// DisplayName falls back to the email when no name is on file.
func (p Principal) DisplayName() string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	return p.Email
}

// Clone returns a deep copy so callers cannot mutate a stored snapshot.
func (p Principal) Clone() Principal {
	p.Roles = slices.Clone(p.Roles)
	return p
}

// Equal compares every field, treating Roles as a set.
func (p Principal) Equal(o Principal) bool {
	if p.ID != o.ID || p.Email != o.Email || p.Name != o.Name || p.Phone != o.Phone || p.Method != o.Method {
		return false
	}
	return slices.Equal(NormalizeRoles(p.Roles), NormalizeRoles(o.Roles))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
