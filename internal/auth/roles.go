package auth

import (
	"math"
	"slices"
	"strings"
)

// Role is one of the closed set of portal roles. The zero value RoleNone means
// "no privileged role" and is what every unknown spelling parses to.
type Role string

const (
	RoleNone    Role = ""
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// precedence lists the known roles from highest to lowest priority. The index
// of a role is its rank.
var precedence = [...]Role{RoleAdmin, RoleDoctor, RolePatient}

// roleAliases maps legacy spellings found in stored accounts onto the
// canonical roles.
var roleAliases = map[string]Role{
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"role_admin":    RoleAdmin,
	"superuser":     RoleAdmin,
	"doctor":        RoleDoctor,
	"role_doctor":   RoleDoctor,
	"physician":     RoleDoctor,
	"dr":            RoleDoctor,
	"patient":       RolePatient,
	"role_patient":  RolePatient,
	"user":          RolePatient,
}

// AllRoles returns the known roles in precedence order.
func AllRoles() []Role {
	return slices.Clone(precedence[:])
}

// ParseRole normalizes a stored or submitted role string. Unknown values
// yield RoleNone.
func ParseRole(raw string) Role {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	if r, ok := roleAliases[key]; ok {
		return r
	}
	return RoleNone
}

// ParseRoles parses each value, dropping unknown ones, and returns the
// resulting set in precedence order.
func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, v := range raw {
		roles = append(roles, ParseRole(v))
	}
	return NormalizeRoles(roles)
}

// Known reports whether r is a member of the closed role set.
func (r Role) Known() bool {
	_, ok := RankOf(r)
	return ok
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// Rank returns the precedence rank of r, lower meaning higher priority.
// Unknown roles rank after every known role.
func Rank(r Role) int {
	if rank, ok := RankOf(r); ok {
		return rank
	}
	return math.MaxInt
}

// RankOf is Rank with an explicit known flag.
func RankOf(r Role) (int, bool) {
	for i, known := range precedence {
		if r == known {
			return i, true
		}
	}
	return 0, false
}

// HighestPriorityRole returns the held role with the minimal rank. It reports
// false when roles holds no known role.
func HighestPriorityRole(roles []Role) (Role, bool) {
	best := RoleNone
	bestRank := math.MaxInt
	for _, r := range roles {
		rank, ok := RankOf(r)
		if !ok {
			continue
		}
		if rank < bestRank {
			best, bestRank = r, rank
		}
	}
	return best, best != RoleNone
}

// NormalizeRoles de-duplicates roles, drops unknown values and sorts the
// result by precedence.
func NormalizeRoles(roles []Role) []Role {
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.Known() || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Role) int {
		return Rank(a) - Rank(b)
	})
	return out
}

// RoleStrings converts roles to their stored string form.
func RoleStrings(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, string(r))
	}
	return out
}

// Aliases returns every stored spelling that parses to r, sorted.
func Aliases(r Role) []string {
	var out []string
	for alias, role := range roleAliases {
		if role == r {
			out = append(out, alias)
		}
	}
	slices.Sort(out)
	return out
}
