package access

import (
	"slices"
	"strings"

	"github.com/medportal/medportal/internal/auth"
)

// AreaPath identifies a navigable area of the portal.
type AreaPath string

const (
	AreaHome         AreaPath = "home"
	AreaLogin        AreaPath = "login"
	AreaSignup       AreaPath = "signup"
	AreaAccessDenied AreaPath = "access-denied"

	AreaPatientDashboard    AreaPath = "patient-dashboard"
	AreaPatientProfile      AreaPath = "patient-profile"
	AreaPatientAppointments AreaPath = "patient-appointments"
	AreaPatientRecords      AreaPath = "patient-records"

	AreaDoctorDashboard AreaPath = "doctor-dashboard"
	AreaDoctorPatients  AreaPath = "doctor-patients"
	AreaDoctorSchedule  AreaPath = "doctor-schedule"

	AreaAdminDashboard AreaPath = "admin-dashboard"
	AreaAdminUsers     AreaPath = "admin-users"
	AreaAdminDoctors   AreaPath = "admin-doctors"
)

func (a AreaPath) String() string {
	return string(a)
}

// Requirement is the role predicate attached to an area: either public or
// satisfied by holding any one of a set of roles.
type Requirement struct {
	public   bool
	roleless bool
	roles    []auth.Role
}

// RequirePublic admits everyone, signed in or not.
func RequirePublic() Requirement {
	return Requirement{public: true}
}

// RequireAnyOf admits principals holding at least one of roles. Unknown roles
// are dropped, so RequireAnyOf() with nothing known admits no one.
func RequireAnyOf(roles ...auth.Role) Requirement {
	return Requirement{roles: auth.NormalizeRoles(roles)}
}

// IncludeRoleless also admits signed-in principals that hold no known role.
// Lowest-privilege areas use it so that role-less accounts have somewhere to
// land.
func (r Requirement) IncludeRoleless() Requirement {
	r.roleless = true
	return r
}

func (r Requirement) Public() bool {
	return r.public
}

// Roles returns the admitted roles in precedence order.
func (r Requirement) Roles() []auth.Role {
	return slices.Clone(r.roles)
}

// SatisfiedBy reports whether p may enter. A nil principal only satisfies
// public requirements.
func (r Requirement) SatisfiedBy(p *auth.Principal) bool {
	if r.public {
		return true
	}
	if p == nil {
		return false
	}
	if r.roleless {
		if _, ok := p.PrimaryRole(); !ok {
			return true
		}
	}
	return p.HasAnyRole(r.roles...)
}

func (r Requirement) String() string {
	if r.public {
		return "public"
	}
	parts := auth.RoleStrings(r.roles)
	if r.roleless {
		parts = append(parts, "no-role")
	}
	if len(parts) == 0 {
		return "nobody"
	}
	return strings.Join(parts, "|")
}

// Area is one row of the static access table.
type Area struct {
	Path        AreaPath
	Route       string
	Title       string
	Requirement Requirement

	// NoRedirect turns a cross-role visit into a Deny instead of a silent
	// redirect to the visitor's canonical area.
	NoRedirect bool

	// Nav lists the area in the signed-in navigation menu.
	Nav bool
}
