package access

import "github.com/medportal/medportal/internal/auth"

// DefaultConfig is the portal's access table.
func DefaultConfig() TableConfig {
	patientOnly := RequireAnyOf(auth.RolePatient).IncludeRoleless()
	doctorOnly := RequireAnyOf(auth.RoleDoctor)
	adminOnly := RequireAnyOf(auth.RoleAdmin)

	return TableConfig{
		Areas: []Area{
			{Path: AreaHome, Route: "/", Title: "Welcome", Requirement: RequirePublic()},
			{Path: AreaLogin, Route: "/login", Title: "Sign in", Requirement: RequirePublic()},
			{Path: AreaSignup, Route: "/signup", Title: "Create account", Requirement: RequirePublic()},
			{Path: AreaAccessDenied, Route: "/access-denied", Title: "Access denied", Requirement: RequirePublic()},

			{Path: AreaPatientDashboard, Route: "/patient/dashboard", Title: "My dashboard", Requirement: patientOnly, Nav: true},
			{Path: AreaPatientAppointments, Route: "/patient/appointments", Title: "Appointments", Requirement: patientOnly, Nav: true},
			// Medical records answer a foreign visit with an explicit denial.
			{Path: AreaPatientRecords, Route: "/patient/records", Title: "Medical records", Requirement: patientOnly, Nav: true, NoRedirect: true},
			{Path: AreaPatientProfile, Route: "/patient/profile", Title: "Profile", Requirement: patientOnly, Nav: true},

			{Path: AreaDoctorDashboard, Route: "/doctor/dashboard", Title: "Doctor dashboard", Requirement: doctorOnly, Nav: true},
			{Path: AreaDoctorPatients, Route: "/doctor/patients", Title: "Patients", Requirement: doctorOnly, Nav: true},
			{Path: AreaDoctorSchedule, Route: "/doctor/schedule", Title: "Schedule", Requirement: doctorOnly, Nav: true},

			{Path: AreaAdminDashboard, Route: "/admin/dashboard", Title: "Admin dashboard", Requirement: adminOnly, Nav: true},
			{Path: AreaAdminUsers, Route: "/admin/users", Title: "Users", Requirement: adminOnly, Nav: true},
			{Path: AreaAdminDoctors, Route: "/admin/doctors", Title: "Doctors", Requirement: adminOnly, Nav: true},
		},
		Defaults: map[auth.Role]AreaPath{
			auth.RoleAdmin:   AreaAdminDashboard,
			auth.RoleDoctor:  AreaDoctorDashboard,
			auth.RolePatient: AreaPatientDashboard,
		},
		Fallback: AreaPatientDashboard,
		Login:    AreaLogin,
		Denied:   AreaAccessDenied,
	}
}

// DefaultTable builds the portal's access table.
func DefaultTable() *Table {
	return MustTable(DefaultConfig())
}
