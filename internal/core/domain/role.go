package domain

import "strings"

type Role string

const (
	RoleSuperManager       Role = "SUPER_MANAGER"
	RoleManager            Role = "MANAGER"
	RolePrincipal          Role = "PRINCIPAL"
	RoleVicePrincipal      Role = "VICE_PRINCIPAL"
	RoleBursar             Role = "BURSAR"
	RoleDisciplineMaster   Role = "DISCIPLINE_MASTER"
	RoleGuidanceCounselor  Role = "GUIDANCE_COUNSELOR"
	RoleHeadOfDepartment   Role = "HOD"
	RoleTeacher            Role = "TEACHER"
	RoleParent             Role = "PARENT"
	RoleStudent            Role = "STUDENT"
)

// KnownRoles is the set of roles the dashboards understand. Routing refuses
// anything outside this set rather than falling back to a default page.
var KnownRoles = []Role{
	RoleSuperManager,
	RoleManager,
	RolePrincipal,
	RoleVicePrincipal,
	RoleBursar,
	RoleDisciplineMaster,
	RoleGuidanceCounselor,
	RoleHeadOfDepartment,
	RoleTeacher,
	RoleParent,
	RoleStudent,
}

func (r Role) Known() bool {
	for _, known := range KnownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// DashboardPath maps a role to its dashboard route: X_Y -> /dashboard/x-y.
func (r Role) DashboardPath() (string, error) {
	if !r.Known() {
		return "", &UnknownRoleError{Role: string(r)}
	}
	slug := strings.ReplaceAll(strings.ToLower(string(r)), "_", "-")
	return "/dashboard/" + slug, nil
}

// Label renders a role for selection surfaces, e.g. SUPER_MANAGER -> "Super Manager".
func (r Role) Label() string {
	words := strings.Split(strings.ToLower(string(r)), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// RequiresAcademicYear reports whether a session for this role must be scoped
// to an academic year. Parent and student portals operate across years.
func (r Role) RequiresAcademicYear() bool {
	switch r {
	case RoleParent, RoleStudent:
		return false
	default:
		return true
	}
}
