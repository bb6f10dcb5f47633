package domain

type UserStatus string

const (
	UserActive   UserStatus = "ACTIVE"
	UserInactive UserStatus = "INACTIVE"
)

// Identity is the authenticated principal as reported by the school backend.
// It is only ever read and cached here; the backend owns its lifecycle.
type Identity struct {
	ID        int         `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Matricule string      `json:"matricule,omitempty"`
	Status    UserStatus  `json:"status"`
	Roles     []RoleGrant `json:"userRoles"`
}

// RoleGrant is one (identity, role, academic-year-scope) capability.
// A nil AcademicYearID means the grant is not restricted to a year.
type RoleGrant struct {
	Role           Role `json:"role"`
	AcademicYearID *int `json:"academicYearId,omitempty"`
}

// DistinctRoles returns the identity's role names, deduplicated, in grant order.
func (i Identity) DistinctRoles() []Role {
	seen := make(map[Role]bool, len(i.Roles))
	var roles []Role
	for _, grant := range i.Roles {
		if seen[grant.Role] {
			continue
		}
		seen[grant.Role] = true
		roles = append(roles, grant.Role)
	}
	return roles
}
