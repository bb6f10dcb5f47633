package domain

// Session is the fully resolved outcome of a login flow. It is either absent
// or carries all of token, identity and role; a nil AcademicYear is only
// valid for roles that do not require year scoping.
type Session struct {
	Token        string        `json:"token"`
	User         Identity      `json:"user"`
	Role         Role          `json:"role"`
	AcademicYear *AcademicYear `json:"academicYear,omitempty"`
}

// Valid reports whether the session satisfies the all-or-nothing invariant.
func (s Session) Valid() bool {
	if s.Token == "" || s.Role == "" || s.User.ID == 0 {
		return false
	}
	if s.Role.RequiresAcademicYear() && s.AcademicYear == nil {
		return false
	}
	return true
}
