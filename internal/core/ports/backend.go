package ports

import (
	"context"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
)

// Credentials is one login attempt. Exactly one of Email or Matricule is set;
// the submitter routes on the presence of '@' in the identifier.
type Credentials struct {
	Email     string
	Matricule string
	Password  string
}

// LoginResult is the raw payload of a successful backend login. Nothing in it
// is persisted until role and academic year are resolved.
type LoginResult struct {
	Token string
	User  domain.Identity
}

// SchoolBackend is the remote school-management REST API this gateway fronts.
type SchoolBackend interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	AcademicYearsForRole(ctx context.Context, token string, role domain.Role) (domain.AcademicYearSet, error)
	Me(ctx context.Context, token string) (*domain.Identity, error)
}
