package ports

import (
	"context"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
)

// RoleOption is one entry on the role selection surface.
type RoleOption struct {
	Role  domain.Role `json:"role"`
	Label string      `json:"label"`
}

// FlowResult is the outcome of one step of the login flow: either the
// established session (with its dashboard redirect), or the pending state
// plus whatever the user must choose from next.
type FlowResult struct {
	State      domain.FlowState        `json:"state"`
	FlowID     string                  `json:"flowId,omitempty"`
	Roles      []RoleOption            `json:"roles,omitempty"`
	Years      *domain.AcademicYearSet `json:"years,omitempty"`
	Session    *domain.Session         `json:"session,omitempty"`
	RedirectTo string                  `json:"redirectTo,omitempty"`
}

// LoginFlowService drives the login state machine:
// credentials -> role disambiguation -> academic-year scoping -> commit.
type LoginFlowService interface {
	SubmitCredentials(ctx context.Context, identifier, password string) (*FlowResult, error)
	ChooseRole(ctx context.Context, flowID string, role domain.Role) (*FlowResult, error)
	ChooseAcademicYear(ctx context.Context, flowID string, yearID int) (*FlowResult, error)
	Cancel(ctx context.Context, flowID string) error
}

// SessionService owns established sessions: re-hydration on reload, logout,
// and the global expiry policy for upstream 401s.
type SessionService interface {
	Hydrate(ctx context.Context, token string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error

	// Expire applies the 401 policy: the session is invalidated and the
	// return value says whether this caller should issue the login redirect.
	Expire(ctx context.Context, token string) (bool, error)

	Me(ctx context.Context, token string) (*domain.Identity, error)
}
