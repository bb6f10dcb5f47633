package domain

import "time"

// FlowState is the explicit state of one login flow. The flow is driven by a
// single logical actor (the user submitting one request at a time), so
// ordering is enforced by state guards rather than locks.
type FlowState string

const (
	FlowIdle                  FlowState = "IDLE"
	FlowSubmittingCredentials FlowState = "SUBMITTING_CREDENTIALS"
	FlowAwaitingRoleChoice    FlowState = "AWAITING_ROLE_CHOICE"
	FlowAwaitingYearChoice    FlowState = "AWAITING_YEAR_CHOICE"
	FlowCommitting            FlowState = "COMMITTING"
	FlowEstablished           FlowState = "ESTABLISHED"
	FlowFailed                FlowState = "FAILED"
)

// LoginFlow is the pending state of a login that could not resolve in a
// single request: credentials are verified but a role and/or academic year
// choice is still outstanding. Nothing in here has been committed to the
// session store.
type LoginFlow struct {
	ID        string          `json:"id"`
	State     FlowState       `json:"state"`
	Token     string          `json:"token"`
	User      Identity        `json:"user"`
	Offered   []Role          `json:"offeredRoles,omitempty"`
	Role      Role            `json:"role,omitempty"`
	Years     AcademicYearSet `json:"years,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// guard validates that an incoming event is legal in the current state.
// Committing always reports busy so duplicate confirmations are rejected
// instead of racing the in-flight commit.
func (f *LoginFlow) guard(want FlowState) error {
	if f.State == FlowCommitting {
		return ErrFlowBusy
	}
	if f.State != want {
		return ErrFlowConflict
	}
	return nil
}

// ResolveRole applies a role choice. The role must be one the flow offered;
// a stale or fabricated choice never advances the flow.
func (f *LoginFlow) ResolveRole(role Role) error {
	if err := f.guard(FlowAwaitingRoleChoice); err != nil {
		return err
	}
	for _, offered := range f.Offered {
		if offered == role {
			f.Role = role
			return nil
		}
	}
	return &UnknownRoleError{Role: string(role)}
}

// OfferYears parks the flow until the user confirms an academic year.
func (f *LoginFlow) OfferYears(set AcademicYearSet) {
	f.Years = set
	f.State = FlowAwaitingYearChoice
}

// BeginCommit applies an academic-year confirmation and moves the flow into
// Committing. It returns the chosen year so the caller can build the session.
func (f *LoginFlow) BeginCommit(yearID int) (*AcademicYear, error) {
	if err := f.guard(FlowAwaitingYearChoice); err != nil {
		return nil, err
	}
	year := f.Years.FindYear(yearID)
	if year == nil {
		return nil, ErrFlowConflict
	}
	f.State = FlowCommitting
	return year, nil
}
