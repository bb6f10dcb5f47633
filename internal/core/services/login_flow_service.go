package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/metrics"
)

// LoginFlowService drives the login state machine. Each step is one request:
// credentials come in, then (when the identity is ambiguous) a role choice,
// then (when the role is year-scoped) an academic-year confirmation. Nothing
// touches the session store until every stage has resolved, so an abandoned
// or failed flow never leaves a half-configured session behind.
type LoginFlowService struct {
	backend  ports.SchoolBackend
	sessions ports.SessionStore
	flows    ports.LoginFlowRepository
	audit    ports.AuditRepository
}

var _ ports.LoginFlowService = (*LoginFlowService)(nil)

func NewLoginFlowService(
	backend ports.SchoolBackend,
	sessions ports.SessionStore,
	flows ports.LoginFlowRepository,
	audit ports.AuditRepository,
) *LoginFlowService {
	return &LoginFlowService{
		backend:  backend,
		sessions: sessions,
		flows:    flows,
		audit:    audit,
	}
}

// SubmitCredentials performs the credential check and resolves as much of the
// flow as it can without user input: a sole role is auto-selected, a sole
// academic year is auto-selected, and only genuine ambiguity parks the flow.
func (s *LoginFlowService) SubmitCredentials(ctx context.Context, identifier, password string) (*ports.FlowResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, &domain.AuthenticationError{Message: "identifier is required"}
	}

	// An '@' routes the identifier as a staff email; anything else is a
	// parent/student matricule. Both go through the same backend check.
	creds := ports.Credentials{Password: password}
	if strings.Contains(identifier, "@") {
		creds.Email = identifier
	} else {
		creds.Matricule = identifier
	}

	result, err := s.backend.Login(ctx, creds)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		s.recordAttempt(ctx, identifier, false, err.Error())
		return nil, err
	}

	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	s.recordAttempt(ctx, identifier, true, "")

	flow := &domain.LoginFlow{
		ID:        uuid.NewString(),
		State:     domain.FlowSubmittingCredentials,
		Token:     result.Token,
		User:      result.User,
		CreatedAt: time.Now(),
	}

	roles := result.User.DistinctRoles()
	switch len(roles) {
	case 0:
		// Authenticated but unusable. Hard error, nothing persisted.
		return nil, &domain.NoRolesError{}
	case 1:
		flow.Role = roles[0]
		return s.scopeAcademicYears(ctx, flow)
	default:
		flow.Offered = roles
		flow.State = domain.FlowAwaitingRoleChoice
		if err := s.flows.Save(ctx, flow); err != nil {
			return nil, err
		}
		return &ports.FlowResult{
			State:  domain.FlowAwaitingRoleChoice,
			FlowID: flow.ID,
			Roles:  roleOptions(roles),
		}, nil
	}
}

// ChooseRole applies the user's pick from the role selection surface. Years
// are fetched for the chosen role only, never speculatively for the others.
func (s *LoginFlowService) ChooseRole(ctx context.Context, flowID string, role domain.Role) (*ports.FlowResult, error) {
	flow, err := s.flows.Find(ctx, flowID)
	if err != nil {
		return nil, err
	}

	if err := flow.ResolveRole(role); err != nil {
		return nil, err
	}

	// Park the flow as busy while the year fetch is in flight so a duplicate
	// submission cannot race it.
	flow.State = domain.FlowCommitting
	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return s.scopeAcademicYears(ctx, flow)
}

// ChooseAcademicYear confirms a highlighted year and commits the session.
func (s *LoginFlowService) ChooseAcademicYear(ctx context.Context, flowID string, yearID int) (*ports.FlowResult, error) {
	flow, err := s.flows.Find(ctx, flowID)
	if err != nil {
		return nil, err
	}

	year, err := flow.BeginCommit(yearID)
	if err != nil {
		return nil, err
	}

	if err := s.flows.Save(ctx, flow); err != nil {
		return nil, err
	}

	return s.commit(ctx, flow, year)
}

// Cancel dismisses a pending flow. Everything submitted so far is discarded;
// no session is written and nothing retries. Cancelling a flow that is mid-
// commit is refused, matching the disabled cancel control on the surface.
func (s *LoginFlowService) Cancel(ctx context.Context, flowID string) error {
	flow, err := s.flows.Find(ctx, flowID)
	if errors.Is(err, domain.ErrFlowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if flow.State == domain.FlowCommitting {
		return domain.ErrFlowBusy
	}

	if err := s.flows.Delete(ctx, flowID); err != nil {
		return err
	}
	metrics.FlowCancellations.Inc()
	return nil
}

// scopeAcademicYears runs the academic-year stage for the flow's resolved
// role. Any failure here aborts the whole flow: the user is sent back to the
// credential-entry state with no intermediate state kept.
func (s *LoginFlowService) scopeAcademicYears(ctx context.Context, flow *domain.LoginFlow) (*ports.FlowResult, error) {
	if !flow.Role.RequiresAcademicYear() {
		return s.commit(ctx, flow, nil)
	}

	set, err := s.backend.AcademicYearsForRole(ctx, flow.Token, flow.Role)
	if err != nil {
		s.abort(ctx, flow)
		return nil, err
	}

	switch len(set.Years) {
	case 0:
		s.abort(ctx, flow)
		return nil, &domain.NoAcademicYearsError{Role: flow.Role}
	case 1:
		// Sole entry auto-selects; the current-year marker never does.
		return s.commit(ctx, flow, &set.Years[0])
	default:
		flow.OfferYears(set)
		if err := s.flows.Save(ctx, flow); err != nil {
			return nil, err
		}
		return &ports.FlowResult{
			State:  domain.FlowAwaitingYearChoice,
			FlowID: flow.ID,
			Years:  &flow.Years,
		}, nil
	}
}

// commit writes the resolved session and retires the flow.
func (s *LoginFlowService) commit(ctx context.Context, flow *domain.LoginFlow, year *domain.AcademicYear) (*ports.FlowResult, error) {
	redirect, err := flow.Role.DashboardPath()
	if err != nil {
		s.abort(ctx, flow)
		return nil, err
	}

	session := domain.Session{
		Token:        flow.Token,
		User:         flow.User,
		Role:         flow.Role,
		AcademicYear: year,
	}
	if err := s.sessions.Commit(ctx, session); err != nil {
		s.abort(ctx, flow)
		return nil, err
	}

	if err := s.flows.Delete(ctx, flow.ID); err != nil {
		log.Printf("login flow: failed to retire flow %s: %v", flow.ID, err)
	}

	metrics.SessionCommits.Inc()
	s.recordSessionEvent(ctx, ports.SessionEvent{
		EventID:        uuid.NewString(),
		Type:           ports.SessionEstablished,
		UserID:         session.User.ID,
		Role:           string(session.Role),
		AcademicYearID: yearID(year),
		OccurredAt:     time.Now(),
	})

	return &ports.FlowResult{
		State:      domain.FlowEstablished,
		Session:    &session,
		RedirectTo: redirect,
	}, nil
}

// abort drops the pending flow so the next attempt starts clean.
func (s *LoginFlowService) abort(ctx context.Context, flow *domain.LoginFlow) {
	if err := s.flows.Delete(ctx, flow.ID); err != nil {
		log.Printf("login flow: failed to discard flow %s: %v", flow.ID, err)
	}
}

// Audit writes are best effort; a down audit store never blocks a login.
func (s *LoginFlowService) recordAttempt(ctx context.Context, identifier string, succeeded bool, reason string) {
	if s.audit == nil {
		return
	}
	attempt := ports.LoginAttempt{
		ID:         uuid.NewString(),
		Identifier: identifier,
		Succeeded:  succeeded,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	if err := s.audit.RecordLoginAttempt(ctx, attempt); err != nil {
		log.Printf("login flow: failed to record login attempt: %v", err)
	}
}

func (s *LoginFlowService) recordSessionEvent(ctx context.Context, evt ports.SessionEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordSessionEvent(ctx, evt); err != nil {
		log.Printf("login flow: failed to record session event: %v", err)
	}
}

func roleOptions(roles []domain.Role) []ports.RoleOption {
	options := make([]ports.RoleOption, 0, len(roles))
	for _, role := range roles {
		options = append(options, ports.RoleOption{Role: role, Label: role.Label()})
	}
	return options
}

func yearID(year *domain.AcademicYear) *int {
	if year == nil {
		return nil
	}
	return &year.ID
}
