package domain

import (
	"errors"
	"testing"
)

func pendingRoleFlow() *LoginFlow {
	return &LoginFlow{
		ID:      "flow-1",
		State:   FlowAwaitingRoleChoice,
		Token:   "tok",
		Offered: []Role{RolePrincipal, RoleTeacher},
	}
}

func TestResolveRole_OfferedRole(t *testing.T) {
	flow := pendingRoleFlow()

	if err := flow.ResolveRole(RolePrincipal); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flow.Role != RolePrincipal {
		t.Errorf("resolved role = %s, want PRINCIPAL", flow.Role)
	}
}

func TestResolveRole_UnofferedRoleRejected(t *testing.T) {
	flow := pendingRoleFlow()

	err := flow.ResolveRole(RoleBursar)
	var unknownErr *UnknownRoleError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownRoleError, got %v", err)
	}
	if flow.Role != "" {
		t.Error("rejected choice must not advance the flow")
	}
}

func TestResolveRole_WrongState(t *testing.T) {
	flow := pendingRoleFlow()
	flow.State = FlowAwaitingYearChoice

	if err := flow.ResolveRole(RoleTeacher); !errors.Is(err, ErrFlowConflict) {
		t.Fatalf("expected ErrFlowConflict, got %v", err)
	}
}

func TestGuard_CommittingReportsBusy(t *testing.T) {
	flow := pendingRoleFlow()
	flow.State = FlowCommitting

	if err := flow.ResolveRole(RoleTeacher); !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("expected ErrFlowBusy, got %v", err)
	}
	if _, err := flow.BeginCommit(1); !errors.Is(err, ErrFlowBusy) {
		t.Fatalf("expected ErrFlowBusy, got %v", err)
	}
}

func TestBeginCommit(t *testing.T) {
	flow := pendingRoleFlow()
	flow.Role = RolePrincipal
	flow.OfferYears(AcademicYearSet{Years: []AcademicYear{
		{ID: 4, Name: "2023-2024"},
		{ID: 5, Name: "2024-2025", IsCurrent: true},
	}})

	year, err := flow.BeginCommit(5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if year.ID != 5 || !year.IsCurrent {
		t.Errorf("unexpected year: %+v", year)
	}
	if flow.State != FlowCommitting {
		t.Errorf("state = %s, want COMMITTING", flow.State)
	}
}

func TestBeginCommit_UnofferedYear(t *testing.T) {
	flow := pendingRoleFlow()
	flow.Role = RolePrincipal
	flow.OfferYears(AcademicYearSet{Years: []AcademicYear{{ID: 4, Name: "2023-2024"}}})

	if _, err := flow.BeginCommit(99); !errors.Is(err, ErrFlowConflict) {
		t.Fatalf("expected ErrFlowConflict, got %v", err)
	}
	if flow.State == FlowCommitting {
		t.Error("rejected confirmation must not enter Committing")
	}
}

func TestSessionValid(t *testing.T) {
	base := Session{
		Token: "tok",
		User:  Identity{ID: 1, Name: "A"},
		Role:  RoleTeacher,
	}

	if base.Valid() {
		t.Error("year-scoped role without a year must be invalid")
	}

	base.AcademicYear = &AcademicYear{ID: 5}
	if !base.Valid() {
		t.Error("complete session must be valid")
	}

	parent := Session{Token: "tok", User: Identity{ID: 2}, Role: RoleParent}
	if !parent.Valid() {
		t.Error("parent session without a year must be valid")
	}

	if (Session{Role: RoleParent, User: Identity{ID: 2}}).Valid() {
		t.Error("session without a token must be invalid")
	}
}
