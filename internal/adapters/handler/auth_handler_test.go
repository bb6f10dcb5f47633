package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/middleware"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/services"
	"github.com/tambongslade/SMS-Simbtech-sub004/test/mocks"
)

type handlerFixture struct {
	backend *mocks.MockSchoolBackend
	store   *mocks.MockSessionStore
	handler *AuthHandler
}

func newHandlerFixture() *handlerFixture {
	backend := mocks.NewMockSchoolBackend()
	store := mocks.NewMockSessionStore()
	flows := mocks.NewMockFlowRepository()
	audit := mocks.NewMockAuditRepository()

	flowService := services.NewLoginFlowService(backend, store, flows, audit)
	sessionService := services.NewSessionService(backend, store, audit)
	auth := middleware.NewAuthMiddleware(sessionService)

	return &handlerFixture{
		backend: backend,
		store:   store,
		handler: NewAuthHandler(flowService, sessionService, auth),
	}
}

func teacherLoginResult(token string) *ports.LoginResult {
	return &ports.LoginResult{
		Token: token,
		User: domain.Identity{
			ID:    7,
			Name:  "Amara Fon",
			Email: "amara@school.cm",
			Roles: []domain.RoleGrant{{Role: domain.RoleTeacher}},
		},
	}
}

func singleYearSet() domain.AcademicYearSet {
	current := 5
	return domain.AcademicYearSet{
		Years:         []domain.AcademicYear{{ID: 5, Name: "2024-2025", IsCurrent: true, Status: domain.YearActive}},
		CurrentYearID: &current,
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) ports.FlowResult {
	t.Helper()
	var result ports.FlowResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}

func TestLogin_EstablishesSession(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginResult = teacherLoginResult("tok-1")
	f.backend.YearsByRole[domain.RoleTeacher] = singleYearSet()

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"identifier": "amara@school.cm", "password": "pw"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := decodeResult(t, rec)
	if result.State != domain.FlowEstablished {
		t.Errorf("state = %s, want ESTABLISHED", result.State)
	}
	if result.RedirectTo != "/dashboard/teacher" {
		t.Errorf("redirect = %q, want /dashboard/teacher", result.RedirectTo)
	}
	if result.Session == nil || result.Session.Token != "tok-1" {
		t.Errorf("session = %+v", result.Session)
	}
}

func TestLogin_PresentsRoleChoice(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginResult = &ports.LoginResult{
		Token: "tok-2",
		User: domain.Identity{
			ID:   7,
			Name: "Amara Fon",
			Roles: []domain.RoleGrant{
				{Role: domain.RolePrincipal},
				{Role: domain.RoleTeacher},
			},
		},
	}

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"email": "amara@school.cm", "password": "pw"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := decodeResult(t, rec)
	if result.State != domain.FlowAwaitingRoleChoice {
		t.Errorf("state = %s, want AWAITING_ROLE_CHOICE", result.State)
	}
	if result.FlowID == "" {
		t.Error("response must carry the flow id")
	}
	if len(result.Roles) != 2 {
		t.Errorf("roles = %+v", result.Roles)
	}
}

func TestLogin_RejectedCredentials(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginError = &domain.AuthenticationError{Message: "Invalid credentials"}

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"identifier": "amara@school.cm", "password": "nope"}`)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Invalid credentials" {
		t.Errorf("error = %v", body["error"])
	}
	if body["retryable"] != true {
		t.Error("credential rejections must be flagged retryable")
	}
}

func TestLogin_BadBody(t *testing.T) {
	f := newHandlerFixture()

	rec := postJSON(t, f.handler.Login, "/auth/login", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestLogin_MethodNotAllowed(t *testing.T) {
	f := newHandlerFixture()

	rec := httptest.NewRecorder()
	f.handler.Login(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestChooseRole_CompletesFlow(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginResult = &ports.LoginResult{
		Token: "tok-3",
		User: domain.Identity{
			ID:   7,
			Name: "Amara Fon",
			Roles: []domain.RoleGrant{
				{Role: domain.RolePrincipal},
				{Role: domain.RoleTeacher},
			},
		},
	}
	f.backend.YearsByRole[domain.RoleTeacher] = singleYearSet()

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"identifier": "amara@school.cm", "password": "pw"}`)
	pending := decodeResult(t, rec)

	rec = postJSON(t, f.handler.ChooseRole, "/auth/login/role",
		`{"flowId": "`+pending.FlowID+`", "role": "TEACHER"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := decodeResult(t, rec)
	if result.State != domain.FlowEstablished {
		t.Errorf("state = %s, want ESTABLISHED", result.State)
	}
	if result.Session.Role != domain.RoleTeacher {
		t.Errorf("role = %s, want TEACHER", result.Session.Role)
	}
}

func TestChooseRole_UnknownFlow(t *testing.T) {
	f := newHandlerFixture()

	rec := postJSON(t, f.handler.ChooseRole, "/auth/login/role", `{"flowId": "gone", "role": "TEACHER"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestChooseRole_MissingFields(t *testing.T) {
	f := newHandlerFixture()

	rec := postJSON(t, f.handler.ChooseRole, "/auth/login/role", `{"flowId": "x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChooseAcademicYear_CompletesFlow(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginResult = teacherLoginResult("tok-4")
	current := 5
	f.backend.YearsByRole[domain.RoleTeacher] = domain.AcademicYearSet{
		Years: []domain.AcademicYear{
			{ID: 4, Name: "2023-2024", Status: domain.YearCompleted},
			{ID: 5, Name: "2024-2025", IsCurrent: true, Status: domain.YearActive},
		},
		CurrentYearID: &current,
	}

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"identifier": "amara@school.cm", "password": "pw"}`)
	pending := decodeResult(t, rec)
	if pending.State != domain.FlowAwaitingYearChoice {
		t.Fatalf("state = %s, want AWAITING_YEAR_CHOICE", pending.State)
	}

	rec = postJSON(t, f.handler.ChooseAcademicYear, "/auth/login/academic-year",
		`{"flowId": "`+pending.FlowID+`", "academicYearId": 4}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	result := decodeResult(t, rec)
	if result.Session.AcademicYear == nil || result.Session.AcademicYear.ID != 4 {
		t.Errorf("academic year = %+v, want id 4", result.Session.AcademicYear)
	}
}

func TestCancelLogin(t *testing.T) {
	f := newHandlerFixture()
	f.backend.LoginResult = &ports.LoginResult{
		Token: "tok-5",
		User: domain.Identity{
			ID:   7,
			Name: "Amara Fon",
			Roles: []domain.RoleGrant{
				{Role: domain.RolePrincipal},
				{Role: domain.RoleTeacher},
			},
		},
	}

	rec := postJSON(t, f.handler.Login, "/auth/login", `{"identifier": "amara@school.cm", "password": "pw"}`)
	pending := decodeResult(t, rec)

	rec = postJSON(t, f.handler.CancelLogin, "/auth/login/cancel", `{"flowId": "`+pending.FlowID+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// The flow is gone; choosing now reports not found.
	rec = postJSON(t, f.handler.ChooseRole, "/auth/login/role",
		`{"flowId": "`+pending.FlowID+`", "role": "TEACHER"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after cancel = %d, want 404", rec.Code)
	}
}

func TestMe_ExpiredSessionRedirects(t *testing.T) {
	f := newHandlerFixture()
	f.backend.MeError = &domain.SessionExpiredError{}

	// Establish a session, then simulate the backend reporting 401 on /auth/me.
	session := domain.Session{
		Token:        "tok-6",
		User:         domain.Identity{ID: 7, Name: "Amara Fon", Roles: []domain.RoleGrant{{Role: domain.RoleTeacher}}},
		Role:         domain.RoleTeacher,
		AcademicYear: &domain.AcademicYear{ID: 5, Name: "2024-2025"},
	}
	if err := f.store.Commit(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.TokenKey, "tok-6"))
	rec := httptest.NewRecorder()
	f.handler.Me(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("Location") != middleware.LoginPath {
		t.Error("first expiry must carry the login redirect")
	}
	if _, ok := f.store.Sessions()["tok-6"]; ok {
		t.Error("expired session must be invalidated")
	}
}
