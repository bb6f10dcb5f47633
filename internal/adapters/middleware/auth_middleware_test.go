package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/services"
	"github.com/tambongslade/SMS-Simbtech-sub004/test/mocks"
)

func newMiddleware(t *testing.T) (*AuthMiddleware, *mocks.MockSessionStore) {
	t.Helper()
	store := mocks.NewMockSessionStore()
	service := services.NewSessionService(mocks.NewMockSchoolBackend(), store, mocks.NewMockAuditRepository())
	return NewAuthMiddleware(service), store
}

func seedSession(t *testing.T, store *mocks.MockSessionStore, token string, role domain.Role) {
	t.Helper()
	session := domain.Session{
		Token: token,
		User: domain.Identity{
			ID:    7,
			Name:  "Amara Fon",
			Roles: []domain.RoleGrant{{Role: role}},
		},
		Role: role,
	}
	if role.RequiresAcademicYear() {
		session.AcademicYear = &domain.AcademicYear{ID: 5, Name: "2024-2025", IsCurrent: true}
	}
	if err := store.Commit(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func TestRequireSession_MissingHeader(t *testing.T) {
	mw, _ := newMiddleware(t)
	handler := mw.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a bearer token")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get("Location") != "" {
		t.Error("a plain 401 must not carry the login redirect")
	}
}

func TestRequireSession_MalformedHeader(t *testing.T) {
	mw, _ := newMiddleware(t)
	handler := mw.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})

	for _, header := range []string{"Bearer", "Basic abc", "Bearer ", "tok-1"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireSession_NoSession(t *testing.T) {
	mw, _ := newMiddleware(t)
	handler := mw.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a session")
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer unknown")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireSession_InjectsSession(t *testing.T) {
	mw, store := newMiddleware(t)
	seedSession(t, store, "tok-ok", domain.RoleTeacher)

	var gotSession *domain.Session
	var gotToken string
	handler := mw.RequireSession(func(w http.ResponseWriter, r *http.Request) {
		gotSession = SessionFrom(r.Context())
		gotToken = TokenFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer tok-ok")
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSession == nil || gotSession.Role != domain.RoleTeacher {
		t.Errorf("session = %+v, want TEACHER session", gotSession)
	}
	if gotToken != "tok-ok" {
		t.Errorf("token = %q, want tok-ok", gotToken)
	}
}

func TestRequireRole(t *testing.T) {
	mw, store := newMiddleware(t)
	seedSession(t, store, "tok-role", domain.RoleBursar)

	allowed := mw.RequireRole([]domain.Role{domain.RoleBursar, domain.RolePrincipal}, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	denied := mw.RequireRole([]domain.Role{domain.RoleSuperManager}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for an excluded role")
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer tok-role")
	rec := httptest.NewRecorder()
	allowed(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("allowed role: status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer tok-role")
	rec = httptest.NewRecorder()
	denied(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("excluded role: status = %d, want 403", rec.Code)
	}
}

// Several in-flight requests can observe a 401 from the backend for the same
// token. Each gets a 401 response, but only the first carries the login
// redirect.
func TestHandleUpstreamError_RedirectsExactlyOnce(t *testing.T) {
	mw, store := newMiddleware(t)
	seedSession(t, store, "tok-u", domain.RoleTeacher)

	expired := &domain.SessionExpiredError{}
	redirects := 0
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		rec := httptest.NewRecorder()

		if consumed := mw.HandleUpstreamError(rec, req, "tok-u", expired); !consumed {
			t.Fatalf("request %d: expired error must be consumed", i)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("request %d: status = %d, want 401", i, rec.Code)
		}
		if rec.Header().Get("Location") == LoginPath {
			redirects++
		}
	}

	if redirects != 1 {
		t.Fatalf("got %d login redirects, want exactly 1", redirects)
	}
}

func TestHandleUpstreamError_IgnoresOtherErrors(t *testing.T) {
	mw, store := newMiddleware(t)
	seedSession(t, store, "tok-keep", domain.RoleTeacher)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()

	err := &domain.ServerError{Status: 502, Message: "bad gateway"}
	if consumed := mw.HandleUpstreamError(rec, req, "tok-keep", err); consumed {
		t.Fatal("non-expiry errors must not be consumed")
	}

	// The session survives; only expiry tears it down.
	if _, ok := store.Sessions()["tok-keep"]; !ok {
		t.Error("session must not be invalidated for a non-expiry error")
	}
}
