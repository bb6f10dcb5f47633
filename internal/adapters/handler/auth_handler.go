package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/adapters/middleware"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
)

type AuthHandler struct {
	flows    ports.LoginFlowService
	sessions ports.SessionService
	auth     *middleware.AuthMiddleware
}

func NewAuthHandler(flows ports.LoginFlowService, sessions ports.SessionService, auth *middleware.AuthMiddleware) *AuthHandler {
	return &AuthHandler{flows: flows, sessions: sessions, auth: auth}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Matricule  string `json:"matricule"`
	Password   string `json:"password"`
}

// identifierOf folds the legacy email/matricule fields into one identifier;
// the flow routes on the '@' character either way.
func (r loginRequest) identifierOf() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	default:
		return r.Matricule
	}
}

type roleChoiceRequest struct {
	FlowID string `json:"flowId"`
	Role   string `json:"role"`
}

type yearChoiceRequest struct {
	FlowID         string `json:"flowId"`
	AcademicYearID int    `json:"academicYearId"`
}

type cancelRequest struct {
	FlowID string `json:"flowId"`
}

// Login starts the flow: verify credentials, then either establish the
// session directly or report which choice is still outstanding.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.flows.SubmitCredentials(r.Context(), req.identifierOf(), req.Password)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ChooseRole applies the selection from the role surface.
func (h *AuthHandler) ChooseRole(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req roleChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FlowID == "" || req.Role == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.flows.ChooseRole(r.Context(), req.FlowID, domain.Role(req.Role))
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ChooseAcademicYear confirms the highlighted year and commits the session.
func (h *AuthHandler) ChooseAcademicYear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req yearChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FlowID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.flows.ChooseAcademicYear(r.Context(), req.FlowID, req.AcademicYearID)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CancelLogin dismisses a pending choice surface; credentials already
// submitted are discarded.
func (h *AuthHandler) CancelLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FlowID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.flows.Cancel(r.Context(), req.FlowID); err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "login cancelled"})
}

// Session re-hydrates the caller's session, e.g. on application start.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := middleware.SessionFrom(r.Context())
	redirect, err := session.Role.DashboardPath()
	if err != nil {
		writeFlowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ports.FlowResult{
		State:      domain.FlowEstablished,
		Session:    session,
		RedirectTo: redirect,
	})
}

// Me proxies the profile refresh; the 401 policy applies like anywhere else.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := middleware.TokenFrom(r.Context())
	user, err := h.sessions.Me(r.Context(), token)
	if err != nil {
		if h.auth.HandleUpstreamError(w, r, token, err) {
			return
		}
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Logout destroys the session wholesale.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := middleware.TokenFrom(r.Context())
	if err := h.sessions.Logout(r.Context(), token); err != nil {
		writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeFlowError maps the error taxonomy onto HTTP statuses. The retryable
// flag tells the client whether offering a retry action makes sense.
func writeFlowError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var (
		authErr    *domain.AuthenticationError
		netErr     *domain.NetworkError
		serverErr  *domain.ServerError
		expiredErr *domain.SessionExpiredError
		noRoles    *domain.NoRolesError
		noYears    *domain.NoAcademicYearsError
		badRole    *domain.UnknownRoleError
	)

	switch {
	case errors.As(err, &authErr), errors.As(err, &expiredErr):
		status = http.StatusUnauthorized
	case errors.As(err, &netErr), errors.As(err, &serverErr):
		status = http.StatusBadGateway
	case errors.As(err, &noRoles), errors.As(err, &noYears):
		status = http.StatusForbidden
	case errors.As(err, &badRole):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrFlowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrFlowBusy), errors.Is(err, domain.ErrFlowConflict):
		status = http.StatusConflict
	}

	writeJSON(w, status, map[string]any{
		"error":     err.Error(),
		"retryable": domain.Retryable(err),
	})
}
