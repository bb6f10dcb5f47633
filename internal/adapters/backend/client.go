package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/tambongslade/SMS-Simbtech-sub004/internal/config"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/domain"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/core/ports"
	"github.com/tambongslade/SMS-Simbtech-sub004/internal/metrics"
)

// Client talks to the remote school-management REST backend. All business
// logic (fee computation, grading, scheduling) lives behind these endpoints;
// this side only authenticates and reads.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

var _ ports.SchoolBackend = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         config.NewCircuitBreaker("School-API"),
	}
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (e envelope) errorMessage() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

type loginRequest struct {
	Email     string `json:"email,omitempty"`
	Matricule string `json:"matricule,omitempty"`
	Password  string `json:"password"`
}

type loginData struct {
	Token string          `json:"token"`
	User  domain.Identity `json:"user"`
}

// Login performs the credential check. The result is returned raw; nothing is
// persisted until role and academic year are resolved.
func (c *Client) Login(ctx context.Context, creds ports.Credentials) (*ports.LoginResult, error) {
	body, err := json.Marshal(loginRequest{
		Email:     creds.Email,
		Matricule: creds.Matricule,
		Password:  creds.Password,
	})
	if err != nil {
		return nil, err
	}

	resp, env, err := c.do(ctx, http.MethodPost, "/auth/login", "", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 500 {
			return nil, &domain.ServerError{Status: resp.StatusCode, Message: env.errorMessage()}
		}
		return nil, &domain.AuthenticationError{Message: env.errorMessage()}
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode login payload: %w", err)
	}
	if data.Token == "" {
		return nil, &domain.AuthenticationError{Message: "login response carried no token"}
	}

	return &ports.LoginResult{Token: data.Token, User: data.User}, nil
}

// AcademicYearsForRole fetches the years the authenticated identity may
// operate under for the given role. The list is never filtered or extended
// client-side.
func (c *Client) AcademicYearsForRole(ctx context.Context, token string, role domain.Role) (domain.AcademicYearSet, error) {
	path := "/academic-years/available-for-role?role=" + url.QueryEscape(string(role))

	resp, env, err := c.do(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return domain.AcademicYearSet{}, err
	}
	if err := checkAuthenticated(resp, env); err != nil {
		return domain.AcademicYearSet{}, err
	}

	var set domain.AcademicYearSet
	if err := json.Unmarshal(env.Data, &set); err != nil {
		return domain.AcademicYearSet{}, fmt.Errorf("decode academic years payload: %w", err)
	}
	return set, nil
}

// Me refreshes the identity snapshot for an established session.
func (c *Client) Me(ctx context.Context, token string) (*domain.Identity, error) {
	resp, env, err := c.do(ctx, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return nil, err
	}
	if err := checkAuthenticated(resp, env); err != nil {
		return nil, err
	}

	var user domain.Identity
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("decode profile payload: %w", err)
	}
	return &user, nil
}

// checkAuthenticated maps non-2xx statuses on bearer-authenticated requests.
// Every 401, wherever it occurs, becomes SessionExpiredError so the global
// invalidation policy kicks in.
func checkAuthenticated(resp *http.Response, env envelope) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &domain.SessionExpiredError{}
	default:
		return &domain.ServerError{Status: resp.StatusCode, Message: env.errorMessage()}
	}
}

// do issues one request through the circuit breaker and decodes the envelope.
// A body that fails to decode is reported as an empty envelope; status-code
// handling stays with the caller.
func (c *Client) do(ctx context.Context, method, path, token string, body io.Reader) (*http.Response, envelope, error) {
	endpoint := metricEndpoint(path)
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &domain.NetworkError{Err: err}
		}
		defer resp.Body.Close()

		var env envelope
		_ = json.NewDecoder(resp.Body).Decode(&env)

		return &response{resp: resp, env: env}, nil
	})

	metrics.BackendLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendRequests.WithLabelValues(endpoint, "error").Inc()
		var netErr *domain.NetworkError
		if !errors.As(err, &netErr) {
			// Breaker-open and request-build failures are transport-level
			// from the caller's point of view.
			err = &domain.NetworkError{Err: err}
		}
		return nil, envelope{}, err
	}

	r := result.(*response)
	metrics.BackendRequests.WithLabelValues(endpoint, strconv.Itoa(r.resp.StatusCode)).Inc()
	return r.resp, r.env, nil
}

type response struct {
	resp *http.Response
	env  envelope
}

func metricEndpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
