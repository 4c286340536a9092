// Package backend is the REST client for the ticketing backend's identity
// endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/core/ports"
)

const (
	pathLogin    = "/api/auth/login"
	pathRegister = "/api/auth/register"
	pathMe       = "/api/users/me"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
)

// APIError is a non-2xx backend answer. It unwraps to the domain sentinel
// matching its status.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

// Client talks to the backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a Client for the backend at baseURL.
func New(baseURL string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   20,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
				ForceAttemptHTTP2:     true,
			},
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string { return c.baseURL }

var _ ports.IdentityAPI = (*Client)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"contraseña"`
}

type registerRequest struct {
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
	Password  string `json:"contraseña"`
}

type userResponse struct {
	ID        flexID `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email"`
	Role      string `json:"rol"`
}

func (u userResponse) toDomain() domain.User {
	return domain.User{
		ID:        string(u.ID),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      domain.ParseRole(u.Role),
	}
}

type loginResponse struct {
	AccessToken string        `json:"access_token"`
	User        *userResponse `json:"user"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token. A 401 is reported as
// domain.ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	var out loginResponse
	err := c.do(ctx, http.MethodPost, pathLogin, "", loginRequest{Email: email, Password: password}, &out)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				apiErr.kind = domain.ErrInvalidCredentials
			}
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if out.AccessToken == "" || out.User == nil || out.User.ID == "" {
		return nil, fmt.Errorf("login: %w", domain.ErrMalformedResponse)
	}
	return &ports.LoginResult{Token: out.AccessToken, User: out.User.toDomain()}, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, in ports.RegisterInput) error {
	body := registerRequest{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  in.Password,
	}
	if err := c.do(ctx, http.MethodPost, pathRegister, "", body, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodGet, pathMe, token, nil, &out); err != nil {
		return nil, fmt.Errorf("identity check: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("identity check: %w", domain.ErrMalformedResponse)
	}
	u := out.toDomain()
	return &u, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", domain.ErrBackendUnavailable, err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("body_length", len(raw)).
		Msg("backend response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrMalformedResponse, err)
	}
	return nil
}

func newAPIError(status int, raw []byte) *APIError {
	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	e := &APIError{Status: status, Message: body.Message}
	switch {
	case status == http.StatusUnauthorized:
		e.kind = domain.ErrSessionExpired
	case status == http.StatusForbidden:
		e.kind = domain.ErrForbidden
	case status == http.StatusNotFound:
		e.kind = domain.ErrUserNotFound
	case status == http.StatusConflict:
		e.kind = domain.ErrUserExists
	case status >= 500:
		e.kind = domain.ErrBackendUnavailable
	default:
		e.kind = domain.ErrRejected
	}
	return e
}

// flexID accepts an id sent either as a JSON number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", b)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = flexID(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexID(n.String())
	return nil
}

// Message returns the backend's user-facing message carried by err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
