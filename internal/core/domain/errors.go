package domain

import "errors"

var (
	// ErrSessionExpired is a 401 on an authenticated call: the credential is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is a 403: the credential is fine, the role is not allowed.
	ErrForbidden = errors.New("access forbidden")
	// ErrBackendUnavailable covers network failures, timeouts and 5xx responses.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformedResponse is a 2xx whose body is missing expected fields.
	ErrMalformedResponse = errors.New("malformed backend response")
	// ErrRejected is any other non-2xx answer.
	ErrRejected = errors.New("request rejected")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)
