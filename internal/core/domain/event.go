package domain

import "time"

// SessionEventKind classifies an audited session transition.
type SessionEventKind string

const (
	EventLogin           SessionEventKind = "login"
	EventLogout          SessionEventKind = "logout"
	EventExpired         SessionEventKind = "expired"
	EventResolveFailed   SessionEventKind = "resolve_failed"
	EventRemoteLogout    SessionEventKind = "remote_logout"
	EventIdentityChanged SessionEventKind = "identity_changed"
)

// SessionEvent records a lifecycle transition of one tab's session.
type SessionEvent struct {
	ID        string
	ProfileID string
	TabID     string
	UserID    string
	Role      Role
	Kind      SessionEventKind
	Detail    string
	Timestamp time.Time
}
