package domain

// StateKind names a variant of State.
type StateKind string

const (
	KindUnauthenticated StateKind = "unauthenticated"
	KindResolving       StateKind = "resolving"
	KindAuthenticated   StateKind = "authenticated"
)

// Reason explains why a tab is unauthenticated.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonLoggedOut    Reason = "logged_out"
	ReasonExpired      Reason = "expired"
	ReasonError        Reason = "error"
	ReasonRemoteLogout Reason = "remote_logout"
)

// State is the session state of one tab. Exactly one of Unauthenticated,
// Resolving or Authenticated.
type State interface {
	Kind() StateKind
	isState()
}

// Unauthenticated carries the reason the tab has no session. With
// ReasonError the stored token is still present and Message is user-facing.
type Unauthenticated struct {
	Reason  Reason
	Message string
}

// Resolving means a stored token is being validated.
type Resolving struct{}

// Authenticated holds the resolved user. Provisional is set when the user
// was adopted from another tab's cached summary and has not been validated
// by this tab yet.
type Authenticated struct {
	User        User
	Provisional bool
}

func (Unauthenticated) Kind() StateKind { return KindUnauthenticated }
func (Resolving) Kind() StateKind       { return KindResolving }
func (Authenticated) Kind() StateKind   { return KindAuthenticated }

func (Unauthenticated) isState() {}
func (Resolving) isState()       {}
func (Authenticated) isState()   {}

// Navigation tells a tab where to go after a state change it did not ask
// for. An empty Path means "re-evaluate the current route".
type Navigation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}
