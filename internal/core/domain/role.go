package domain

import "strings"

// Role is a flat classification of a user. Each role reaches exactly one
// top-level view; roles are not hierarchical.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUsuario Role = "usuario"
	RoleChofer  Role = "chofer"
)

// Portal paths.
const (
	PathLogin    = "/login"
	PathRegister = "/register"
	PathHome     = "/home"
	PathAdmin    = "/admin"
	PathDriver   = "/driver"
)

var homePaths = map[Role]string{
	RoleAdmin:   PathAdmin,
	RoleUsuario: PathHome,
	RoleChofer:  PathDriver,
}

// ParseRole normalizes a role received from the backend. Unknown values are
// kept (lower-cased) so routing can fail closed on them.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// Known reports whether r is one of the three roles the portal can route.
func (r Role) Known() bool {
	_, ok := homePaths[r]
	return ok
}

// HomePath returns the landing path for r, or the login path for an unknown role.
func (r Role) HomePath() string {
	if p, ok := homePaths[r]; ok {
		return p
	}
	return PathLogin
}
