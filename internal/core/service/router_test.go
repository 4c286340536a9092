package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

func authed(role domain.Role) domain.State {
	return domain.Authenticated{User: domain.User{ID: "1", Role: role}}
}

func TestRouter_Decide(t *testing.T) {
	r := NewRouter(DefaultRoutes())

	tests := []struct {
		name  string
		state domain.State
		path  string
		want  Decision
	}{
		{"public login while logged out", domain.Unauthenticated{}, "/login", Decision{Kind: DecisionRender, View: "login"}},
		{"public register while resolving", domain.Resolving{}, "/register", Decision{Kind: DecisionRender, View: "register"}},
		{"public login while authenticated", authed(domain.RoleAdmin), "/login", Decision{Kind: DecisionRender, View: "login"}},
		{"client home", authed(domain.RoleUsuario), "/home", Decision{Kind: DecisionRender, View: "client"}},
		{"admin panel", authed(domain.RoleAdmin), "/admin", Decision{Kind: DecisionRender, View: "admin"}},
		{"driver panel", authed(domain.RoleChofer), "/driver", Decision{Kind: DecisionRender, View: "driver"}},
		{"trailing slash", authed(domain.RoleChofer), "/driver/", Decision{Kind: DecisionRender, View: "driver"}},
		{"chofer asks for admin", authed(domain.RoleChofer), "/admin", Decision{Kind: DecisionRedirect, Path: "/driver"}},
		{"usuario asks for driver", authed(domain.RoleUsuario), "/driver", Decision{Kind: DecisionRedirect, Path: "/home"}},
		{"admin asks for client home", authed(domain.RoleAdmin), "/home", Decision{Kind: DecisionRedirect, Path: "/admin"}},
		{"unknown role", authed("supervisor"), "/home", Decision{Kind: DecisionRedirect, Path: "/login"}},
		{"resolving never redirects", domain.Resolving{}, "/admin", Decision{Kind: DecisionLoading, View: "loading"}},
		{"logged out", domain.Unauthenticated{Reason: domain.ReasonLoggedOut}, "/home", Decision{Kind: DecisionRedirect, Path: "/login"}},
		{
			"resolution error carries notice",
			domain.Unauthenticated{Reason: domain.ReasonError, Message: "retry"},
			"/admin",
			Decision{Kind: DecisionRedirect, Path: "/login", Notice: "retry"},
		},
		{"unknown path", authed(domain.RoleAdmin), "/reports", Decision{Kind: DecisionRedirect, Path: "/login"}},
		{"root path", authed(domain.RoleAdmin), "/", Decision{Kind: DecisionRedirect, Path: "/login"}},
		{"nil state", nil, "/home", Decision{Kind: DecisionRedirect, Path: "/login"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Decide(tt.state, tt.path))
		})
	}
}

func TestRouter_Lookup(t *testing.T) {
	r := NewRouter(DefaultRoutes())

	rt, ok := r.Lookup("/admin/")
	assert.True(t, ok)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, rt.Roles)

	_, ok = r.Lookup("/nope")
	assert.False(t, ok)
}
