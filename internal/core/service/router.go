package service

import (
	"strings"

	"github.com/shuttlepass/ticket-portal/internal/core/domain"
	"github.com/shuttlepass/ticket-portal/internal/pkg/metrics"
)

// DecisionKind is what a tab should do with a requested path.
type DecisionKind string

const (
	DecisionRender   DecisionKind = "render"
	DecisionRedirect DecisionKind = "redirect"
	DecisionLoading  DecisionKind = "loading"
)

// Decision is the router's answer for one navigation. View is set for
// render decisions, Path for redirects. Notice carries a user-facing message
// to show on the redirect target.
type Decision struct {
	Kind   DecisionKind
	View   string
	Path   string
	Notice string
}

// Route is one entry of the route table. Public routes never consult the
// session.
type Route struct {
	Path   string
	View   string
	Public bool
	Roles  []domain.Role
}

// DefaultRoutes is the portal's route table.
func DefaultRoutes() []Route {
	return []Route{
		{Path: domain.PathLogin, View: "login", Public: true},
		{Path: domain.PathRegister, View: "register", Public: true},
		{Path: domain.PathHome, View: "client", Roles: []domain.Role{domain.RoleUsuario}},
		{Path: domain.PathAdmin, View: "admin", Roles: []domain.Role{domain.RoleAdmin}},
		{Path: domain.PathDriver, View: "driver", Roles: []domain.Role{domain.RoleChofer}},
	}
}

// Router maps (session state, path) to a Decision. It has no side effects.
type Router struct {
	routes map[string]Route
}

// NewRouter builds a Router over routes.
func NewRouter(routes []Route) *Router {
	r := &Router{routes: make(map[string]Route, len(routes))}
	for _, rt := range routes {
		r.routes[normalizePath(rt.Path)] = rt
	}
	return r
}

// Lookup returns the route registered for path.
func (r *Router) Lookup(path string) (Route, bool) {
	rt, ok := r.routes[normalizePath(path)]
	return rt, ok
}

// Decide applies the route guard. Unknown paths and unknown roles fail
// closed to the login page; a Resolving session never redirects.
func (r *Router) Decide(state domain.State, path string) Decision {
	d := r.decide(state, path)
	metrics.RouteDecisionsTotal.WithLabelValues(string(d.Kind)).Inc()
	return d
}

func (r *Router) decide(state domain.State, path string) Decision {
	route, ok := r.Lookup(path)
	if !ok {
		return redirect(domain.PathLogin, "")
	}
	if route.Public {
		return Decision{Kind: DecisionRender, View: route.View}
	}

	switch st := state.(type) {
	case domain.Resolving:
		return Decision{Kind: DecisionLoading, View: "loading"}

	case domain.Authenticated:
		role := st.User.Role
		if !role.Known() {
			return redirect(domain.PathLogin, "")
		}
		for _, allowed := range route.Roles {
			if allowed == role {
				return Decision{Kind: DecisionRender, View: route.View}
			}
		}
		return redirect(role.HomePath(), "")

	case domain.Unauthenticated:
		return redirect(domain.PathLogin, st.Message)

	default:
		return redirect(domain.PathLogin, "")
	}
}

func redirect(path, notice string) Decision {
	return Decision{Kind: DecisionRedirect, Path: path, Notice: notice}
}

func normalizePath(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
