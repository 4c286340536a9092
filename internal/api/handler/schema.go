package handler

import (
	"github.com/shuttlepass/ticket-portal/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"      validate:"required,email"`
	Password string `json:"contraseña" validate:"required"`
}

type registerRequest struct {
	FirstName string `json:"nombre"     validate:"required,max=80"`
	LastName  string `json:"apellido"   validate:"required,max=80"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"contraseña" validate:"required,min=6"`
}

type userBody struct {
	ID        string `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"rol"`
}

type redirectResponse struct {
	Redirect string    `json:"redirect"`
	User     *userBody `json:"user,omitempty"`
}

type sessionResponse struct {
	State       string    `json:"state"`
	Reason      string    `json:"reason,omitempty"`
	Message     string    `json:"message,omitempty"`
	Provisional bool      `json:"provisional,omitempty"`
	Home        string    `json:"home,omitempty"`
	User        *userBody `json:"user,omitempty"`
}

type viewResponse struct {
	View   string    `json:"view"`
	Notice string    `json:"notice,omitempty"`
	User   *userBody `json:"user,omitempty"`
}

type navigationEvent struct {
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason"`
}

func toUserBody(u domain.User) *userBody {
	return &userBody{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
	}
}

func toSessionResponse(st domain.State) sessionResponse {
	resp := sessionResponse{State: string(st.Kind())}
	switch s := st.(type) {
	case domain.Unauthenticated:
		resp.Reason = string(s.Reason)
		resp.Message = s.Message
	case domain.Authenticated:
		resp.Provisional = s.Provisional
		resp.Home = s.User.Role.HomePath()
		resp.User = toUserBody(s.User)
	}
	return resp
}
