package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// User is the identity returned by the backend for a validated token.
type User struct {
	ID        string `json:"id"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"email,omitempty"`
	Role      Role   `json:"rol"`
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Summary returns the denormalized form cached next to the token.
func (u User) Summary() Summary {
	return Summary{ID: u.ID, Name: u.DisplayName(), Role: u.Role}
}

// Summary is the cached user record stored under KeyUser.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Encode renders the summary as stored JSON.
func (s Summary) Encode() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// ParseSummary decodes a stored summary and normalizes its role.
func ParseSummary(raw string) (Summary, error) {
	var s Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Summary{}, fmt.Errorf("parse user summary: %w", err)
	}
	if s.ID == "" || s.Role == "" {
		return Summary{}, fmt.Errorf("parse user summary: %w", ErrMalformedResponse)
	}
	s.Role = ParseRole(string(s.Role))
	return s, nil
}
