package auth

import (
	"github.com/caroduarte/lumina-backend/internal/users"
)

// RegisterRequest captures the payload for a new client account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the bearer token and user produced by a successful
// register or login.
type AuthResponse struct {
	Token string         `json:"token"`
	User  *users.UserDTO `json:"user"`
}

// SessionExchangeResponse mirrors AuthResponse for the hosted-auth exchange;
// the token is the broker-issued session token.
type SessionExchangeResponse struct {
	Token string         `json:"token"`
	User  *users.UserDTO `json:"user"`
}
