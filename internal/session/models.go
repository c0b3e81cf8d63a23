package session

import "time"

// This file contains pure domain models for the session core: entities that
// should not depend on transport or HTTP-specific concerns.

// TokenPair is the credential quadruple owned by the Manager and mirrored
// write-through into the credential store. Both expiries are absolute
// instants, computed from server-declared TTLs at issuance time.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Status tags the session state.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
)

// State is the published session state. Tokens is nil exactly when Status
// is StatusAnonymous.
type State struct {
	Status Status
	Tokens *TokenPair
}

// LoginRequest carries end-user credentials for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
