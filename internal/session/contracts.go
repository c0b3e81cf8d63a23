package session

import "context"

//go:generate mockgen -source=contracts.go -destination=mocks/mocks.go -package=mocks CredentialStore,AuthAPI

// CredentialStore is durable key/value persistence for the credential pair.
// Load reports absent (nil, nil) unless a complete, well-formed quadruple is
// present. Every Save is a full replace of all four fields, so concurrent
// readers always see a complete-or-absent pair.
type CredentialStore interface {
	Load() (*TokenPair, error)
	Save(pair TokenPair) error
	Clear() error
}

// AuthAPI is the backend's credential-issuance surface. Implementations
// convert the server-declared relative TTLs into absolute instants at
// receipt time, so the Manager only ever sees absolute expiries.
type AuthAPI interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
}
