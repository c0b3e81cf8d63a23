package devserver

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainErrors "patas/pkg/domain-errors"
)

// Token use values distinguish the pair halves so an access token can never
// be replayed against the refresh endpoint, or vice versa.
const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// TokenClaims are the JWT claims carried by both halves of a token pair.
type TokenClaims struct {
	Username string `json:"username"`
	TokenUse string `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenService signs and validates the HS256 token pairs the demo backend
// hands out.
type TokenService struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(signingKey string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuedPair is a freshly signed token pair plus the TTLs the wire response
// reports in seconds.
type IssuedPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	RefreshExpiresIn int64
}

// Issue signs a new access/refresh pair for the user.
func (s *TokenService) Issue(username string) (*IssuedPair, error) {
	access, err := s.sign(username, useAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(username, useRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &IssuedPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
	}, nil
}

func (s *TokenService) sign(username, use string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		Username: username,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", domainErrors.Wrap(err, domainErrors.CodeInternal, "signing token")
	}
	return signed, nil
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(tokenString string) (*TokenClaims, error) {
	return s.verify(tokenString, useAccess)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	return s.verify(tokenString, useRefresh)
}

func (s *TokenService) verify(tokenString, expectedUse string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, domainErrors.New(domainErrors.CodeNotAuthenticated, "empty token")
	}

	claims := new(TokenClaims)
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing algorithm")
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainErrors.New(domainErrors.CodeSessionExpired, "token expired")
		}
		return nil, domainErrors.New(domainErrors.CodeNotAuthenticated, "invalid token")
	}
	if !token.Valid || claims.TokenUse != expectedUse {
		return nil, domainErrors.New(domainErrors.CodeNotAuthenticated, "invalid token")
	}
	return claims, nil
}
