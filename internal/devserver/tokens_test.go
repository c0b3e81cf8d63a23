package devserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "patas/pkg/domain-errors"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("key", 15*time.Minute, 24*time.Hour)

	pair, err := svc.Issue("admin")
	require.NoError(t, err)

	claims, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "access", claims.TokenUse)

	claims, err = svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", claims.TokenUse)
}

func TestTokenService_RejectsCrossUse(t *testing.T) {
	svc := NewTokenService("key", 15*time.Minute, 24*time.Hour)
	pair, err := svc.Issue("admin")
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeNotAuthenticated))

	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.Error(t, err)
}

func TestTokenService_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenService("key-a", 15*time.Minute, 24*time.Hour)
	verifier := NewTokenService("key-b", 15*time.Minute, 24*time.Hour)

	pair, err := issuer.Issue("admin")
	require.NoError(t, err)

	_, err = verifier.VerifyAccess(pair.AccessToken)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeNotAuthenticated))
}

func TestTokenService_ExpiredTokenIsSessionExpired(t *testing.T) {
	svc := NewTokenService("key", 15*time.Minute, 24*time.Hour)
	pair, err := svc.Issue("admin")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeSessionExpired))
}

func TestTokenService_EmptyToken(t *testing.T) {
	svc := NewTokenService("key", 15*time.Minute, 24*time.Hour)
	_, err := svc.VerifyAccess("")
	assert.True(t, domainErrors.HasCode(err, domainErrors.CodeNotAuthenticated))
}
