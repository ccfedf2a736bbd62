package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

func testIdentity() domain.Identity {
	return domain.Identity{UserID: "user-1", Email: "jo@example.com", Role: domain.RoleCustomer}
}

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)

	pair, err := tm.IssueTokenPair(testIdentity())
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := tm.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "jo@example.com", claims.Email)
	require.Equal(t, domain.RoleCustomer, claims.Role)
	require.Equal(t, domain.TokenTypeAccess, claims.TokenType)

	refreshClaims, err := tm.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, domain.TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenManagerRejectsCrossUse(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	pair, err := tm.IssueTokenPair(testIdentity())
	require.NoError(t, err)

	// Different secrets mean a refresh token never even parses as an
	// access token, and vice versa.
	_, err = tm.VerifyAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tm.VerifyRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenManagerRejectsWrongType(t *testing.T) {
	// Same secret for both types isolates the token_type check.
	tm := NewTokenManager("shared-secret", "shared-secret", time.Hour, 2*time.Hour)
	pair, err := tm.IssueTokenPair(testIdentity())
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken(pair.RefreshToken)
	require.ErrorIs(t, err, ErrWrongTokenType)

	_, err = tm.VerifyRefreshToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrWrongTokenType)
}

func TestTokenManagerRejectsExpired(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Nanosecond, 2*time.Hour)
	pair, err := tm.IssueTokenPair(testIdentity())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = tm.VerifyAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenManagerRejectsForeignSignature(t *testing.T) {
	tm := NewTokenManager("access-secret", "refresh-secret", time.Hour, 2*time.Hour)
	other := NewTokenManager("different-secret", "refresh-secret", time.Hour, 2*time.Hour)

	pair, err := other.IssueTokenPair(testIdentity())
	require.NoError(t, err)

	_, err = tm.VerifyAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = tm.VerifyAccessToken("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}
