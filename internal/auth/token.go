package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// Token verification failures. Expiry is reported separately so callers can
// distinguish a stale session from a forged or malformed token.
var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// TokenManager issues and verifies access/refresh token pairs. The two token
// types are signed with distinct secrets, so one can never be replayed as the
// other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	if accessTTL <= 0 {
		accessTTL = 7 * 24 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// Claims describes the JWT payload.
type Claims struct {
	UserID    string           `json:"user_id"`
	Email     string           `json:"email"`
	Role      domain.UserRole  `json:"role,omitempty"`
	TokenType domain.TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// IssueTokenPair signs an access and a refresh token for the identity.
func (tm *TokenManager) IssueTokenPair(identity domain.Identity) (domain.TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(tm.accessTTL)

	access, err := tm.sign(identity, domain.TokenTypeAccess, tm.accessSecret, now, accessExpiry)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := tm.sign(identity, domain.TokenTypeRefresh, tm.refreshSecret, now, now.Add(tm.refreshTTL))
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExpiry,
	}, nil
}

// VerifyAccessToken validates an access token and returns its claims.
func (tm *TokenManager) VerifyAccessToken(token string) (*Claims, error) {
	return tm.verify(token, tm.accessSecret, domain.TokenTypeAccess)
}

// VerifyRefreshToken validates a refresh token and returns its claims.
func (tm *TokenManager) VerifyRefreshToken(token string) (*Claims, error) {
	return tm.verify(token, tm.refreshSecret, domain.TokenTypeRefresh)
}

func (tm *TokenManager) sign(identity domain.Identity, tokenType domain.TokenType, secret []byte, now, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID:    identity.UserID,
		Email:     identity.Email,
		Role:      identity.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (tm *TokenManager) verify(tokenStr string, secret []byte, wantType domain.TokenType) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}
