package domain

import "time"

// TokenType differentiates access and refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Identity is the claim payload embedded in issued tokens.
type Identity struct {
	UserID string
	Email  string
	Role   UserRole
}

// TokenPair is the result of issuing access and refresh tokens together.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
