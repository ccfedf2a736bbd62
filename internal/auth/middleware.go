package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/repository"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID        string
	Email         string
	Role          domain.UserRole
	EmailVerified bool
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return apperrors.NewUnauthorizedCode("TOKEN_MISSING", "access token is required")
	}

	claims, err := m.tokens.VerifyAccessToken(token)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return apperrors.NewUnauthorizedCode("TOKEN_EXPIRED", "token has expired")
		case errors.Is(err, ErrWrongTokenType):
			return apperrors.NewUnauthorizedCode("INVALID_TOKEN_TYPE", "invalid token type")
		default:
			return apperrors.NewUnauthorizedCode("TOKEN_INVALID", "invalid token")
		}
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorizedCode("USER_NOT_FOUND", "user not found")
		}
		return apperrors.MapError(err)
	}

	if !user.Active() {
		return apperrors.NewForbiddenCode("ACCOUNT_INACTIVE", "account is inactive", nil)
	}

	c.Locals(principalKey, &Principal{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	})
	return c.Next()
}

// Optional resolves the caller when a valid token is present but never fails
// the request, so a route can serve both guests and logged-in users.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	token := extractToken(c)
	if token == "" {
		return c.Next()
	}

	claims, err := m.tokens.VerifyAccessToken(token)
	if err != nil {
		return c.Next()
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil || !user.Active() {
		return c.Next()
	}

	c.Locals(principalKey, &Principal{
		UserID:        user.ID,
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.EmailVerified,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// extractToken accepts both "Bearer <token>" and a bare token value.
func extractToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get("Authorization"))
	if header == "" {
		return ""
	}
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}
