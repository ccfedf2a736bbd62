package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/delivergaz-api/internal/domain"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// RequireRole ensures the caller holds one of the allowed roles.
func RequireRole(allowed ...domain.UserRole) fiber.Handler {
	allowedSet := make(map[domain.UserRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbiddenCode("INSUFFICIENT_PERMISSIONS", "insufficient permissions", map[string]any{
				"required": allowed,
				"current":  principal.Role,
			})
		}
		return c.Next()
	}
}

// RequireEmailVerified ensures the caller's email address is verified.
func RequireEmailVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
		}
		if !principal.EmailVerified {
			return apperrors.NewForbiddenCode("EMAIL_NOT_VERIFIED", "email verification required", nil)
		}
		return c.Next()
	}
}

// RequireOwnerOrRole allows callers holding a privileged role, or callers
// whose id equals the idParam value read from the route path or body.
func RequireOwnerOrRole(idParam string, privileged ...domain.UserRole) fiber.Handler {
	privilegedSet := make(map[domain.UserRole]struct{}, len(privileged))
	for _, role := range privileged {
		privilegedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
		}
		if _, exists := privilegedSet[principal.Role]; exists {
			return c.Next()
		}

		targetID := c.Params(idParam)
		if targetID == "" {
			var body map[string]string
			if err := c.BodyParser(&body); err == nil {
				targetID = body[idParam]
			}
		}
		if targetID != "" && targetID == principal.UserID {
			return c.Next()
		}

		return apperrors.NewForbiddenCode("ACCESS_DENIED", "you can only access your own resources", nil)
	}
}
