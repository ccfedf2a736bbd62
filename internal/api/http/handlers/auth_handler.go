package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/delivergaz-api/internal/api/dto"
	"github.com/spec-kit/delivergaz-api/internal/auth"
	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/service"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// Guest session header carried by anonymous shoppers; on login it drives the
// guest cart merge.
const sessionHeader = "X-Session-Id"

// AuthHandler exposes registration, login and token endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	carts  *service.CartService
	logger *zap.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService, cartService *service.CartService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, carts: cartService, logger: logger}
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return apperrors.NewValidationError("first_name, email and password are required", nil)
	}

	user, pair, err := h.auth.RegisterUser(c.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return apperrors.NewConflict("email already registered", nil)
		}
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": authResponse(pair),
		},
	})
}

// Login handles POST /api/auth/login. A guest session id in the request
// header folds that session's cart into the user's cart after a successful
// login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password are required", nil)
	}

	user, pair, err := h.auth.LoginUser(c.Context(), req.Email, req.Password)
	if err != nil {
		return mapAuthError(err)
	}

	if sessionID := c.Get(sessionHeader); sessionID != "" {
		if _, err := h.carts.MergeGuestCart(c.Context(), sessionID, user.ID); err != nil {
			// Login already succeeded; a merge failure should not undo it.
			h.logger.Error("guest cart merge failed",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": authResponse(pair),
		},
	})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return apperrors.NewValidationError("refresh_token is required", nil)
	}

	user, pair, err := h.auth.RefreshTokens(c.Context(), req.RefreshToken)
	if err != nil {
		return mapAuthError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": authResponse(pair),
		},
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if principal != nil {
		_ = h.auth.Logout(c.Context(), principal.UserID)
	}
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// ChangePassword handles POST /api/auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password are required", nil)
	}

	if err := h.auth.ChangePassword(c.Context(), principal.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return mapAuthError(err)
	}
	return c.JSON(fiber.Map{"success": true, "message": "password updated"})
}

func mapAuthError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorizedCode("INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrAccountInactive):
		return apperrors.NewForbiddenCode("ACCOUNT_INACTIVE", "account is inactive", nil)
	case errors.Is(err, auth.ErrTokenExpired):
		return apperrors.NewUnauthorizedCode("TOKEN_EXPIRED", "token has expired")
	case errors.Is(err, auth.ErrWrongTokenType):
		return apperrors.NewUnauthorizedCode("INVALID_TOKEN_TYPE", "invalid token type")
	case errors.Is(err, auth.ErrTokenInvalid):
		return apperrors.NewUnauthorizedCode("TOKEN_INVALID", "invalid token")
	default:
		return apperrors.MapError(err)
	}
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		Role:          string(user.Role),
		EmailVerified: user.EmailVerified,
	}
}

func authResponse(pair domain.TokenPair) dto.AuthResponse {
	return dto.AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}
}
