package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/delivergaz-api/internal/api/dto"
	"github.com/spec-kit/delivergaz-api/internal/repository"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// UsersHandler exposes account read endpoints.
type UsersHandler struct {
	users repository.UserRepository
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(users repository.UserRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /api/users (admin only).
func (h *UsersHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	users, err := h.users.List(c.Context(), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, userResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": responses})
}

// Get handles GET /api/users/:userId (owner or admin).
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.GetByID(c.Context(), c.Params("userId"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": userResponse(user)})
}
