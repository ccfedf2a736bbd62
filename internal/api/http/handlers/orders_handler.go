package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/delivergaz-api/internal/auth"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// OrdersHandler serves placeholder order endpoints. Order management is not
// implemented yet; responses carry mock data in the final envelope shape.
type OrdersHandler struct{}

// NewOrdersHandler constructs the handler.
func NewOrdersHandler() *OrdersHandler {
	return &OrdersHandler{}
}

// List handles GET /api/orders.
// TODO: back with an order repository once checkout lands.
func (h *OrdersHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": []fiber.Map{
			{
				"id":         "order-001",
				"user_id":    principal.UserID,
				"status":     "pending",
				"total":      27.49,
				"currency":   "USD",
				"created_at": time.Now().Add(-24 * time.Hour),
			},
		},
	})
}

// Create handles POST /api/orders.
// TODO: back with an order repository once checkout lands.
func (h *OrdersHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorizedCode("AUTH_REQUIRED", "authentication required")
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "order creation is not implemented yet",
		"data": fiber.Map{
			"id":      "order-mock",
			"user_id": principal.UserID,
			"status":  "pending",
		},
	})
}
