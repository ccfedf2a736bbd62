package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/delivergaz-api/internal/api/dto"
	"github.com/spec-kit/delivergaz-api/internal/auth"
	"github.com/spec-kit/delivergaz-api/internal/domain"
	"github.com/spec-kit/delivergaz-api/internal/service"
	apperrors "github.com/spec-kit/delivergaz-api/pkg/util"
)

// CartHandler exposes the shopping cart endpoints. Every route works for
// both authenticated users and guests carrying a session header.
type CartHandler struct {
	carts *service.CartService
}

// NewCartHandler constructs the handler.
func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{carts: cartService}
}

// Get handles GET /api/carts.
func (h *CartHandler) Get(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.GetOrCreateCart(c.Context(), owner)
	if err != nil {
		return mapCartError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewCartResponse(cart, h.carts.Summary(cart)),
	})
}

// AddItem handles POST /api/carts/add.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	var req dto.AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProductID == "" {
		return apperrors.NewValidationError("product_id is required", nil)
	}

	cart, err := h.carts.AddItem(c.Context(), owner, req.ProductID, req.Quantity, req.SelectedOptions)
	if err != nil {
		return mapCartError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    dto.NewCartResponse(cart, h.carts.Summary(cart)),
	})
}

// UpdateItem handles PUT /api/carts/update/:productId.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	var req dto.UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	cart, err := h.carts.UpdateItem(c.Context(), owner, c.Params("productId"), req.Quantity)
	if err != nil {
		return mapCartError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewCartResponse(cart, h.carts.Summary(cart)),
	})
}

// RemoveItem handles DELETE /api/carts/remove/:productId.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.RemoveItem(c.Context(), owner, c.Params("productId"))
	if err != nil {
		return mapCartError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewCartResponse(cart, h.carts.Summary(cart)),
	})
}

// Clear handles DELETE /api/carts/clear.
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.ClearCart(c.Context(), owner)
	if err != nil {
		return mapCartError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.NewCartResponse(cart, h.carts.Summary(cart)),
	})
}

// Count handles GET /api/carts/count.
func (h *CartHandler) Count(c *fiber.Ctx) error {
	owner, err := cartOwner(c)
	if err != nil {
		return err
	}

	cart, err := h.carts.GetOrCreateCart(c.Context(), owner)
	if err != nil {
		return mapCartError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_items": cart.TotalItems,
			"line_count":  len(cart.Items),
		},
	})
}

// cartOwner resolves the cart owner key: the authenticated user when
// present, the guest session header otherwise.
func cartOwner(c *fiber.Ctx) (domain.CartOwner, error) {
	if principal, ok := auth.PrincipalFromContext(c); ok {
		return domain.CartOwner{UserID: principal.UserID}, nil
	}
	if sessionID := c.Get(sessionHeader); sessionID != "" {
		return domain.CartOwner{SessionID: sessionID}, nil
	}
	return domain.CartOwner{}, apperrors.NewValidationError("a session id header or authentication is required", nil)
}

func mapCartError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return apperrors.NewValidationError("quantity must be between 1 and 100", nil)
	case errors.Is(err, domain.ErrInvalidPrice):
		return apperrors.NewValidationError("price must be non-negative", nil)
	case errors.Is(err, domain.ErrInvalidOwnerKey):
		return apperrors.NewValidationError("exactly one of user id or session id must be provided", nil)
	case errors.Is(err, domain.ErrCartFull):
		return apperrors.NewConflict("cart cannot contain more than 50 lines", nil)
	case errors.Is(err, domain.ErrItemNotFound):
		return apperrors.NewNotFound("cart item", nil)
	case errors.Is(err, service.ErrCartNotFound):
		return apperrors.NewNotFound("cart", nil)
	case errors.Is(err, service.ErrProductNotFound):
		return apperrors.NewNotFound("product", nil)
	case errors.Is(err, service.ErrProductUnavailable):
		return apperrors.NewValidationError("product is not available", nil)
	default:
		return apperrors.MapError(err)
	}
}
