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

// ProductsHandler exposes catalog read endpoints.
type ProductsHandler struct {
	products repository.ProductRepository
}

// NewProductsHandler constructs the handler.
func NewProductsHandler(products repository.ProductRepository) *ProductsHandler {
	return &ProductsHandler{products: products}
}

// List handles GET /api/products.
func (h *ProductsHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := h.products.List(c.Context(), c.Query("category"), limit, offset)
	if err != nil {
		return apperrors.MapError(err)
	}

	responses := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, dto.NewProductResponse(&products[i]))
	}
	return c.JSON(fiber.Map{"success": true, "data": responses})
}

// Get handles GET /api/products/:id.
func (h *ProductsHandler) Get(c *fiber.Ctx) error {
	product, err := h.products.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("product", nil)
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewProductResponse(product)})
}
