package dto

import (
	"time"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// AddItemRequest payload for adding a product to the cart.
type AddItemRequest struct {
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
}

// UpdateItemRequest payload for changing a line's quantity.
type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

// CartItemResponse is one cart line.
type CartItemResponse struct {
	ProductID       string            `json:"product_id"`
	Quantity        int               `json:"quantity"`
	UnitPrice       float64           `json:"unit_price"`
	SelectedOptions map[string]string `json:"selected_options,omitempty"`
	AddedAt         time.Time         `json:"added_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// CartResponse is the full cart view including derived totals.
type CartResponse struct {
	ID          string             `json:"id"`
	Items       []CartItemResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalAmount float64            `json:"total_amount"`
	Currency    string             `json:"currency"`
	Status      string             `json:"status"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Summary     domain.CartSummary `json:"summary"`
}

// NewCartResponse maps a cart and its summary to the response shape.
func NewCartResponse(cart *domain.Cart, summary domain.CartSummary) CartResponse {
	items := make([]CartItemResponse, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, CartItemResponse{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			SelectedOptions: item.SelectedOptions,
			AddedAt:         item.AddedAt,
			UpdatedAt:       item.UpdatedAt,
		})
	}
	return CartResponse{
		ID:          cart.ID,
		Items:       items,
		TotalItems:  cart.TotalItems,
		TotalAmount: cart.TotalAmount,
		Currency:    cart.Currency,
		Status:      string(cart.Status),
		ExpiresAt:   cart.ExpiresAt,
		Summary:     summary,
	}
}
