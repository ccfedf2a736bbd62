package domain

import (
	"errors"
	"maps"
	"math"
	"time"
)

// Cart validation and capacity errors surfaced to the transport layer.
var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and the per-line maximum")
	ErrInvalidPrice    = errors.New("price must be non-negative")
	ErrCartFull        = errors.New("cart line limit reached")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidOwnerKey = errors.New("exactly one of user id or session id must be set")
)

// CartStatus enumerates cart lifecycle states.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusAbandoned CartStatus = "abandoned"
	CartStatusConverted CartStatus = "converted"
)

// Cart line limits, kept in sync with config defaults.
const (
	MaxCartLines    = 50
	MaxLineQuantity = 100
)

// SelectedOptions records the option choices (size, color, flavor, ...) a line
// was added with. Two option sets are the same line key iff they are
// structurally equal; ordering never matters.
type SelectedOptions map[string]string

// Equal reports order-independent structural equality.
func (o SelectedOptions) Equal(other SelectedOptions) bool {
	if len(o) == 0 && len(other) == 0 {
		return true
	}
	return maps.Equal(o, other)
}

// CartItem is one line in a cart, keyed by product + selected options.
type CartItem struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	UnitPrice       float64         `json:"unit_price"`
	SelectedOptions SelectedOptions `json:"selected_options,omitempty"`
	AddedAt         time.Time       `json:"added_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CartOwner identifies who a cart belongs to. Exactly one field is set.
type CartOwner struct {
	UserID    string `json:"user_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate enforces mutually exclusive ownership.
func (o CartOwner) Validate() error {
	if (o.UserID == "") == (o.SessionID == "") {
		return ErrInvalidOwnerKey
	}
	return nil
}

// IsGuest reports whether the owner is an anonymous session.
func (o CartOwner) IsGuest() bool {
	return o.SessionID != ""
}

// Cart is the shopping cart document.
type Cart struct {
	ID          string     `json:"id"`
	Owner       CartOwner  `json:"owner"`
	Items       []CartItem `json:"items"`
	TotalItems  int        `json:"total_items"`
	TotalAmount float64    `json:"total_amount"`
	Currency    string     `json:"currency"`
	Discount    float64    `json:"discount"`
	Status      CartStatus `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AddItem merges quantity into an existing line with the same product and
// options, or appends a new line. The merged quantity is clamped at the
// per-line maximum.
func (c *Cart) AddItem(productID string, quantity int, unitPrice float64, options SelectedOptions, now time.Time) error {
	if quantity < 1 || quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return ErrInvalidPrice
	}

	for i := range c.Items {
		item := &c.Items[i]
		if item.ProductID == productID && item.SelectedOptions.Equal(options) {
			item.Quantity += quantity
			if item.Quantity > MaxLineQuantity {
				item.Quantity = MaxLineQuantity
			}
			item.UpdatedAt = now
			c.recalculate(now)
			return nil
		}
	}

	if len(c.Items) >= MaxCartLines {
		return ErrCartFull
	}

	c.Items = append(c.Items, CartItem{
		ProductID:       productID,
		Quantity:        quantity,
		UnitPrice:       round2(unitPrice),
		SelectedOptions: options,
		AddedAt:         now,
		UpdatedAt:       now,
	})
	c.recalculate(now)
	return nil
}

// UpdateItem sets the quantity of the first line matching productID. Matching
// is product-only: when several option variants of one product coexist the
// first line wins. A quantity of zero or less removes the product instead.
func (c *Cart) UpdateItem(productID string, quantity int, now time.Time) error {
	idx := -1
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrItemNotFound
	}

	if quantity <= 0 {
		return c.RemoveItem(productID, now)
	}
	if quantity > MaxLineQuantity {
		return ErrInvalidQuantity
	}

	c.Items[idx].Quantity = quantity
	c.Items[idx].UpdatedAt = now
	c.recalculate(now)
	return nil
}

// RemoveItem deletes every line for productID, regardless of options.
func (c *Cart) RemoveItem(productID string, now time.Time) error {
	kept := c.Items[:0]
	removed := false
	for _, item := range c.Items {
		if item.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return ErrItemNotFound
	}
	c.Items = kept
	c.recalculate(now)
	return nil
}

// Clear empties the cart and marks it abandoned.
func (c *Cart) Clear(now time.Time) {
	c.Items = nil
	c.Status = CartStatusAbandoned
	c.recalculate(now)
}

// IsExpired reports whether the cart has passed its expiry time.
func (c *Cart) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

func (c *Cart) recalculate(now time.Time) {
	totalItems := 0
	totalAmount := 0.0
	for _, item := range c.Items {
		totalItems += item.Quantity
		totalAmount += item.UnitPrice * float64(item.Quantity)
	}
	c.TotalItems = totalItems
	c.TotalAmount = round2(totalAmount)
	c.UpdatedAt = now
}

// CartSummary is the checkout-facing view of a cart's totals.
type CartSummary struct {
	ItemCount int     `json:"item_count"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Discount  float64 `json:"discount"`
	Total     float64 `json:"total"`
	HasItems  bool    `json:"has_items"`
}

// Summary derives checkout totals from the cart at the given tax rate.
func (c *Cart) Summary(taxRate float64) CartSummary {
	subtotal := c.TotalAmount
	tax := round2(subtotal * taxRate)
	return CartSummary{
		ItemCount: c.TotalItems,
		Subtotal:  round2(subtotal),
		Tax:       tax,
		Discount:  c.Discount,
		Total:     round2(subtotal + tax - c.Discount),
		HasItems:  c.TotalItems > 0,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
