package domain

import "time"

// Product is the catalog entry carts reference by id.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Currency    string
	Category    string
	InStock     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PriceQuote is the price/availability pair the cart add-flow consumes.
type PriceQuote struct {
	Price     float64
	Available bool
}
