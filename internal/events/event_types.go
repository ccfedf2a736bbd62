package events

import (
	"time"

	"github.com/spec-kit/delivergaz-api/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLockedOut  EventType = "user_locked_out"
	EventCartMerged     EventType = "cart_merged"
	EventCartCleared    EventType = "cart_cleared"
	EventCartsReaped    EventType = "carts_reaped"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserRegisteredPayload payload.
type UserRegisteredPayload struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   domain.UserRole `json:"role"`
}

// UserLockedOutPayload payload.
type UserLockedOutPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	LockUntil time.Time `json:"lock_until"`
}

// CartMergedPayload payload.
type CartMergedPayload struct {
	UserID         string `json:"user_id"`
	GuestSessionID string `json:"guest_session_id"`
	CartID         string `json:"cart_id"`
	// ReOwned is true when the guest cart itself became the user cart.
	ReOwned bool `json:"re_owned"`
}

// CartClearedPayload payload.
type CartClearedPayload struct {
	CartID string `json:"cart_id"`
}

// CartsReapedPayload payload.
type CartsReapedPayload struct {
	Removed int `json:"removed"`
}
