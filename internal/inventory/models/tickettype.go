package models

import (
	"time"

	id "ysvs/pkg/domain"
)

// TicketType is one purchasable admission class within an event.
//
// Invariants:
//   - 0 <= SoldQuantity <= MaxQuantity whenever MaxQuantity > 0
//   - MaxQuantity == 0 means unlimited supply
//   - SoldQuantity moves only through the store's atomic Reserve and Release
//     operations
type TicketType struct {
	ID          id.TicketTypeID `json:"id"`
	EventID     id.EventID      `json:"event_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`

	// PriceCents is the price in the association's billing currency. Zero
	// marks a free ticket; registrations against it settle immediately.
	PriceCents int64 `json:"price_cents"`

	MaxQuantity  int  `json:"max_quantity"`
	SoldQuantity int  `json:"sold_quantity"`
	IsActive     bool `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Remaining returns how many tickets are still sellable, or -1 for unlimited.
func (t *TicketType) Remaining() int {
	if t.MaxQuantity == 0 {
		return -1
	}
	remaining := t.MaxQuantity - t.SoldQuantity
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsFree reports whether registrations against this ticket need no payment.
func (t *TicketType) IsFree() bool {
	return t.PriceCents == 0
}
