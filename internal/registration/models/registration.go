package models

import (
	"time"

	id "ysvs/pkg/domain"
)

// Status is the registration lifecycle state machine.
//
//	(none) -> PENDING | CONFIRMED   on register
//	CONFIRMED -> ATTENDED           on attendance marking (admin only)
//	PENDING | CONFIRMED -> CANCELLED
//
// CANCELLED and ATTENDED are terminal for self-service transitions. ATTENDED
// additionally gates certificate eligibility.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusAttended  Status = "ATTENDED"
)

// PaymentStatus records the outcome of the payment collaborator. Payment
// processing itself lives outside this system.
type PaymentStatus string

const (
	PaymentFree    PaymentStatus = "FREE"
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

type Registration struct {
	ID      id.RegistrationID `json:"id"`
	EventID id.EventID        `json:"event_id"`
	UserID  id.UserID         `json:"user_id"`

	// TicketTypeID is nil for events registered without a ticket selection.
	TicketTypeID *id.TicketTypeID `json:"ticket_type_id,omitempty"`

	// FormData holds the registrant's answers keyed by field ID from the
	// event's form schema, already validated at admission time.
	FormData map[string]any `json:"form_data,omitempty"`

	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	// RegistrationNumber is the human-readable identifier handed to the
	// registrant. Uniqueness is enforced by the store.
	RegistrationNumber string `json:"registration_number"`

	CertificateIssued bool       `json:"certificate_issued"`
	AttendedAt        *time.Time `json:"attended_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanTransitionTo reports whether the lifecycle permits moving to target from
// the current status.
func (r *Registration) CanTransitionTo(target Status) bool {
	switch target {
	case StatusAttended:
		return r.Status == StatusConfirmed
	case StatusCancelled:
		return r.Status == StatusPending || r.Status == StatusConfirmed
	default:
		return false
	}
}

// CertificateEligible reports whether this registration belongs in the bulk
// issuance eligibility set.
func (r *Registration) CertificateEligible() bool {
	return r.Status == StatusAttended && !r.CertificateIssued
}

// InitialStatus derives the admission status from how payment settled.
func InitialStatus(payment PaymentStatus) Status {
	if payment == PaymentPending {
		return StatusPending
	}
	return StatusConfirmed
}
