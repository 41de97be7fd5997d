package models

import (
	"time"

	"ysvs/internal/form"
	id "ysvs/pkg/domain"
)

// Event is the aggregate root for a CME-credited association event.
//
// Invariants:
//   - 0 <= CurrentAttendees <= MaxAttendees whenever MaxAttendees > 0
//   - MaxAttendees == 0 means unlimited capacity
//   - CurrentAttendees is mutated only through the store's atomic counter
//     operations, never by loading and re-saving the aggregate
//   - An event is never deleted while registrations reference it
type Event struct {
	ID          id.EventID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`

	// CMEHours is printed on certificates issued for this event.
	CMEHours float64   `json:"cme_hours"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	MaxAttendees     int `json:"max_attendees"`
	CurrentAttendees int `json:"current_attendees"`

	RegistrationOpen     bool       `json:"registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`

	// FormSchema drives per-event dynamic form validation. Empty means the
	// event collects no extra registrant data.
	FormSchema []form.FieldDef `json:"form_schema,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcceptsRegistrationsAt checks the admission window only; capacity and
// duplicate checks are separate concerns.
func (e *Event) AcceptsRegistrationsAt(now time.Time) (open bool, deadlinePassed bool) {
	if !e.RegistrationOpen {
		return false, false
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return true, true
	}
	return true, false
}

// IsFull reports whether the event's attendee capacity is exhausted.
func (e *Event) IsFull() bool {
	return e.MaxAttendees > 0 && e.CurrentAttendees >= e.MaxAttendees
}
