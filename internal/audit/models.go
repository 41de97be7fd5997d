package audit

import "time"

// Actions recorded by the engine. Kept as plain strings on the wire so
// downstream consumers do not need this package to decode them.
const (
	ActionRegistrationCreated   = "registration.created"
	ActionRegistrationCancelled = "registration.cancelled"
	ActionRegistrationAttended  = "registration.attended"
	ActionCertificateIssued     = "certificate.issued"
	ActionCertificateRevoked    = "certificate.revoked"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`

	// ActorID is the authenticated user who caused the action. For
	// administrative actions this is the admin, not the registrant.
	ActorID string `json:"actor_id"`

	// SubjectID identifies the affected entity (registration or certificate).
	SubjectID string `json:"subject_id"`

	EventID string `json:"event_id,omitempty"`
	Reason  string `json:"reason,omitempty"`

	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
