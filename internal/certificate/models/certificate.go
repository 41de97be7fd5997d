package models

import (
	"time"

	id "ysvs/pkg/domain"
)

// Certificate is the issued credential for one attended registration.
//
// Invariants:
//   - exactly one certificate per registration, enforced by the store
//   - SerialNumber is globally unique and never reused
//   - RecipientName, EventTitle, CMEHours and EventDate are frozen at
//     issuance; later edits to the event or member never alter them
//   - never hard-deleted; revocation flips IsValid and stamps the metadata
type Certificate struct {
	ID             id.CertificateID  `json:"id"`
	RegistrationID id.RegistrationID `json:"registration_id"`
	SerialNumber   string            `json:"serial_number"`

	RecipientName string    `json:"recipient_name"`
	EventTitle    string    `json:"event_title"`
	CMEHours      float64   `json:"cme_hours"`
	EventDate     time.Time `json:"event_date"`

	TemplateID *id.TemplateID `json:"template_id,omitempty"`

	// ArtifactPath is the handle returned by artifact storage for the
	// rendered document.
	ArtifactPath string `json:"artifact_path"`

	IsValid       bool       `json:"is_valid"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
	RevokedBy     *id.UserID `json:"revoked_by,omitempty"`

	IssuedAt  time.Time `json:"issued_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CertificateTemplate carries the layout metadata the renderer consumes. At
// most one template is flagged as the default at any time.
type CertificateTemplate struct {
	ID        id.TemplateID `json:"id"`
	Name      string        `json:"name"`
	IsDefault bool          `json:"is_default"`

	// Layout is renderer-specific positioning and font metadata, stored
	// opaque to the issuance engine.
	Layout map[string]any `json:"layout,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// VerifiedCertificate is the public projection returned by verification. It
// deliberately carries no internal identifiers.
type VerifiedCertificate struct {
	SerialNumber  string    `json:"serial_number"`
	RecipientName string    `json:"recipient_name"`
	EventTitle    string    `json:"event_title"`
	CMEHours      float64   `json:"cme_hours"`
	EventDate     time.Time `json:"event_date"`
	IssuedAt      time.Time `json:"issued_at"`
}

// VerificationResult is what the public lookup returns. A missing or revoked
// serial is an expected outcome, not an error.
type VerificationResult struct {
	Valid       bool                 `json:"valid"`
	Message     string               `json:"message"`
	Certificate *VerifiedCertificate `json:"certificate,omitempty"`
}

// BulkResult is the aggregate tally of one bulk issuance run.
type BulkResult struct {
	Generated int         `json:"generated"`
	Skipped   int         `json:"skipped"`
	Errors    []BulkError `json:"errors"`
}

// BulkError names one failed item, keyed by registration so the caller can
// retry just the failures.
type BulkError struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	Message        string            `json:"message"`
}
