// Package form validates registrant-submitted data against a per-event
// dynamic form schema. Validation is a pure function over the schema and the
// submitted map; it performs no I/O and is fully deterministic.
package form

// FieldKind discriminates the tagged-variant field definition. Kind-specific
// validation parameters on FieldDef are interpreted according to the kind.
type FieldKind string

const (
	KindText          FieldKind = "text"
	KindTextarea      FieldKind = "textarea"
	KindEmail         FieldKind = "email"
	KindPhone         FieldKind = "phone"
	KindNumber        FieldKind = "number"
	KindSelect        FieldKind = "select"
	KindRadio         FieldKind = "radio"
	KindMultiSelect   FieldKind = "multiselect"
	KindCheckboxGroup FieldKind = "checkbox_group"
	KindDate          FieldKind = "date"

	// KindFile is accepted in schemas but not validated here; upload handling
	// belongs to the file storage collaborator.
	KindFile FieldKind = "file"
)

// FieldDef describes one field of an event's registration form.
type FieldDef struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`

	// Text constraints (text, textarea).
	MinLength int    `json:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty"`

	// Numeric bounds (number). Pointers distinguish "unset" from zero.
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Declared options (select, radio, multiselect, checkbox_group).
	Options []string `json:"options,omitempty"`
}

// FieldError names one invalid field with a human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result is the outcome of validating a submission against a schema.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}
