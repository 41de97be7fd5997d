// Package artifact covers the rendered certificate document: assembling the
// data the renderer consumes, producing the PDF, and handing it to durable
// storage in exchange for a retrievable path.
package artifact

import (
	"context"
	"time"
)

// Document is the denormalized data printed on one certificate, assembled by
// the issuance engine before rendering.
type Document struct {
	SerialNumber  string
	RecipientName string
	EventTitle    string
	CMEHours      float64
	EventDate     time.Time

	// VerificationURL is encoded on the document so a holder can confirm
	// authenticity against the public lookup.
	VerificationURL string

	// Layout is opaque template metadata; renderers may ignore it and fall
	// back to built-in defaults.
	Layout map[string]any
}

// Renderer turns a document into certificate bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// Store persists rendered documents and returns a retrievable handle.
type Store interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
