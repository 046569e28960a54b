package domain

import (
	"github.com/google/uuid"
)

// Document is a structured requirements document owned by a (tenant, project) pair.
// Slug is unique within the project; ShortCode seeds ref prefixes for the
// requirements and info blocks it owns.
type Document struct {
	ID        uuid.UUID `json:"id"`
	Tenant    string    `json:"tenant"`
	Project   string    `json:"project"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	ShortCode string    `json:"short_code,omitempty"`

	// RefCounter is the coarse per-document allocation counter, persisted as a
	// property on the Document node and advanced inside the store transaction.
	RefCounter int `json:"ref_counter"`
}

// Section belongs to exactly one Document. Order is rewritten on every
// reconciliation to match the heading order of the source text.
type Section struct {
	ID           uuid.UUID `json:"id"`
	DocumentSlug string    `json:"document_slug"`
	Name         string    `json:"name"`
	ShortCode    string    `json:"short_code,omitempty"`
	Order        int       `json:"order"`
}
