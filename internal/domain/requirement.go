package domain

import (
	"github.com/google/uuid"
)

// EntityKind distinguishes the two ref-bearing entity types. Ref uniqueness is
// enforced per kind: a requirement and an info block may never collide because
// their refs live in separate namespaces.
type EntityKind string

const (
	KindRequirement EntityKind = "requirement"
	KindInfo        EntityKind = "info"
)

// Requirement is a single traceable statement. Ref is project-unique among
// live requirements and immutable except for bulk prefix rewrites. Deleted is
// a soft flag: requirements stay addressable once referenced elsewhere.
type Requirement struct {
	ID           uuid.UUID  `json:"id"`
	DocumentSlug string     `json:"document_slug"`
	Ref          string     `json:"ref"`
	Text         string     `json:"text"`
	Pattern      string     `json:"pattern,omitempty"`
	Verification string     `json:"verification,omitempty"`
	SectionID    *uuid.UUID `json:"section_id,omitempty"`
	Deleted      bool       `json:"deleted"`
}

// InfoBlock carries contextual prose next to requirements. Same ownership
// shape as Requirement but with a title instead of pattern metadata. Info
// blocks are not traceability targets, so reconciliation hard-deletes them.
type InfoBlock struct {
	ID           uuid.UUID  `json:"id"`
	DocumentSlug string     `json:"document_slug"`
	Ref          string     `json:"ref"`
	Title        string     `json:"title,omitempty"`
	Text         string     `json:"text"`
	SectionID    *uuid.UUID `json:"section_id,omitempty"`
	Deleted      bool       `json:"deleted"`
}
