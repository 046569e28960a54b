package docsync

import "errors"

var (
	// ErrNotFound reports a document, section or entity missing from the
	// backing store. Surfaced as a domain condition, not a generic fault.
	ErrNotFound = errors.New("docsync: not found")

	// ErrAllocationExhausted reports that ref allocation could not find a
	// free candidate within the bounded retry budget.
	ErrAllocationExhausted = errors.New("docsync: ref allocation exhausted")
)
