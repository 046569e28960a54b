// Package realtime defines the events published after write operations so
// other replicas and UI subscribers can react without polling.
package realtime

import "time"

const (
	EventDocumentSynced = "document.synced"
	EventRefsRepaired   = "refs.repaired"
)

type Event struct {
	Type         string    `json:"type"`
	Tenant       string    `json:"tenant"`
	Project      string    `json:"project"`
	DocumentSlug string    `json:"document_slug,omitempty"`

	// Mutation counts, keyed per entity type for document.synced and holding
	// the repair count for refs.repaired.
	Counts map[string]int `json:"counts,omitempty"`

	At time.Time `json:"at"`
}
