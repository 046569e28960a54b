package domain

import (
	"github.com/google/uuid"
)

// SyncResult reports how many entities a reconciliation pass touched
// (created, updated or deleted) per entity class.
type SyncResult struct {
	SyncedSections     int `json:"synced_sections"`
	SyncedRequirements int `json:"synced_requirements"`
	SyncedInfos        int `json:"synced_infos"`
}

// Total is the number of mutations across all three passes. Zero means the
// reconciliation was a no-op, which is what a repeated save of an unchanged
// document must produce.
func (r *SyncResult) Total() int {
	if r == nil {
		return 0
	}
	return r.SyncedSections + r.SyncedRequirements + r.SyncedInfos
}

// DuplicateGroup is a set of live entities sharing one ref.
type DuplicateGroup struct {
	Ref       string      `json:"ref"`
	Count     int         `json:"count"`
	EntityIDs []uuid.UUID `json:"entity_ids"`
}

// RefChange records one renumbering performed by duplicate repair.
type RefChange struct {
	EntityID uuid.UUID `json:"entity_id"`
	OldRef   string    `json:"old_ref"`
	NewRef   string    `json:"new_ref"`
}

// RepairResult is the audit trail of one duplicate-repair run.
type RepairResult struct {
	Fixed   int         `json:"fixed"`
	Changes []RefChange `json:"changes"`
}
