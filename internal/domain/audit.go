package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncRun is one row of the relational audit trail written after every
// validated save, successful or not.
type SyncRun struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Tenant       string    `gorm:"type:text;not null;index:idx_sync_run_scope,priority:1" json:"tenant"`
	Project      string    `gorm:"type:text;not null;index:idx_sync_run_scope,priority:2" json:"project"`
	DocumentSlug string    `gorm:"type:text;not null;index" json:"document_slug"`

	Status             string `gorm:"type:text;not null" json:"status"`
	SyncedSections     int    `gorm:"not null;default:0" json:"synced_sections"`
	SyncedRequirements int    `gorm:"not null;default:0" json:"synced_requirements"`
	SyncedInfos        int    `gorm:"not null;default:0" json:"synced_infos"`
	Error              string `gorm:"type:text;not null;default:''" json:"error,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (SyncRun) TableName() string { return "sync_run" }

// RefChangeLog is one renumbering recorded by duplicate repair, kept so
// callers can display a before/after audit trail.
type RefChangeLog struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Tenant  string    `gorm:"type:text;not null;index:idx_ref_change_scope,priority:1" json:"tenant"`
	Project string    `gorm:"type:text;not null;index:idx_ref_change_scope,priority:2" json:"project"`

	Kind     string    `gorm:"type:text;not null" json:"kind"`
	EntityID uuid.UUID `gorm:"type:uuid;not null;index" json:"entity_id"`
	OldRef   string    `gorm:"type:text;not null" json:"old_ref"`
	NewRef   string    `gorm:"type:text;not null" json:"new_ref"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (RefChangeLog) TableName() string { return "ref_change_log" }
