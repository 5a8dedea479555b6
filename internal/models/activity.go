package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditEntry is one append-only line of the review audit trail: who did what to which
// submission, booking or catalog entry. Metadata is masked before it is stored.
type AuditEntry struct {
	ID         uint              `gorm:"primaryKey"`
	ActorID    string            `gorm:"size:64;not null;index"`
	ActorRole  string            `gorm:"size:32;not null"`
	Action     string            `gorm:"size:64;not null;index"`
	EntityType string            `gorm:"size:32;not null;index:idx_audit_entity,priority:1"`
	EntityID   string            `gorm:"size:64;index:idx_audit_entity,priority:2"`
	Metadata   datatypes.JSONMap `gorm:"type:json"`
	CreatedAt  time.Time         `gorm:"index"`
}

// TableName keeps the audit table name stable across model renames.
func (AuditEntry) TableName() string {
	return "audit_entries"
}
