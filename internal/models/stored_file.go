package models

import (
	"time"

	"gorm.io/gorm"
)

// File kinds kept in the deposit.
const (
	FileKindAnswerSheet    = "answer_sheet"
	FileKindEvaluatedSheet = "evaluated_sheet"
)

// StoredFile tracks metadata about an object placed in the file deposit.
type StoredFile struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ObjectKey    string         `gorm:"size:128;uniqueIndex;not null" json:"object_key"`
	URL          string         `gorm:"size:512;uniqueIndex;not null" json:"url"`
	Kind         string         `gorm:"size:32;not null" json:"kind"`
	OwnerID      string         `gorm:"size:64;index" json:"owner_id"`
	SubmissionID *string        `gorm:"size:36;index" json:"submission_id"`
	FileName     string         `gorm:"size:255;not null" json:"file_name"`
	MimeType     string         `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes    int64          `gorm:"not null" json:"size_bytes"`
	Checksum     string         `gorm:"size:128;index" json:"checksum"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}
