package models

import "time"

// Test is a catalog entry for an assigned test paper.
type Test struct {
	ID         string    `gorm:"primaryKey;size:64" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Level      string    `gorm:"size:64;index" json:"level"`
	Subject    string    `gorm:"size:128" json:"subject"`
	AccessType string    `gorm:"size:32" json:"access_type"`
	PDFLink    string    `gorm:"size:512" json:"pdf_link"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
