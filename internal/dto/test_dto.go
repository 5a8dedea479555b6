package dto

import (
	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/models"
)

// TestListQuery filters the catalog.
type TestListQuery struct {
	Level   string `query:"level" validate:"omitempty,max=64"`
	Subject string `query:"subject" validate:"omitempty,max=128"`
}

// TestResponse serialises a catalog entry.
type TestResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Level      string `json:"level"`
	Subject    string `json:"subject"`
	AccessType string `json:"access_type"`
	PDFLink    string `json:"pdf_link"`
}

// CatalogSeedResponse reports how many catalog rows were written.
type CatalogSeedResponse struct {
	Affected int64 `json:"affected"`
}

// NewTestResponse converts a catalog model into its DTO.
func NewTestResponse(model models.Test) TestResponse {
	return TestResponse{
		ID:         model.ID,
		Title:      model.Title,
		Level:      model.Level,
		Subject:    model.Subject,
		AccessType: model.AccessType,
		PDFLink:    model.PDFLink,
	}
}

// NewTestResponseSlice converts catalog models into DTOs.
func NewTestResponseSlice(items []models.Test) []TestResponse {
	return lo.Map(items, func(item models.Test, _ int) TestResponse {
		return NewTestResponse(item)
	})
}
