package dto

import (
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/testseries-api/internal/models"
)

// ActivityListRequest narrows the audit trail listing.
type ActivityListRequest struct {
	Page       int    `query:"page" validate:"omitempty,gte=1"`
	PageSize   int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
	ActorID    string `query:"actor_id" validate:"omitempty,max=64"`
	Action     string `query:"action" validate:"omitempty,max=64"`
	EntityType string `query:"entity_type" validate:"omitempty,max=64"`
	EntityID   string `query:"entity_id" validate:"omitempty,max=64"`
	From       string `query:"from" validate:"omitempty,max=64"`
	To         string `query:"to" validate:"omitempty,max=64"`
}

// ActivityResponse serialises one audit entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps a page of audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// PaginationMeta describes a paged listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
}

// NewActivityResponse converts an activity log model into its DTO.
func NewActivityResponse(model models.AuditEntry) ActivityResponse {
	return ActivityResponse{
		ID:         model.ID,
		ActorID:    model.ActorID,
		ActorRole:  model.ActorRole,
		Action:     model.Action,
		EntityType: model.EntityType,
		EntityID:   model.EntityID,
		Metadata:   map[string]interface{}(model.Metadata),
		CreatedAt:  model.CreatedAt,
	}
}

// NewActivityResponseSlice converts activity models into DTOs.
func NewActivityResponseSlice(items []models.AuditEntry) []ActivityResponse {
	return lo.Map(items, func(item models.AuditEntry, _ int) ActivityResponse {
		return NewActivityResponse(item)
	})
}
