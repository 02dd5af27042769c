package dto

import "github.com/Organisation-de-merge/backend-cesizen/internal/models"

// CreatePageRequest is the multipart or JSON payload for a new information page.
type CreatePageRequest struct {
	Title   string                   `form:"title" json:"title" validate:"required,max=200"`
	Content string                   `form:"content" json:"content" validate:"required"`
	Status  models.PublicationStatus `form:"status" json:"status" validate:"omitempty,oneof=DRAFT HIDDEN PUBLISHED"`
}

// UpdatePageRequest is a partial page update.
type UpdatePageRequest struct {
	Title   *string                   `form:"title" json:"title" validate:"omitempty,max=200"`
	Content *string                   `form:"content" json:"content"`
	Status  *models.PublicationStatus `form:"status" json:"status" validate:"omitempty,oneof=DRAFT HIDDEN PUBLISHED"`
}

// MenuRequest creates or replaces a menu.
type MenuRequest struct {
	Label   string  `json:"label" validate:"required,max=100"`
	PageIDs []int64 `json:"page_ids" validate:"omitempty,dive,gt=0"`
}
