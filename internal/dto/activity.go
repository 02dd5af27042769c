package dto

import (
	"time"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

// ActivityQuery carries catalogue query string parameters.
type ActivityQuery struct {
	Status      string `form:"status"`
	Query       string `form:"query"`
	TypeID      *int64 `form:"typeId"`
	StressLevel *int   `form:"stressLevel" validate:"omitempty,min=1,max=5"`
	Page        int    `form:"page"`
	Limit       int    `form:"limit"`
}

// CreateActivityRequest is the multipart or JSON payload for a new activity.
type CreateActivityRequest struct {
	Name            string                   `form:"name" json:"name" validate:"required,max=150"`
	Description     string                   `form:"description" json:"description" validate:"required"`
	Duration        int                      `form:"duration" json:"duration" validate:"required,gt=0"`
	StressLevel     int                      `form:"stress_level" json:"stress_level" validate:"required,min=1,max=5"`
	Status          models.PublicationStatus `form:"status" json:"status" validate:"omitempty,oneof=DRAFT HIDDEN PUBLISHED"`
	TypeID          int64                    `form:"type_id" json:"type_id" validate:"required,gt=0"`
	PublicationDate *time.Time               `form:"publication_date" json:"publication_date" time_format:"2006-01-02T15:04:05Z07:00"`
}

// UpdateActivityRequest is a partial activity update.
type UpdateActivityRequest struct {
	Name            *string                   `form:"name" json:"name" validate:"omitempty,max=150"`
	Description     *string                   `form:"description" json:"description"`
	Duration        *int                      `form:"duration" json:"duration" validate:"omitempty,gt=0"`
	StressLevel     *int                      `form:"stress_level" json:"stress_level" validate:"omitempty,min=1,max=5"`
	Status          *models.PublicationStatus `form:"status" json:"status" validate:"omitempty,oneof=DRAFT HIDDEN PUBLISHED"`
	TypeID          *int64                    `form:"type_id" json:"type_id" validate:"omitempty,gt=0"`
	PublicationDate *time.Time                `form:"publication_date" json:"publication_date" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ActivityTypeRequest creates or renames an activity type.
type ActivityTypeRequest struct {
	Label string `json:"label" validate:"required,max=60"`
}
