package api

import (
	"github.com/holmsten/stepwise/internal/models"
	"github.com/holmsten/stepwise/internal/tourstore"
)

// CreateTourRequest is the request body for creating a tour.
type CreateTourRequest struct {
	Title        string                `json:"title" example:"Onboarding walkthrough" validate:"required"`
	Description  string                `json:"description" example:"First-run product tour"`
	ThumbnailRef string                `json:"thumbnailRef" example:"https://cdn.example.com/thumb.png"`
	Steps        []tourstore.StepInput `json:"steps"`
}

// UpdateTourRequest is the request body for a partial tour update.
// Absent fields are left untouched.
type UpdateTourRequest struct {
	Title         *string `json:"title,omitempty" example:"Renamed tour"`
	Description   *string `json:"description,omitempty"`
	ThumbnailRef  *string `json:"thumbnailRef,omitempty"`
	IsPublic      *bool   `json:"isPublic,omitempty"`
	ShareableLink *string `json:"shareableLink,omitempty"`
}

// SetStepsRequest is the request body for replacing a tour's step
// collection with an edited draft sequence.
type SetStepsRequest struct {
	Steps []tourstore.StepDraft `json:"steps" validate:"required"`
}

// UpdateStepRequest is the request body for a partial step update.
type UpdateStepRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	MediaRef    *string           `json:"mediaRef,omitempty"`
	MediaType   *models.MediaType `json:"mediaType,omitempty"`
	Order       *int              `json:"order,omitempty"`
}

// UpdateAnnotationRequest is the request body for a partial annotation update.
type UpdateAnnotationRequest struct {
	Text     *string          `json:"text,omitempty"`
	Position *models.Position `json:"position,omitempty"`
}

// PublishRequest toggles a tour's public visibility.
type PublishRequest struct {
	Public bool `json:"public" example:"true"`
}

// TourDetail is the full tour response type (aliased from the domain layer).
type TourDetail = models.Tour

// TourListItem is a lightweight item in a list response (aliased from the domain layer).
type TourListItem = models.TourListItem

// TourListResponse wraps tour listings.
type TourListResponse struct {
	Tours []TourListItem `json:"tours" validate:"required"`
	Total int            `json:"total" example:"7" validate:"required"`
}

// MediaUploadResponse is returned after a successful media upload.
type MediaUploadResponse struct {
	Filename string `json:"filename" example:"screenshot.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/media/screenshot.png" validate:"required"`
}
