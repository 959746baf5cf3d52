package tourstore

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/holmsten/stepwise/internal/apperr"
	"github.com/holmsten/stepwise/internal/media"
	"github.com/holmsten/stepwise/internal/models"
)

// Acceptance rules applied before any field enters the store. Each
// failure is reported as an apperr.ValidationError naming the field, so
// callers can translate it without string matching.

func validateTourFields(title, thumbnailRef string) error {
	if err := validation.Validate(title, validation.Required, validation.RuneLength(3, 0)); err != nil {
		return apperr.Validationf("title", "%v", err)
	}
	if !media.ValidRef(thumbnailRef) {
		return apperr.Validationf("thumbnailRef", "must be an http(s) URL, data: URI, or blob: URI")
	}
	return nil
}

func validateStepTitle(title string) error {
	if err := validation.Validate(title, validation.Required); err != nil {
		return apperr.Validationf("title", "%v", err)
	}
	return nil
}

func validateAnnotationText(text string) error {
	if err := validation.Validate(text, validation.Required); err != nil {
		return apperr.Validationf("text", "%v", err)
	}
	return nil
}

func validatePosition(pos models.Position) error {
	if err := validation.Validate(pos.X, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return apperr.Validationf("position.x", "%v", err)
	}
	if err := validation.Validate(pos.Y, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return apperr.Validationf("position.y", "%v", err)
	}
	return nil
}

func validateAnnotationFields(text string, pos models.Position) error {
	if err := validateAnnotationText(text); err != nil {
		return err
	}
	return validatePosition(pos)
}
