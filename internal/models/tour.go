// Package models defines the domain types for Stepwise.
package models

import "time"

// MediaType distinguishes image from video media references.
type MediaType string

// Media types.
const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Position is a fractional coordinate over the rendered media bounding box.
// Both components are constrained to [0.0, 1.0].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a positional text marker overlaid on a step's media.
// It is owned by exactly one TourStep and dies with it.
type Annotation struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Position Position `json:"position"`
}

// TourStep is one entry in a tour's ordered sequence.
//
// Order is zero-based, unique, and contiguous within the owning tour.
// MediaRef is an http(s) URL, a data: URI, or a blob: URI; empty means
// "no media". MediaType is derived from MediaRef when not set explicitly.
type TourStep struct {
	ID          string       `json:"id"`
	MediaRef    string       `json:"mediaRef"`
	MediaType   MediaType    `json:"mediaType"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Order       int          `json:"order"`
	Annotations []Annotation `json:"annotations"`
}

// Tour is the aggregate root: an ordered sequence of steps plus
// presentation metadata and the visibility flag.
//
// Steps is never nil. ShareableLink is non-empty only while IsPublic
// is true; the store enforces that coupling on every update.
type Tour struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	ThumbnailRef  string     `json:"thumbnailRef,omitempty"`
	Steps         []TourStep `json:"steps"`
	IsPublic      bool       `json:"isPublic"`
	ShareableLink string     `json:"shareableLink,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TourListItem is a lightweight representation returned by list operations.
type TourListItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailRef string    `json:"thumbnailRef,omitempty"`
	StepCount    int       `json:"stepCount"`
	IsPublic     bool      `json:"isPublic"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	return a
}

// Clone returns a deep copy of the step, including its annotations.
func (s TourStep) Clone() TourStep {
	out := s
	out.Annotations = make([]Annotation, len(s.Annotations))
	copy(out.Annotations, s.Annotations)
	return out
}

// Clone returns a deep copy of the tour. Callers receive clones from the
// store so that working copies can never mutate the authoritative state.
func (t Tour) Clone() Tour {
	out := t
	out.Steps = make([]TourStep, len(t.Steps))
	for i, s := range t.Steps {
		out.Steps[i] = s.Clone()
	}
	return out
}

// StepByID returns a pointer to the step with the given id, or nil.
func (t *Tour) StepByID(id string) *TourStep {
	for i := range t.Steps {
		if t.Steps[i].ID == id {
			return &t.Steps[i]
		}
	}
	return nil
}

// ListItem converts the tour to its list representation.
func (t *Tour) ListItem() TourListItem {
	return TourListItem{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		ThumbnailRef: t.ThumbnailRef,
		StepCount:    len(t.Steps),
		IsPublic:     t.IsPublic,
		UpdatedAt:    t.UpdatedAt,
	}
}
