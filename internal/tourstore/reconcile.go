package tourstore

import (
	"time"

	"github.com/holmsten/stepwise/internal/apperr"
	"github.com/holmsten/stepwise/internal/ident"
	"github.com/holmsten/stepwise/internal/media"
	"github.com/holmsten/stepwise/internal/models"
)

// StepDraft is one step as submitted by an editing session. An empty
// ID marks a step added during the session; a non-empty ID claims an
// existing stored step. Draft order is positional: the slice index
// becomes the step's order.
//
// Annotations follows nil-vs-empty semantics: nil means "leave the
// stored annotations alone", a non-nil slice (including an empty one)
// is reconciled against the stored set the same way steps are.
type StepDraft struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	MediaRef    string            `json:"mediaRef"`
	MediaType   models.MediaType  `json:"mediaType,omitempty"`
	Annotations []AnnotationDraft `json:"annotations,omitempty"`
}

// AnnotationDraft mirrors StepDraft one level down. Annotations carry
// no order, so reconciliation is pure id matching.
type AnnotationDraft struct {
	ID       string          `json:"id,omitempty"`
	Text     string          `json:"text"`
	Position models.Position `json:"position"`
}

// ReconcileSteps converges the stored step collection to the submitted
// draft sequence:
//
//   - stored steps whose id no draft claims are deleted (annotations
//     cascade), before any insert or update
//   - drafts claiming a stored id patch that step in place
//   - all other drafts become new steps with fresh ids; a draft id
//     that matches nothing is discarded, never adopted, so a stale
//     client cannot inject ids
//   - every step's order is its draft position — the submitted
//     sequence always wins over whatever order the steps had before
//
// Two drafts claiming the same stored id is a conflict; the call fails
// before anything is applied. All drafts are validated up front, so a
// failed call leaves the tour untouched. An empty draft list is
// allowed and leaves the tour with zero steps; committing that as a
// terminal state is the calling workflow's problem, not the store's.
func (s *Store) ReconcileSteps(tourID string, drafts []StepDraft) (models.Tour, error) {
	for _, d := range drafts {
		if err := validateStepTitle(d.Title); err != nil {
			return models.Tour{}, err
		}
		if !media.ValidRef(d.MediaRef) {
			return models.Tour{}, apperr.Validationf("mediaRef", "must be an http(s) URL, data: URI, or blob: URI")
		}
		for _, a := range d.Annotations {
			if err := validateAnnotationFields(a.Text, a.Position); err != nil {
				return models.Tour{}, err
			}
		}
	}

	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return models.Tour{}, apperr.ErrNotFound
	}

	existing := make(map[string]*models.TourStep, len(t.Steps))
	for i := range t.Steps {
		existing[t.Steps[i].ID] = &t.Steps[i]
	}

	// Reject drafts that claim the same stored step twice before any
	// mutation; silently dropping one of them would lose edits.
	claimed := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		if d.ID == "" {
			continue
		}
		if _, exists := existing[d.ID]; !exists {
			continue
		}
		if claimed[d.ID] {
			s.mu.Unlock()
			return models.Tour{}, &apperr.StepConflictError{StepID: d.ID}
		}
		claimed[d.ID] = true
	}

	// Build the converged collection. Deletions happen implicitly:
	// stored steps nobody claimed simply don't make it into next.
	next := make([]models.TourStep, 0, len(drafts))
	for i, d := range drafts {
		if prev, retained := existing[d.ID]; d.ID != "" && retained {
			next = append(next, patchStep(prev, d, i))
			continue
		}
		next = append(next, createStep(d, i))
	}

	t.Steps = next
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
	return out, nil
}

// patchStep applies a draft to a retained step. The draft's position
// in the submitted sequence becomes the new order regardless of the
// step's prior one.
func patchStep(prev *models.TourStep, d StepDraft, order int) models.TourStep {
	step := prev.Clone()
	step.Title = d.Title
	step.Description = d.Description
	step.MediaRef = d.MediaRef
	step.MediaType = d.MediaType
	if step.MediaType == "" {
		step.MediaType = media.Infer(d.MediaRef)
	}
	step.Order = order
	if d.Annotations != nil {
		step.Annotations = reconcileAnnotations(prev.Annotations, d.Annotations)
	}
	return step
}

// createStep materializes a draft that matched no stored step. Any id
// the draft carried is discarded in favor of a fresh one.
func createStep(d StepDraft, order int) models.TourStep {
	ref := d.MediaRef
	if ref == "" {
		ref = PlaceholderStepMedia
	}
	mt := d.MediaType
	if mt == "" {
		mt = media.Infer(ref)
	}
	anns := make([]models.Annotation, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		anns = append(anns, models.Annotation{
			ID:       ident.NewID(),
			Text:     a.Text,
			Position: a.Position,
		})
	}
	return models.TourStep{
		ID:          ident.NewID(),
		MediaRef:    ref,
		MediaType:   mt,
		Title:       d.Title,
		Description: d.Description,
		Order:       order,
		Annotations: anns,
	}
}

// reconcileAnnotations applies the same id diff one level down:
// drafts with a known id patch it, everything else gets a fresh id,
// stored annotations nobody claimed are dropped. No ordering to
// maintain here.
func reconcileAnnotations(stored []models.Annotation, drafts []AnnotationDraft) []models.Annotation {
	byID := make(map[string]models.Annotation, len(stored))
	for _, a := range stored {
		byID[a.ID] = a
	}
	out := make([]models.Annotation, 0, len(drafts))
	for _, d := range drafts {
		if _, retained := byID[d.ID]; d.ID != "" && retained {
			out = append(out, models.Annotation{ID: d.ID, Text: d.Text, Position: d.Position})
			continue
		}
		out = append(out, models.Annotation{ID: ident.NewID(), Text: d.Text, Position: d.Position})
	}
	return out
}
