// Package tourstore holds the authoritative in-memory tour collection
// and every operation that may mutate it. External editors work on
// disposable copies; the only way back in is through this API, which
// keeps ids unique, step orders contiguous, and the public/link
// coupling intact after every call.
package tourstore

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/holmsten/stepwise/internal/apperr"
	"github.com/holmsten/stepwise/internal/ident"
	"github.com/holmsten/stepwise/internal/media"
	"github.com/holmsten/stepwise/internal/models"
)

// Placeholder media used when a step or tour is created without any.
const (
	PlaceholderStepMedia = "https://placehold.co/800x600.png"
	PlaceholderThumbnail = "https://placehold.co/600x400.png"
)

// Sink is the persistence side-channel. The store calls it after a
// mutation has committed in memory; a failing sink never rolls the
// mutation back, it is logged and the store stays authoritative.
type Sink interface {
	SaveTour(t models.Tour) error
	DeleteTour(id string) error
}

// EventCallback is invoked after each committed mutation.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, tourID string)

// Store is the single source of truth for tours. All methods are safe
// for concurrent use; each mutation is applied atomically under the
// store lock, so a failed call leaves the prior state untouched.
type Store struct {
	mu     sync.RWMutex
	tours  map[string]*models.Tour
	sink   Sink
	cb     EventCallback
	logger *slog.Logger
}

// New creates an empty store. sink may be nil (no persistence).
func New(sink Sink, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		tours:  make(map[string]*models.Tour),
		sink:   sink,
		logger: logger,
	}
}

// OnEvent registers the mutation event callback. Must be called before
// the store is shared across goroutines.
func (s *Store) OnEvent(cb EventCallback) {
	s.cb = cb
}

// StepInput carries the caller-supplied fields for a new step.
// ID is honored only during tour creation normalization; every other
// create path mints a fresh id.
type StepInput struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	MediaRef    string            `json:"mediaRef"`
	MediaType   models.MediaType  `json:"mediaType,omitempty"`
	Annotations []AnnotationInput `json:"annotations,omitempty"`
}

// AnnotationInput carries the caller-supplied fields for a new annotation.
type AnnotationInput struct {
	ID       string          `json:"id,omitempty"`
	Text     string          `json:"text"`
	Position models.Position `json:"position"`
}

// CreateTour creates a tour with zero or more initial steps.
// Initial steps are normalized: missing ids are assigned, order is
// taken from array position, an empty mediaRef gets the placeholder,
// and mediaType is derived when unset. The new tour starts private
// with createdAt == updatedAt.
func (s *Store) CreateTour(title, description, thumbnailRef string, initialSteps []StepInput) (models.Tour, error) {
	if err := validateTourFields(title, thumbnailRef); err != nil {
		return models.Tour{}, err
	}
	steps, err := normalizeSteps(initialSteps)
	if err != nil {
		return models.Tour{}, err
	}
	if thumbnailRef == "" {
		thumbnailRef = PlaceholderThumbnail
	}

	now := time.Now().UTC()
	t := &models.Tour{
		ID:           ident.NewID(),
		Title:        title,
		Description:  description,
		ThumbnailRef: thumbnailRef,
		Steps:        steps,
		IsPublic:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.tours[t.ID] = t
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("created", out.ID)
	return out, nil
}

// GetTour returns a deep copy of the tour, or ErrNotFound.
func (s *Store) GetTour(id string) (models.Tour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tours[id]
	if !ok {
		return models.Tour{}, apperr.ErrNotFound
	}
	return t.Clone(), nil
}

// ListTours returns lightweight items for every tour, most recently
// updated first.
func (s *Store) ListTours() []models.TourListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TourListItem, 0, len(s.tours))
	for _, t := range s.tours {
		out = append(out, t.ListItem())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// TourUpdate is a partial update; nil fields are left untouched.
// ID and CreatedAt are never updatable.
type TourUpdate struct {
	Title         *string
	Description   *string
	ThumbnailRef  *string
	IsPublic      *bool
	ShareableLink *string
}

// UpdateTour shallow-merges the supplied fields and refreshes
// updatedAt. Whenever the tour ends up private the shareable link is
// cleared unconditionally, regardless of what the caller passed.
func (s *Store) UpdateTour(id string, upd TourUpdate) (models.Tour, error) {
	if upd.Title != nil {
		if err := validateTourFields(*upd.Title, ""); err != nil {
			return models.Tour{}, err
		}
	}
	if upd.ThumbnailRef != nil && !media.ValidRef(*upd.ThumbnailRef) {
		return models.Tour{}, apperr.Validationf("thumbnailRef", "must be an http(s) URL, data: URI, or blob: URI")
	}

	s.mu.Lock()
	t, ok := s.tours[id]
	if !ok {
		s.mu.Unlock()
		return models.Tour{}, apperr.ErrNotFound
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.ThumbnailRef != nil {
		t.ThumbnailRef = *upd.ThumbnailRef
	}
	if upd.IsPublic != nil {
		t.IsPublic = *upd.IsPublic
	}
	if upd.ShareableLink != nil {
		t.ShareableLink = *upd.ShareableLink
	}
	if !t.IsPublic {
		t.ShareableLink = ""
	}
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", out.ID)
	return out, nil
}

// DeleteTour removes the tour and everything it owns. Deleting an
// absent id is a no-op, matching "delete and don't care if already
// gone" editor behavior.
func (s *Store) DeleteTour(id string) {
	s.mu.Lock()
	_, ok := s.tours[id]
	if ok {
		delete(s.tours, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if s.sink != nil {
		if err := s.sink.DeleteTour(id); err != nil {
			s.logger.Warn("persist delete failed", slog.String("tour", id), slog.String("error", err.Error()))
		}
	}
	s.notify("deleted", id)
}

// AddStep appends a step with order equal to the current step count,
// a fresh id, and no annotations.
func (s *Store) AddStep(tourID string, in StepInput) (models.TourStep, error) {
	step, err := newStep(in, 0)
	if err != nil {
		return models.TourStep{}, err
	}

	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return models.TourStep{}, apperr.ErrNotFound
	}
	step.Order = len(t.Steps)
	t.Steps = append(t.Steps, step)
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
	return step.Clone(), nil
}

// StepUpdate is a partial step update; nil fields are left untouched.
type StepUpdate struct {
	Title       *string
	Description *string
	MediaRef    *string
	MediaType   *models.MediaType
	Order       *int
}

// UpdateStep merges the supplied fields into the step. When mediaRef
// changes and mediaType is not supplied in the same call, the type is
// re-derived from the new reference. The step collection is re-sorted
// by order and re-indexed to 0..n-1 afterwards, so a caller-supplied
// order acts as a move target and can never leave gaps.
func (s *Store) UpdateStep(tourID, stepID string, upd StepUpdate) (models.TourStep, error) {
	if upd.Title != nil {
		if err := validateStepTitle(*upd.Title); err != nil {
			return models.TourStep{}, err
		}
	}
	if upd.MediaRef != nil && !media.ValidRef(*upd.MediaRef) {
		return models.TourStep{}, apperr.Validationf("mediaRef", "must be an http(s) URL, data: URI, or blob: URI")
	}

	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return models.TourStep{}, apperr.ErrNotFound
	}
	step := t.StepByID(stepID)
	if step == nil {
		s.mu.Unlock()
		return models.TourStep{}, apperr.ErrNotFound
	}
	if upd.Title != nil {
		step.Title = *upd.Title
	}
	if upd.Description != nil {
		step.Description = *upd.Description
	}
	if upd.MediaRef != nil {
		step.MediaRef = *upd.MediaRef
		if upd.MediaType == nil {
			step.MediaType = media.Infer(*upd.MediaRef)
		}
	}
	if upd.MediaType != nil {
		step.MediaType = *upd.MediaType
	}
	if upd.Order != nil {
		step.Order = *upd.Order
	}
	// Re-sort by the requested orders, then re-index to 0..n-1 so an
	// out-of-range or gapped order from the caller cannot persist.
	sort.SliceStable(t.Steps, func(i, j int) bool { return t.Steps[i].Order < t.Steps[j].Order })
	for i := range t.Steps {
		t.Steps[i].Order = i
	}
	t.UpdatedAt = time.Now().UTC()
	outStep := t.StepByID(stepID).Clone()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
	return outStep, nil
}

// DeleteStep removes the step and its annotations, then re-indexes the
// remaining steps to 0..n-1 preserving their relative sequence.
// A no-op when the tour or step is already gone.
func (s *Store) DeleteStep(tourID, stepID string) {
	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return
	}
	kept := t.Steps[:0]
	removed := false
	for _, step := range t.Steps {
		if step.ID == stepID {
			removed = true
			continue
		}
		kept = append(kept, step)
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	for i := range kept {
		kept[i].Order = i
	}
	t.Steps = kept
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
}

// AddAnnotation appends an annotation with a fresh id to the step.
func (s *Store) AddAnnotation(tourID, stepID string, in AnnotationInput) (models.Annotation, error) {
	if err := validateAnnotationFields(in.Text, in.Position); err != nil {
		return models.Annotation{}, err
	}

	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return models.Annotation{}, apperr.ErrNotFound
	}
	step := t.StepByID(stepID)
	if step == nil {
		s.mu.Unlock()
		return models.Annotation{}, apperr.ErrNotFound
	}
	ann := models.Annotation{
		ID:       ident.NewID(),
		Text:     in.Text,
		Position: in.Position,
	}
	step.Annotations = append(step.Annotations, ann)
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
	return ann, nil
}

// AnnotationUpdate is a partial annotation update.
type AnnotationUpdate struct {
	Text     *string
	Position *models.Position
}

// UpdateAnnotation merges the supplied fields into the annotation.
func (s *Store) UpdateAnnotation(tourID, stepID, annID string, upd AnnotationUpdate) (models.Annotation, error) {
	if upd.Text != nil {
		if err := validateAnnotationText(*upd.Text); err != nil {
			return models.Annotation{}, err
		}
	}
	if upd.Position != nil {
		if err := validatePosition(*upd.Position); err != nil {
			return models.Annotation{}, err
		}
	}

	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return models.Annotation{}, apperr.ErrNotFound
	}
	step := t.StepByID(stepID)
	if step == nil {
		s.mu.Unlock()
		return models.Annotation{}, apperr.ErrNotFound
	}
	var ann *models.Annotation
	for i := range step.Annotations {
		if step.Annotations[i].ID == annID {
			ann = &step.Annotations[i]
			break
		}
	}
	if ann == nil {
		s.mu.Unlock()
		return models.Annotation{}, apperr.ErrNotFound
	}
	if upd.Text != nil {
		ann.Text = *upd.Text
	}
	if upd.Position != nil {
		ann.Position = *upd.Position
	}
	outAnn := *ann
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
	return outAnn, nil
}

// DeleteAnnotation removes the annotation. A no-op when any of the
// tour, step, or annotation is already gone.
func (s *Store) DeleteAnnotation(tourID, stepID, annID string) {
	s.mu.Lock()
	t, ok := s.tours[tourID]
	if !ok {
		s.mu.Unlock()
		return
	}
	step := t.StepByID(stepID)
	if step == nil {
		s.mu.Unlock()
		return
	}
	kept := step.Annotations[:0]
	removed := false
	for _, ann := range step.Annotations {
		if ann.ID == annID {
			removed = true
			continue
		}
		kept = append(kept, ann)
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	step.Annotations = kept
	t.UpdatedAt = time.Now().UTC()
	out := t.Clone()
	s.mu.Unlock()

	s.persist(out)
	s.notify("updated", tourID)
}

// Load replaces the store contents with the given tours. Used once at
// startup to hydrate from the persistence backend; fires no events and
// writes nothing back.
func (s *Store) Load(tours []models.Tour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours = make(map[string]*models.Tour, len(tours))
	for _, t := range tours {
		c := t.Clone()
		if c.Steps == nil {
			c.Steps = []models.TourStep{}
		}
		s.tours[c.ID] = &c
	}
}

// Restore upserts a tour that changed behind the store's back (an
// externally edited library file). It does not write back to the sink;
// the change came from there.
func (s *Store) Restore(t models.Tour) {
	c := t.Clone()
	if c.Steps == nil {
		c.Steps = []models.TourStep{}
	}
	s.mu.Lock()
	_, existed := s.tours[c.ID]
	s.tours[c.ID] = &c
	s.mu.Unlock()

	if existed {
		s.notify("updated", c.ID)
	} else {
		s.notify("created", c.ID)
	}
}

// Evict removes a tour whose backing file disappeared, without
// touching the sink. Reports whether anything was removed.
func (s *Store) Evict(id string) bool {
	s.mu.Lock()
	_, ok := s.tours[id]
	if ok {
		delete(s.tours, id)
	}
	s.mu.Unlock()
	if ok {
		s.notify("deleted", id)
	}
	return ok
}

// TourIDs returns the ids of every stored tour.
func (s *Store) TourIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tours))
	for id := range s.tours {
		out = append(out, id)
	}
	return out
}

// normalizeSteps validates and normalizes initial step inputs:
// positional order, fresh ids where missing, placeholder media,
// derived media type, annotation ids. Supplied ids must be unique;
// a duplicate step or annotation id fails the whole call.
func normalizeSteps(inputs []StepInput) ([]models.TourStep, error) {
	steps := make([]models.TourStep, 0, len(inputs))
	seenSteps := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		step, err := newStep(in, i)
		if err != nil {
			return nil, err
		}
		if in.ID != "" {
			if seenSteps[in.ID] {
				return nil, apperr.Validationf("id", "duplicate step id %q", in.ID)
			}
			seenSteps[in.ID] = true
			step.ID = in.ID
		}
		anns := make([]models.Annotation, 0, len(in.Annotations))
		seenAnns := make(map[string]bool, len(in.Annotations))
		for _, a := range in.Annotations {
			if err := validateAnnotationFields(a.Text, a.Position); err != nil {
				return nil, err
			}
			id := a.ID
			if id == "" {
				id = ident.NewID()
			} else {
				if seenAnns[id] {
					return nil, apperr.Validationf("id", "duplicate annotation id %q", id)
				}
				seenAnns[id] = true
			}
			anns = append(anns, models.Annotation{ID: id, Text: a.Text, Position: a.Position})
		}
		step.Annotations = anns
		steps = append(steps, step)
	}
	return steps, nil
}

// newStep builds a validated step from input, ignoring input
// annotations and ids. order is the caller's positional index.
func newStep(in StepInput, order int) (models.TourStep, error) {
	if err := validateStepTitle(in.Title); err != nil {
		return models.TourStep{}, err
	}
	if !media.ValidRef(in.MediaRef) {
		return models.TourStep{}, apperr.Validationf("mediaRef", "must be an http(s) URL, data: URI, or blob: URI")
	}
	ref := in.MediaRef
	if ref == "" {
		ref = PlaceholderStepMedia
	}
	mt := in.MediaType
	if mt == "" {
		mt = media.Infer(ref)
	}
	return models.TourStep{
		ID:          ident.NewID(),
		MediaRef:    ref,
		MediaType:   mt,
		Title:       in.Title,
		Description: in.Description,
		Order:       order,
		Annotations: []models.Annotation{},
	}, nil
}

func (s *Store) persist(t models.Tour) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveTour(t); err != nil {
		s.logger.Warn("persist failed", slog.String("tour", t.ID), slog.String("error", err.Error()))
	}
}

func (s *Store) notify(kind, tourID string) {
	if s.cb != nil {
		s.cb(kind, tourID)
	}
}
