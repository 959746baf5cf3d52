package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holmsten/stepwise/internal/apperr"
	"github.com/holmsten/stepwise/internal/tourstore"
)

const maxBodyBytes = 10 << 20 // 10 MB; data: URI media refs can be large

// Handler holds API route handlers.
type Handler struct {
	store     *tourstore.Store
	shareBase string
}

// NewHandler creates a new Handler. shareBase is the public base URL
// minted into shareable links.
func NewHandler(store *tourstore.Store, shareBase string) *Handler {
	return &Handler{store: store, shareBase: shareBase}
}

// writeStoreError maps domain errors onto HTTP responses. Validation
// problems are reported verbatim; everything unexpected is logged and
// hidden behind a generic 500.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListTours handles GET /api/tours.
//
//	@Summary		List tours, most recently updated first
//	@Tags			tours
//	@Produce		json
//	@Success		200	{object}	TourListResponse
//	@Security		BearerAuth
//	@Router			/tours [get]
func (h *Handler) ListTours(w http.ResponseWriter, r *http.Request) {
	items := h.store.ListTours()
	writeJSON(w, http.StatusOK, TourListResponse{Tours: items, Total: len(items)})
}

// CreateTour handles POST /api/tours.
//
//	@Summary		Create a tour with optional initial steps
//	@Tags			tours
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTourRequest	true	"Tour to create"
//	@Success		201		{object}	TourDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours [post]
func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var req CreateTourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tour, err := h.store.CreateTour(req.Title, req.Description, req.ThumbnailRef, req.Steps)
	if err != nil {
		writeStoreError(w, "create tour", err)
		return
	}
	writeJSON(w, http.StatusCreated, tour)
}

// GetTour handles GET /api/tours/{tourID}.
//
//	@Summary		Get a single tour with its full step graph
//	@Tags			tours
//	@Produce		json
//	@Param			tourID	path		string	true	"Tour id"
//	@Success		200		{object}	TourDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID} [get]
func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	tour, err := h.store.GetTour(chi.URLParam(r, "tourID"))
	if err != nil {
		writeStoreError(w, "get tour", err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// UpdateTour handles PATCH /api/tours/{tourID}.
//
//	@Summary		Partially update tour metadata
//	@Tags			tours
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string				true	"Tour id"
//	@Param			body	body		UpdateTourRequest	true	"Fields to change"
//	@Success		200		{object}	TourDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID} [patch]
func (h *Handler) UpdateTour(w http.ResponseWriter, r *http.Request) {
	var req UpdateTourRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tour, err := h.store.UpdateTour(chi.URLParam(r, "tourID"), tourstore.TourUpdate{
		Title:         req.Title,
		Description:   req.Description,
		ThumbnailRef:  req.ThumbnailRef,
		IsPublic:      req.IsPublic,
		ShareableLink: req.ShareableLink,
	})
	if err != nil {
		writeStoreError(w, "update tour", err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// DeleteTour handles DELETE /api/tours/{tourID}.
//
//	@Summary		Delete a tour and everything it owns
//	@Tags			tours
//	@Param			tourID	path	string	true	"Tour id"
//	@Success		204		"Tour deleted (or already gone)"
//	@Security		BearerAuth
//	@Router			/tours/{tourID} [delete]
func (h *Handler) DeleteTour(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteTour(chi.URLParam(r, "tourID"))
	w.WriteHeader(http.StatusNoContent)
}

// SetSteps handles PUT /api/tours/{tourID}/steps. The submitted draft
// sequence replaces the stored step collection: unclaimed steps are
// deleted, claimed ones patched, the rest inserted with fresh ids.
//
//	@Summary		Replace the step collection with an edited draft sequence
//	@Tags			steps
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string			true	"Tour id"
//	@Param			body	body		SetStepsRequest	true	"Draft steps in final order"
//	@Success		200		{object}	TourDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps [put]
func (h *Handler) SetSteps(w http.ResponseWriter, r *http.Request) {
	var req SetStepsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Steps == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("steps is required"))
		return
	}
	tour, err := h.store.ReconcileSteps(chi.URLParam(r, "tourID"), req.Steps)
	if err != nil {
		writeStoreError(w, "set steps", err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

// AddStep handles POST /api/tours/{tourID}/steps.
//
//	@Summary		Append a step to the tour
//	@Tags			steps
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string				true	"Tour id"
//	@Param			body	body		tourstore.StepInput	true	"Step to append"
//	@Success		201		{object}	models.TourStep
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps [post]
func (h *Handler) AddStep(w http.ResponseWriter, r *http.Request) {
	var req tourstore.StepInput
	if !decodeBody(w, r, &req) {
		return
	}
	step, err := h.store.AddStep(chi.URLParam(r, "tourID"), req)
	if err != nil {
		writeStoreError(w, "add step", err)
		return
	}
	writeJSON(w, http.StatusCreated, step)
}

// UpdateStep handles PATCH /api/tours/{tourID}/steps/{stepID}.
//
//	@Summary		Partially update a step
//	@Tags			steps
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string				true	"Tour id"
//	@Param			stepID	path		string				true	"Step id"
//	@Param			body	body		UpdateStepRequest	true	"Fields to change"
//	@Success		200		{object}	models.TourStep
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps/{stepID} [patch]
func (h *Handler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	var req UpdateStepRequest
	if !decodeBody(w, r, &req) {
		return
	}
	step, err := h.store.UpdateStep(chi.URLParam(r, "tourID"), chi.URLParam(r, "stepID"), tourstore.StepUpdate{
		Title:       req.Title,
		Description: req.Description,
		MediaRef:    req.MediaRef,
		MediaType:   req.MediaType,
		Order:       req.Order,
	})
	if err != nil {
		writeStoreError(w, "update step", err)
		return
	}
	writeJSON(w, http.StatusOK, step)
}

// DeleteStep handles DELETE /api/tours/{tourID}/steps/{stepID}.
//
//	@Summary		Delete a step; remaining steps are re-indexed
//	@Tags			steps
//	@Param			tourID	path	string	true	"Tour id"
//	@Param			stepID	path	string	true	"Step id"
//	@Success		204		"Step deleted (or already gone)"
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps/{stepID} [delete]
func (h *Handler) DeleteStep(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteStep(chi.URLParam(r, "tourID"), chi.URLParam(r, "stepID"))
	w.WriteHeader(http.StatusNoContent)
}

// AddAnnotation handles POST /api/tours/{tourID}/steps/{stepID}/annotations.
//
//	@Summary		Add an annotation to a step
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string						true	"Tour id"
//	@Param			stepID	path		string						true	"Step id"
//	@Param			body	body		tourstore.AnnotationInput	true	"Annotation to add"
//	@Success		201		{object}	models.Annotation
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps/{stepID}/annotations [post]
func (h *Handler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var req tourstore.AnnotationInput
	if !decodeBody(w, r, &req) {
		return
	}
	ann, err := h.store.AddAnnotation(chi.URLParam(r, "tourID"), chi.URLParam(r, "stepID"), req)
	if err != nil {
		writeStoreError(w, "add annotation", err)
		return
	}
	writeJSON(w, http.StatusCreated, ann)
}

// UpdateAnnotation handles PATCH /api/tours/{tourID}/steps/{stepID}/annotations/{annotationID}.
//
//	@Summary		Partially update an annotation
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			tourID			path		string					true	"Tour id"
//	@Param			stepID			path		string					true	"Step id"
//	@Param			annotationID	path		string					true	"Annotation id"
//	@Param			body			body		UpdateAnnotationRequest	true	"Fields to change"
//	@Success		200				{object}	models.Annotation
//	@Failure		400				{object}	errResponse
//	@Failure		404				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps/{stepID}/annotations/{annotationID} [patch]
func (h *Handler) UpdateAnnotation(w http.ResponseWriter, r *http.Request) {
	var req UpdateAnnotationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ann, err := h.store.UpdateAnnotation(
		chi.URLParam(r, "tourID"),
		chi.URLParam(r, "stepID"),
		chi.URLParam(r, "annotationID"),
		tourstore.AnnotationUpdate{Text: req.Text, Position: req.Position},
	)
	if err != nil {
		writeStoreError(w, "update annotation", err)
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

// DeleteAnnotation handles DELETE /api/tours/{tourID}/steps/{stepID}/annotations/{annotationID}.
//
//	@Summary		Delete an annotation
//	@Tags			annotations
//	@Param			tourID			path	string	true	"Tour id"
//	@Param			stepID			path	string	true	"Step id"
//	@Param			annotationID	path	string	true	"Annotation id"
//	@Success		204				"Annotation deleted (or already gone)"
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/steps/{stepID}/annotations/{annotationID} [delete]
func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteAnnotation(
		chi.URLParam(r, "tourID"),
		chi.URLParam(r, "stepID"),
		chi.URLParam(r, "annotationID"),
	)
	w.WriteHeader(http.StatusNoContent)
}

// Publish handles POST /api/tours/{tourID}/publish. Making a tour
// public mints its shareable link from the configured base URL; making
// it private clears the link.
//
//	@Summary		Toggle public visibility and mint the shareable link
//	@Tags			tours
//	@Accept			json
//	@Produce		json
//	@Param			tourID	path		string			true	"Tour id"
//	@Param			body	body		PublishRequest	true	"Desired visibility"
//	@Success		200		{object}	TourDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tours/{tourID}/publish [post]
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "tourID")
	upd := tourstore.TourUpdate{IsPublic: &req.Public}
	if req.Public {
		link := strings.TrimRight(h.shareBase, "/") + "/t/" + id
		upd.ShareableLink = &link
	}
	tour, err := h.store.UpdateTour(id, upd)
	if err != nil {
		writeStoreError(w, "publish tour", err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}
