package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/holmsten/stepwise/internal/tourstore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// shareBase is the public base URL minted into shareable links;
// mediaRoot is the directory uploads land in.
func NewRouter(store *tourstore.Store, authEnabled bool, token string, sseHandler http.Handler, shareBase, mediaRoot string) chi.Router {
	h := NewHandler(store, shareBase)
	mh := NewMediaHandler(mediaRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tours CRUD.
	r.Get("/tours", h.ListTours)
	r.Post("/tours", h.CreateTour)
	r.Get("/tours/{tourID}", h.GetTour)
	r.Patch("/tours/{tourID}", h.UpdateTour)
	r.Delete("/tours/{tourID}", h.DeleteTour)

	// Publishing.
	r.Post("/tours/{tourID}/publish", h.Publish)

	// Steps. PUT replaces the whole collection from an edited draft.
	r.Put("/tours/{tourID}/steps", h.SetSteps)
	r.Post("/tours/{tourID}/steps", h.AddStep)
	r.Patch("/tours/{tourID}/steps/{stepID}", h.UpdateStep)
	r.Delete("/tours/{tourID}/steps/{stepID}", h.DeleteStep)

	// Annotations.
	r.Post("/tours/{tourID}/steps/{stepID}/annotations", h.AddAnnotation)
	r.Patch("/tours/{tourID}/steps/{stepID}/annotations/{annotationID}", h.UpdateAnnotation)
	r.Delete("/tours/{tourID}/steps/{stepID}/annotations/{annotationID}", h.DeleteAnnotation)

	// Media upload (auth-protected; serving is mounted at the app root).
	r.Post("/media", mh.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
