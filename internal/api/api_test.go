package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/holmsten/stepwise/internal/models"
	"github.com/holmsten/stepwise/internal/tourstore"
)

// testEnv sets up an in-memory store and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*tourstore.Store, http.Handler) {
	t.Helper()
	store := tourstore.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := NewRouter(store, authToken != "", authToken, nil, "https://tours.example.com", t.TempDir())
	return store, router
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTour(t *testing.T, router http.Handler, title string) TourDetail {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/tours", map[string]any{"title": title})
	if w.Code != http.StatusCreated {
		t.Fatalf("create tour = %d, body = %s", w.Code, w.Body.String())
	}
	var tour TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &tour)
	return tour
}

func TestCreateAndGetTour(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/tours", map[string]any{
		"title":       "Onboarding",
		"description": "first run",
		"steps": []map[string]any{
			{"title": "Welcome", "mediaRef": "https://cdn.local/a.png"},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.ID == "" {
		t.Fatal("created tour has no id")
	}

	w = doJSON(t, router, http.MethodGet, "/tours/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Onboarding" {
		t.Errorf("title = %q, want Onboarding", got.Title)
	}
	if len(got.Steps) != 1 || got.Steps[0].Order != 0 {
		t.Errorf("steps did not round-trip: %+v", got.Steps)
	}
}

func TestCreateTourValidation(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/tours", map[string]any{"title": "ab"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short title = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/tours", bytes.NewReader([]byte("{nope")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", rec.Code)
	}
}

func TestListTours(t *testing.T) {
	_, router := testEnv(t, "")
	createTour(t, router, "First")
	createTour(t, router, "Second")

	w := doJSON(t, router, http.MethodGet, "/tours", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp TourListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Tours) != 2 {
		t.Errorf("total = %d, len = %d, want 2", resp.Total, len(resp.Tours))
	}
}

func TestUpdateTourPartial(t *testing.T) {
	_, router := testEnv(t, "")
	tour := createTour(t, router, "Before")

	w := doJSON(t, router, http.MethodPatch, "/tours/"+tour.ID, map[string]any{"title": "After"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	var got TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "After" {
		t.Errorf("title = %q, want After", got.Title)
	}
	if got.Description != tour.Description {
		t.Errorf("description changed on a title-only patch")
	}
}

func TestDeleteTourIdempotent(t *testing.T) {
	_, router := testEnv(t, "")
	tour := createTour(t, router, "Doomed")

	w := doJSON(t, router, http.MethodDelete, "/tours/"+tour.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete = %d, want 204", w.Code)
	}
	w = doJSON(t, router, http.MethodGet, "/tours/"+tour.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
	// Deleting again is still 204, not an error.
	w = doJSON(t, router, http.MethodDelete, "/tours/"+tour.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("second delete = %d, want 204", w.Code)
	}
}

func TestGetTour_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/tours/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing tour = %d, want 404", w.Code)
	}
}

func TestSetSteps(t *testing.T) {
	store, router := testEnv(t, "")
	tour, err := store.CreateTour("Editable", "", "", []tourstore.StepInput{
		{Title: "A"}, {Title: "B"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Submit B first, drop A, append a new step.
	w := doJSON(t, router, http.MethodPut, "/tours/"+tour.ID+"/steps", map[string]any{
		"steps": []map[string]any{
			{"id": tour.Steps[1].ID, "title": "B moved", "mediaRef": tour.Steps[1].MediaRef},
			{"title": "C fresh"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("set steps = %d, body = %s", w.Code, w.Body.String())
	}
	var got TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if len(got.Steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(got.Steps))
	}
	if got.Steps[0].ID != tour.Steps[1].ID || got.Steps[0].Order != 0 {
		t.Errorf("retained step not first: %+v", got.Steps[0])
	}
	if got.Steps[1].Title != "C fresh" || got.Steps[1].ID == "" {
		t.Errorf("new step not materialized: %+v", got.Steps[1])
	}
}

func TestSetSteps_Conflict(t *testing.T) {
	store, router := testEnv(t, "")
	tour, err := store.CreateTour("Conflicted", "", "", []tourstore.StepInput{{Title: "A"}})
	if err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPut, "/tours/"+tour.ID+"/steps", map[string]any{
		"steps": []map[string]any{
			{"id": tour.Steps[0].ID, "title": "one"},
			{"id": tour.Steps[0].ID, "title": "two"},
		},
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate claim = %d, want 409", w.Code)
	}
}

func TestSetSteps_MissingField(t *testing.T) {
	_, router := testEnv(t, "")
	tour := createTour(t, router, "Sparse")

	w := doJSON(t, router, http.MethodPut, "/tours/"+tour.ID+"/steps", map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("absent steps field = %d, want 400", w.Code)
	}
}

func TestStepLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	tour := createTour(t, router, "Steps")

	w := doJSON(t, router, http.MethodPost, "/tours/"+tour.ID+"/steps", map[string]any{
		"title":    "Click here",
		"mediaRef": "https://cdn.local/demo.mp4",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add step = %d, body = %s", w.Code, w.Body.String())
	}
	var step models.TourStep
	_ = json.Unmarshal(w.Body.Bytes(), &step)
	if step.MediaType != models.MediaVideo {
		t.Errorf("mediaType = %q, want video", step.MediaType)
	}

	w = doJSON(t, router, http.MethodPatch, "/tours/"+tour.ID+"/steps/"+step.ID, map[string]any{
		"description": "updated",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch step = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/tours/"+tour.ID+"/steps/"+step.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete step = %d, want 204", w.Code)
	}
}

func TestAnnotationLifecycle(t *testing.T) {
	store, router := testEnv(t, "")
	tour, err := store.CreateTour("Annotated", "", "", []tourstore.StepInput{{Title: "S"}})
	if err != nil {
		t.Fatal(err)
	}
	base := "/tours/" + tour.ID + "/steps/" + tour.Steps[0].ID + "/annotations"

	w := doJSON(t, router, http.MethodPost, base, map[string]any{
		"text":     "look here",
		"position": map[string]float64{"x": 0.3, "y": 0.7},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add annotation = %d, body = %s", w.Code, w.Body.String())
	}
	var ann models.Annotation
	_ = json.Unmarshal(w.Body.Bytes(), &ann)

	w = doJSON(t, router, http.MethodPatch, base+"/"+ann.ID, map[string]any{"text": "look there"})
	if w.Code != http.StatusOK {
		t.Fatalf("patch annotation = %d, body = %s", w.Code, w.Body.String())
	}

	// Out-of-range position → 400.
	w = doJSON(t, router, http.MethodPatch, base+"/"+ann.ID, map[string]any{
		"position": map[string]float64{"x": 1.5, "y": 0},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad position = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodDelete, base+"/"+ann.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete annotation = %d, want 204", w.Code)
	}
}

func TestPublishMintsLink(t *testing.T) {
	_, router := testEnv(t, "")
	tour := createTour(t, router, "Shareable")

	w := doJSON(t, router, http.MethodPost, "/tours/"+tour.ID+"/publish", map[string]any{"public": true})
	if w.Code != http.StatusOK {
		t.Fatalf("publish = %d, body = %s", w.Code, w.Body.String())
	}
	var got TourDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if !got.IsPublic {
		t.Error("tour not public after publish")
	}
	want := "https://tours.example.com/t/" + tour.ID
	if got.ShareableLink != want {
		t.Errorf("link = %q, want %q", got.ShareableLink, want)
	}

	// Unpublishing clears the link.
	w = doJSON(t, router, http.MethodPost, "/tours/"+tour.ID+"/publish", map[string]any{"public": false})
	if w.Code != http.StatusOK {
		t.Fatalf("unpublish = %d", w.Code)
	}
	got = TourDetail{}
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.IsPublic || got.ShareableLink != "" {
		t.Errorf("after unpublish: isPublic=%v link=%q", got.IsPublic, got.ShareableLink)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	body, _ := json.Marshal(map[string]any{"title": "Authed"})
	req := httptest.NewRequest(http.MethodPost, "/tours", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := doJSON(t, router, http.MethodGet, "/tours", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tours", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/tours", nil)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// Media tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeMedia(t *testing.T) {
	mediaDir := t.TempDir()
	store := tourstore.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	router := NewRouter(store, false, "", nil, "", mediaDir)

	w := uploadFile(t, router, "shot.png", []byte("fake-png-data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	var resp MediaUploadResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Filename != "shot.png" || resp.URL != "/media/shot.png" {
		t.Errorf("response = %+v", resp)
	}

	data, err := os.ReadFile(filepath.Join(mediaDir, "shot.png"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "fake-png-data" {
		t.Errorf("content mismatch")
	}
}

func TestServeMedia_NotFound(t *testing.T) {
	mh := NewMediaHandler(t.TempDir())
	r := chi.NewRouter()
	r.Get("/media/{filename}", mh.ServeFile)

	req := httptest.NewRequest(http.MethodGet, "/media/nope.png", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing media = %d, want 404", w.Code)
	}
}

func TestServeMedia_TraversalBlocked(t *testing.T) {
	mh := NewMediaHandler(t.TempDir())
	r := chi.NewRouter()
	r.Get("/media/{filename}", mh.ServeFile)

	for _, name := range []string{"../secret.json", "../../etc/passwd"} {
		req := httptest.NewRequest(http.MethodGet, "/media/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		// chi may not route the traversal paths at all (404), or our handler rejects (400).
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestUploadMedia_MissingFileField(t *testing.T) {
	_, router := testEnv(t, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}
