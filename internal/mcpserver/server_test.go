package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/holmsten/stepwise/internal/models"
	"github.com/holmsten/stepwise/internal/tourstore"
)

func testServer(t *testing.T) (*Server, *tourstore.Store) {
	t.Helper()
	store := tourstore.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := New(store, "https://tours.example.com")
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_tours":
		result, err = srv.listTours(ctx, req)
	case "get_tour":
		result, err = srv.getTour(ctx, req)
	case "create_tour":
		result, err = srv.createTour(ctx, req)
	case "set_tour_steps":
		result, err = srv.setTourSteps(ctx, req)
	case "publish_tour":
		result, err = srv.publishTour(ctx, req)
	case "delete_tour":
		result, err = srv.deleteTour(ctx, req)
	case "get_tour_contract":
		result, err = srv.getTourContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndGetTour(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_tour", map[string]interface{}{
		"title":       "Onboarding",
		"description": "first run",
		"steps":       `[{"title":"Welcome","mediaRef":"https://cdn.local/a.png"}]`,
	})
	if r.IsError {
		t.Fatalf("create errored: %s", resultText(r))
	}
	var created models.Tour
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatalf("create result is not a tour document: %v", err)
	}
	if created.ID == "" || len(created.Steps) != 1 {
		t.Fatalf("created = %+v", created)
	}

	r = callTool(t, srv, "get_tour", map[string]interface{}{"tour_id": created.ID})
	var got models.Tour
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if got.Title != "Onboarding" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestCreateTourRejectsShortTitle(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_tour", map[string]interface{}{"title": "ab"})
	if !r.IsError {
		t.Error("expected error for short title")
	}
}

func TestGetTourMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_tour", map[string]interface{}{"tour_id": "nope"})
	if !r.IsError {
		t.Error("expected error for missing tour")
	}
}

func TestSetTourSteps(t *testing.T) {
	srv, store := testServer(t)
	tour, err := store.CreateTour("Editable", "", "", []tourstore.StepInput{
		{Title: "A"}, {Title: "B"},
	})
	if err != nil {
		t.Fatal(err)
	}

	drafts := `[{"id":"` + tour.Steps[1].ID + `","title":"B first"},{"title":"C new"}]`
	r := callTool(t, srv, "set_tour_steps", map[string]interface{}{
		"tour_id": tour.ID,
		"steps":   drafts,
	})
	if r.IsError {
		t.Fatalf("set_tour_steps errored: %s", resultText(r))
	}
	var got models.Tour
	_ = json.Unmarshal([]byte(resultText(r)), &got)
	if len(got.Steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(got.Steps))
	}
	if got.Steps[0].ID != tour.Steps[1].ID || got.Steps[1].Title != "C new" {
		t.Errorf("steps = %+v", got.Steps)
	}
}

func TestSetTourStepsBadJSON(t *testing.T) {
	srv, store := testServer(t)
	tour, _ := store.CreateTour("Broken", "", "", nil)

	r := callTool(t, srv, "set_tour_steps", map[string]interface{}{
		"tour_id": tour.ID,
		"steps":   "{not an array",
	})
	if !r.IsError {
		t.Error("expected error for malformed steps JSON")
	}
}

func TestPublishTour(t *testing.T) {
	srv, store := testServer(t)
	tour, _ := store.CreateTour("Shareable", "", "", nil)

	r := callTool(t, srv, "publish_tour", map[string]interface{}{
		"tour_id": tour.ID,
		"public":  true,
	})
	text := resultText(r)
	wantLink := "https://tours.example.com/t/" + tour.ID
	if !strings.Contains(text, wantLink) {
		t.Errorf("publish result = %q, want link %q", text, wantLink)
	}
	got, _ := store.GetTour(tour.ID)
	if !got.IsPublic || got.ShareableLink != wantLink {
		t.Errorf("stored tour: isPublic=%v link=%q", got.IsPublic, got.ShareableLink)
	}

	r = callTool(t, srv, "publish_tour", map[string]interface{}{
		"tour_id": tour.ID,
		"public":  false,
	})
	if r.IsError {
		t.Fatalf("unpublish errored: %s", resultText(r))
	}
	got, _ = store.GetTour(tour.ID)
	if got.IsPublic || got.ShareableLink != "" {
		t.Errorf("after unpublish: isPublic=%v link=%q", got.IsPublic, got.ShareableLink)
	}
}

func TestDeleteTour(t *testing.T) {
	srv, store := testServer(t)
	tour, _ := store.CreateTour("Doomed", "", "", nil)

	r := callTool(t, srv, "delete_tour", map[string]interface{}{"tour_id": tour.ID})
	if r.IsError {
		t.Fatalf("delete errored: %s", resultText(r))
	}
	if _, err := store.GetTour(tour.ID); err == nil {
		t.Error("tour survived delete")
	}

	// Unknown id is a no-op, not an error.
	r = callTool(t, srv, "delete_tour", map[string]interface{}{"tour_id": "never-there"})
	if r.IsError {
		t.Error("delete of unknown id should not error")
	}
}

func TestListTours(t *testing.T) {
	srv, store := testServer(t)
	_, _ = store.CreateTour("First", "", "", nil)
	_, _ = store.CreateTour("Second", "", "", nil)

	r := callTool(t, srv, "list_tours", map[string]interface{}{})
	var items []models.TourListItem
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatalf("list result is not a JSON array: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestTourContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_tour_contract", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "set_tour_steps") || !strings.Contains(text, "mediaRef") {
		t.Error("contract missing expected sections")
	}
}
