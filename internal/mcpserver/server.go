// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Stepwise tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/holmsten/stepwise/internal/tourstore"
)

// Server wraps the MCP server with Stepwise tools.
type Server struct {
	mcp       *server.MCPServer
	store     *tourstore.Store
	shareBase string
}

// New creates a new MCP server with all Stepwise tools registered.
// shareBase is the public base URL minted into shareable links when a
// tour is published.
func New(store *tourstore.Store, shareBase string) *Server {
	s := &Server{store: store, shareBase: shareBase}

	s.mcp = server.NewMCPServer(
		"Stepwise",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_tours",
		mcp.WithDescription("List all product tours with id, title, step count, and visibility."),
	), s.listTours)

	s.mcp.AddTool(mcp.NewTool("get_tour",
		mcp.WithDescription("Read a tour's full JSON document including steps and annotations."),
		mcp.WithString("tour_id", mcp.Required(), mcp.Description("Id of the tour to read")),
	), s.getTour)

	s.mcp.AddTool(mcp.NewTool("create_tour",
		mcp.WithDescription("Create a new product tour. The optional steps argument is a JSON "+
			"array of step objects following the canonical tour format. Read the contract first "+
			"via the get_tour_contract tool or the stepwise://tour-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Tour title (at least 3 characters)")),
		mcp.WithString("description", mcp.Description("Optional tour description")),
		mcp.WithString("steps", mcp.Description("Optional JSON array of initial steps")),
	), s.createTour)

	s.mcp.AddTool(mcp.NewTool("set_tour_steps",
		mcp.WithDescription("Replace a tour's step collection with an edited draft sequence. "+
			"Steps keeping their id are updated in place, steps without an id are inserted with "+
			"a fresh one, stored steps missing from the sequence are deleted. The submitted "+
			"order becomes the tour's step order."),
		mcp.WithString("tour_id", mcp.Required(), mcp.Description("Id of the tour to edit")),
		mcp.WithString("steps", mcp.Required(), mcp.Description("JSON array of step drafts in final order")),
	), s.setTourSteps)

	s.mcp.AddTool(mcp.NewTool("publish_tour",
		mcp.WithDescription("Make a tour public and mint its shareable link, or make it private "+
			"again (which clears the link)."),
		mcp.WithString("tour_id", mcp.Required(), mcp.Description("Id of the tour to publish")),
		mcp.WithBoolean("public", mcp.Required(), mcp.Description("true to publish, false to unpublish")),
	), s.publishTour)

	s.mcp.AddTool(mcp.NewTool("delete_tour",
		mcp.WithDescription("Delete a tour and all its steps and annotations. Deleting an "+
			"unknown id is a no-op."),
		mcp.WithString("tour_id", mcp.Required(), mcp.Description("Id of the tour to delete")),
	), s.deleteTour)

	s.mcp.AddTool(mcp.NewTool("get_tour_contract",
		mcp.WithDescription("Returns the canonical Stepwise tour document format. "+
			"Call this before creating tours or editing steps to ensure correct structure."),
	), s.getTourContract)

	// Resource: tour format contract.
	s.mcp.AddResource(
		mcp.NewResource("stepwise://tour-format", "Tour Format Contract",
			mcp.WithResourceDescription("Canonical JSON tour document format that all tours follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTourFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) listTours(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := s.store.ListTours()
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getTour(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("tour_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tour, err := s.store.GetTour(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(tour, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createTour(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	description := req.GetString("description", "")

	var steps []tourstore.StepInput
	if raw := req.GetString("steps", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &steps); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("steps is not a valid JSON array: %v", err)), nil
		}
	}

	tour, err := s.store.CreateTour(title, description, "", steps)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tour, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setTourSteps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("tour_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("steps")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var drafts []tourstore.StepDraft
	if err := json.Unmarshal([]byte(raw), &drafts); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("steps is not a valid JSON array: %v", err)), nil
	}

	tour, err := s.store.ReconcileSteps(id, drafts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(tour, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) publishTour(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("tour_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	public, err := req.RequireBool("public")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	upd := tourstore.TourUpdate{IsPublic: &public}
	if public {
		link := strings.TrimRight(s.shareBase, "/") + "/t/" + id
		upd.ShareableLink = &link
	}
	tour, err := s.store.UpdateTour(id, upd)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if tour.IsPublic {
		return mcp.NewToolResultText(fmt.Sprintf("published: %s", tour.ShareableLink)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unpublished: %s", tour.ID)), nil
}

func (s *Server) deleteTour(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("tour_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.store.DeleteTour(id)
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

func (s *Server) getTourContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TourFormatContract), nil
}

func (s *Server) readTourFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "stepwise://tour-format",
			MIMEType: "text/markdown",
			Text:     TourFormatContract,
		},
	}, nil
}
