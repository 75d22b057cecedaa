// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Setforge tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mitsuha/setforge/internal/index"
	"github.com/mitsuha/setforge/internal/models"
	"github.com/mitsuha/setforge/internal/osu"
	"github.com/mitsuha/setforge/internal/setservice"
	"github.com/mitsuha/setforge/internal/storage"
)

// Server wraps the MCP server with Setforge tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    index.BeatmapIndex
	svc   *setservice.Service
}

// New creates a new MCP server with all Setforge tools registered.
func New(store storage.Provider, db index.BeatmapIndex, svc *setservice.Service) *Server {
	s := &Server{store: store, db: db, svc: svc}

	s.mcp = server.NewMCPServer(
		"Setforge",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_library",
		mcp.WithDescription("Full-text search through the indexed .osu library (title, artist, creator, tags)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchLibrary)

	s.mcp.AddTool(mcp.NewTool("list_library",
		mcp.WithDescription("List all .osu files in the library or in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listLibrary)

	s.mcp.AddTool(mcp.NewTool("inspect_beatmap",
		mcp.WithDescription("Parse a .osu file and report its metadata, difficulty name, audio and background."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the difficulty relative to the library root")),
	), s.inspectBeatmap)

	s.mcp.AddTool(mcp.NewTool("add_difficulty",
		mcp.WithDescription("Add a .osu difficulty file to the current draft. "+
			"Files named 'Artist - Title (creator) [Version].osu' seed empty draft metadata. "+
			"Read the setforge://osu-format resource or the get_format_contract tool for the format rules."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the difficulty relative to the library root")),
	), s.addDifficulty)

	s.mcp.AddTool(mcp.NewTool("remove_difficulty",
		mcp.WithDescription("Remove a difficulty from the draft by its id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Difficulty id as returned by add_difficulty or get_draft")),
	), s.removeDifficulty)

	s.mcp.AddTool(mcp.NewTool("rename_difficulty",
		mcp.WithDescription("Rename a draft difficulty. Names must be unique within the set."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Difficulty id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New difficulty name")),
	), s.renameDifficulty)

	s.mcp.AddTool(mcp.NewTool("set_metadata",
		mcp.WithDescription("Update the draft's shared metadata. Only the provided fields change."),
		mcp.WithString("title", mcp.Description("Set title")),
		mcp.WithString("artist", mcp.Description("Set artist")),
		mcp.WithString("creator", mcp.Description("Set creator")),
		mcp.WithString("source", mcp.Description("Set source")),
		mcp.WithString("tags", mcp.Description("Space-separated tags")),
	), s.setMetadata)

	s.mcp.AddTool(mcp.NewTool("set_background",
		mcp.WithDescription("Set the draft background to an existing image file (png, jpg, jpeg)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the image relative to the library root")),
	), s.setBackground)

	s.mcp.AddTool(mcp.NewTool("upload_background",
		mcp.WithDescription("Download an image from an HTTP(S) URL or decode a base64 data URI, "+
			"store it in the library backgrounds directory and set it as the draft background. "+
			"Supported formats: png, jpg, jpeg."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI of the image")),
		mcp.WithString("filename", mcp.Description("Optional filename override")),
	), s.uploadBackground)

	s.mcp.AddTool(mcp.NewTool("set_preview_time",
		mcp.WithDescription("Set the audio preview time in milliseconds for every difficulty in the set. "+
			"Pass -1 to clear it and keep each file's own PreviewTime."),
		mcp.WithNumber("preview_ms", mcp.Required(), mcp.Description("Preview offset in milliseconds, or -1 to clear")),
	), s.setPreviewTime)

	s.mcp.AddTool(mcp.NewTool("get_draft",
		mcp.WithDescription("Return the current draft: metadata, difficulties, background and preview time."),
	), s.getDraft)

	s.mcp.AddTool(mcp.NewTool("build_set",
		mcp.WithDescription("Build the draft into a flat .osz archive. The draft needs at least one "+
			"difficulty, a background and non-empty Title and Artist."),
		mcp.WithString("target", mcp.Description("Optional output path for the .osz (default: export dir, 'Artist - Title.osz')")),
	), s.buildSet)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the .osu format and set-building contract. "+
			"Call this before preparing difficulty files or drafts."),
	), s.getFormatContract)

	// Resource: beatmap format contract.
	s.mcp.AddResource(
		mcp.NewResource("setforge://osu-format", "Beatmap Format Contract",
			mcp.WithResourceDescription("The .osu difficulty file layout and set-building rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
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

func (s *Server) searchLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listLibrary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) inspectBeatmap(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	b, err := osu.Parse(data, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(b, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addDifficulty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	abs, err := s.store.Abs(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diff, err := s.svc.AddDifficulty(ctx, abs)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(diff, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) removeDifficulty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.RemoveDifficulty(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s", id)), nil
}

func (s *Server) renameDifficulty(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diff, err := s.svc.RenameDifficulty(ctx, id, name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(diff, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	meta := s.svc.Snapshot(ctx).Meta
	apply := func(key string, dst *string) {
		if v, err := req.RequireString(key); err == nil {
			*dst = v
		}
	}
	apply("title", &meta.Title)
	apply("artist", &meta.Artist)
	apply("creator", &meta.Creator)
	apply("source", &meta.Source)
	apply("tags", &meta.Tags)

	if meta == (models.CommonMetadata{}) {
		return mcp.NewToolResultError("metadata must not be empty"), nil
	}
	updated := s.svc.SetMetadata(ctx, meta)
	out, _ := json.MarshalIndent(updated, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) setBackground(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	abs, err := s.store.Abs(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.SetBackground(ctx, abs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("background set: %s", path)), nil
}

func (s *Server) setPreviewTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ms, err := req.RequireInt("preview_ms")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ms < 0 {
		if err := s.svc.SetPreview(ctx, nil); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("preview time cleared"), nil
	}
	if err := s.svc.SetPreview(ctx, &ms); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("preview time set: %d ms", ms)), nil
}

func (s *Server) getDraft(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.svc.Snapshot(ctx), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) buildSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := ""
	if v, err := req.RequireString("target"); err == nil {
		target = v
	}
	res, err := s.svc.Export(ctx, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getFormatContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(OsuFormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "setforge://osu-format",
			MIMEType: "text/markdown",
			Text:     OsuFormatContract,
		},
	}, nil
}
