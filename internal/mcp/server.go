// Package mcp provides a Model Context Protocol server for Canvascope.
//
// It exposes the content collection as MCP tools (search, ingest, open,
// stats) and read-only resources (stats, recent searches) over stdio, so
// agent frontends can query course content without shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/ingest"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/rank"
	"github.com/NoelSason/canvascope/internal/search"
	"github.com/NoelSason/canvascope/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store        *store.Store
	Version      string
	ActiveCourse *rank.ActiveCourse // optional browsing context for ranking
}

// dbMu serializes MCP tool calls that touch the database. The mcp-go
// library dispatches handlers concurrently via goroutines; SQLite supports
// one writer at a time, and an ingest must complete before a search sees
// its data.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all Canvascope tools and
// resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Canvascope",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerSearchTool(s, cfg)
	registerIngestTool(s, cfg.Store)
	registerOpenTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)

	registerStatsResource(s, cfg.Store)
	registerRecentSearchesResource(s, cfg.Store)

	return s
}

// Serve runs the server on stdio until the client disconnects.
func Serve(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

// --- Tools ---

// searchResult is the wire shape for one hit.
type searchResult struct {
	Title  string  `json:"title"`
	URL    string  `json:"url,omitempty"`
	Type   string  `json:"type,omitempty"`
	Course string  `json:"course,omitempty"`
	Module string  `json:"module,omitempty"`
	Folder string  `json:"folder,omitempty"`
	DueAt  string  `json:"dueAt,omitempty"`
	Score  float64 `json:"score"`
}

func registerSearchTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("canvascope_search",
		mcp.WithDescription("Search the scraped course content collection. Understands abbreviations (hw4, mt2), course-scoped queries (\"chem 3b syllabus\") and typo-tolerant matching. Returns ranked results."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("course",
			mcp.Description("Restrict results to one course name. Empty = all courses."),
		),
		mcp.WithString("type",
			mcp.Description("Restrict results to one content type (assignment, quiz, page, file, ...). Empty = all types."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 20, max: 50)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		opts := search.Options{}
		if course, err := req.RequireString("course"); err == nil && course != "" {
			opts.Course = course
		}
		if typ, err := req.RequireString("type"); err == nil && typ != "" {
			opts.Type = lms.ParseType(typ)
		}
		if limitVal, err := req.RequireFloat("limit"); err == nil {
			limit := int(limitVal)
			if limit > 50 {
				limit = 50
			}
			if limit > 0 {
				opts.Limit = limit
			}
		}

		items, err := cfg.Store.Items(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading items: %v", err)), nil
		}
		clicks, err := cfg.Store.ClickFeedback(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading click feedback: %v", err)), nil
		}
		opts.Context = rank.Context{
			Clicks:       clickStats(clicks),
			ActiveCourse: cfg.ActiveCourse,
		}

		results := search.NewEngine(items).Search(query, opts)

		if err := cfg.Store.AddSearch(ctx, query, len(results), time.Now().UTC()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("recording search: %v", err)), nil
		}

		out := make([]searchResult, len(results))
		for i, r := range results {
			out[i] = searchResult{
				Title:  r.Item.DisplayTitle(),
				URL:    r.Item.URL,
				Type:   string(r.Item.Type),
				Course: r.Item.CourseName,
				Module: r.Item.ModuleName,
				Folder: r.Item.FolderPath,
				Score:  r.FinalScore,
			}
			if r.Item.DueAt != nil {
				out[i].DueAt = r.Item.DueAt.UTC().Format(time.RFC3339)
			}
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerIngestTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("canvascope_ingest",
		mcp.WithDescription("Ingest a scraper batch (JSON array of content items, or an object with platform and items fields). Merges with the stored collection and deduplicates."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("batch",
			mcp.Required(),
			mcp.Description("The raw JSON batch payload"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		batch, err := req.RequireString("batch")
		if err != nil {
			return mcp.NewToolResultError("batch is required"), nil
		}
		if strings.TrimSpace(batch) == "" {
			return mcp.NewToolResultError("batch cannot be empty"), nil
		}

		report, err := ingest.NewEngine(st).Ingest(ctx, []byte(batch))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("ingest error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(report, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerOpenTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("canvascope_open",
		mcp.WithDescription("Record that the user opened a result. Click feedback boosts the item in future rankings."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the opened item"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		rawURL, err := req.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		path := identity.URLPath(rawURL)
		if path == "" {
			return mcp.NewToolResultError(fmt.Sprintf("unusable url %q", rawURL)), nil
		}
		if err := st.RecordClick(ctx, path, time.Now().UTC()); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("recording click: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"recorded": %q}`, path)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("canvascope_stats",
		mcp.WithDescription("Collection statistics: item, course, click, search and scan-batch counts plus database size."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats error: %v", err)), nil
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func clickStats(records map[string]store.ClickRecord) map[string]rank.ClickStat {
	if len(records) == 0 {
		return nil
	}
	out := make(map[string]rank.ClickStat, len(records))
	for path, rec := range records {
		out[path] = rank.ClickStat{OpenCount: rec.OpenCount, LastOpenedAt: rec.LastOpenedAt}
	}
	return out
}
