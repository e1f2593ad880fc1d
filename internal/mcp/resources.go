package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NoelSason/canvascope/internal/store"
)

func registerStatsResource(s *server.MCPServer, st *store.Store) {
	resource := mcp.NewResource(
		"canvascope://stats",
		"Collection Stats",
		mcp.WithResourceDescription("Item, course, click, search and scan-batch counts plus database size."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := st.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading stats resource: %w", err)
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func registerRecentSearchesResource(s *server.MCPServer, st *store.Store) {
	resource := mcp.NewResource(
		"canvascope://searches/recent",
		"Recent Searches",
		mcp.WithResourceDescription("The 20 most recent search queries with result counts."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		entries, err := st.RecentSearches(ctx, 20)
		if err != nil {
			return nil, fmt.Errorf("reading recent searches resource: %w", err)
		}

		type entry struct {
			Query       string `json:"query"`
			ResultCount int    `json:"resultCount"`
			SearchedAt  string `json:"searchedAt"`
		}
		out := make([]entry, len(entries))
		for i, e := range entries {
			out[i] = entry{
				Query:       e.Query,
				ResultCount: e.ResultCount,
				SearchedAt:  e.SearchedAt.UTC().Format(time.RFC3339),
			}
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}
