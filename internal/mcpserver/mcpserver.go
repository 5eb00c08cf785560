// Package mcpserver exposes the configured "md" and "sql" engines as MCP
// tools over stdio, for agent integrations that speak the Model Context
// Protocol rather than plain HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/engine"
	"github.com/dbsmedya/dbs-vector/internal/search"
)

const version = "0.1.0"

// New builds an MCP server exposing search_documents (backed by the "md"
// engine, when configured) and search_sql_logs (backed by "sql").
func New(reg *engine.Registry) *server.MCPServer {
	s := server.NewMCPServer("dbs-vector", version)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Search indexed codebase documents (Markdown, text, etc.) via semantic vector search."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The semantic search query or concept you are looking for.")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results to return.")),
			mcp.WithString("source_filter", mcp.Description("Optional exact file path to restrict the search.")),
		),
		searchDocumentsHandler(reg),
	)

	s.AddTool(
		mcp.NewTool("search_sql_logs",
			mcp.WithDescription("Search indexed SQL query logs via semantic vector search."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The semantic search query, e.g. 'find user by email' or partial SQL.")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results to return.")),
			mcp.WithString("source_filter", mcp.Description("Optional database name to restrict the search.")),
			mcp.WithNumber("min_time", mcp.Description("Minimum execution time in milliseconds.")),
		),
		searchSqlLogsHandler(reg),
	)

	return s
}

// Serve blocks, serving the MCP protocol over stdin/stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func searchDocumentsHandler(reg *engine.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := int(req.GetFloat("limit", 5))
		var sourceFilter *string
		if v := req.GetString("source_filter", ""); v != "" {
			sourceFilter = &v
		}

		inst, err := reg.Get("md")
		if err != nil || inst.Document == nil {
			return mcp.NewToolResultText("Error: Document search service ('md' engine) is not initialized."), nil
		}

		results, err := inst.Document.Search(ctx, query, search.Options{Limit: limit, SourceFilter: sourceFilter})
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("Search execution failed: %s", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results found for query: '%s'", query)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d results for '%s':\n\n", len(results), query)
		for _, res := range results {
			b.WriteString(formatDocumentResult(res))
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func searchSqlLogsHandler(reg *engine.Registry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := int(req.GetFloat("limit", 5))
		var sourceFilter *string
		if v := req.GetString("source_filter", ""); v != "" {
			sourceFilter = &v
		}
		var minTime *float64
		if req.GetFloat("min_time", -1) >= 0 {
			v := req.GetFloat("min_time", 0)
			minTime = &v
		}

		inst, err := reg.Get("sql")
		if err != nil || inst.SQL == nil {
			return mcp.NewToolResultText("Error: SQL search service ('sql' engine) is not initialized."), nil
		}

		results, err := inst.SQL.Search(ctx, query, search.Options{Limit: limit, SourceFilter: sourceFilter, MinTime: minTime})
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("Search execution failed: %s", err)), nil
		}
		if len(results) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No results found for query: '%s'", query)), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Found %d results for '%s':\n\n", len(results), query)
		for _, res := range results {
			b.WriteString(formatSqlResult(res))
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}

func distanceLabel(distance *float32) string {
	if distance == nil {
		return "N/A (FTS)"
	}
	return fmt.Sprintf("%.4f", *distance)
}

func formatDocumentResult(res core.SearchResult) string {
	return fmt.Sprintf(
		"--- Result (Score: %s) ---\nSource: %s\nContent:\n%s\n\n",
		distanceLabel(res.Distance), res.Chunk.Source, res.Chunk.Text,
	)
}

func formatSqlResult(res core.SqlSearchResult) string {
	return fmt.Sprintf(
		"--- Result (Score: %s) ---\nSource Database: %s\nExecution Time: %gms (Calls: %d)\nSQL Query:\n%s\n\n",
		distanceLabel(res.Distance), res.Chunk.Source, res.Chunk.ExecutionTimeMs, res.Chunk.Calls, res.Chunk.RawQuery,
	)
}
