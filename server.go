package rag

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/ingest"
	"github.com/childsafe-za/childsafe-rag/retriever"
	"github.com/childsafe-za/childsafe-rag/schema"
)

const Version = "1.0.0"

const defaultTopK = 5

// Service is the part of RAGClient exposed over MCP.
type Service interface {
	Query(ctx context.Context, query string, topK int) (schema.Response, error)
	SearchReports(ctx context.Context, query string, topK int) *retriever.LocalResult
	SearchArticles(ctx context.Context, query string) *retriever.SearchOutcome
}

// NewMCPServer registers the ChildSafe tools on a new MCP server.
func NewMCPServer(svc Service) *server.MCPServer {
	s := server.NewMCPServer(
		"childsafe-rag",
		Version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Answers questions about ChildSafe South Africa from its annual reports or recent web coverage."),
	)

	s.AddTool(mcp.NewTool("childsafe_query",
		mcp.WithDescription("Answer a question about ChildSafe South Africa. Routes to the annual reports or a web search and returns a grounded answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithNumber("top_k", mcp.Description("Number of report passages to use (default: 5)")),
	), HandleQuery(svc))

	s.AddTool(mcp.NewTool("search_reports",
		mcp.WithDescription("Semantic search over the indexed ChildSafe annual reports without answer synthesis"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages (default: 5)")),
	), HandleSearchReports(svc))

	s.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Web search for ChildSafe South Africa coverage, filtered for relevance"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
	), HandleSearchArticles(svc))

	s.AddTool(mcp.NewTool("list_reports",
		mcp.WithDescription("List the ChildSafe annual reports known to the ingestion registry"),
	), HandleListReports())

	return s
}

// ServeStdio serves the MCP tools over stdin/stdout until the client disconnects.
func ServeStdio(svc Service) error {
	logger.Infof("mcp: serving on stdio")
	return server.ServeStdio(NewMCPServer(svc))
}

func HandleQuery(svc Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("Missing 'query' field"), nil
		}
		resp, err := svc.Query(ctx, query, request.GetInt("top_k", defaultTopK))
		if err != nil {
			logger.Errorf("mcp: query failed: %v", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"results": resp})
	}
}

func HandleSearchReports(svc Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("Missing 'query' field"), nil
		}
		res := svc.SearchReports(ctx, query, request.GetInt("top_k", defaultTopK))
		return jsonResult(map[string]any{
			"query":      res.Query,
			"results":    res.Documents(),
			"metadatas":  res.Metadatas(),
			"scores":     res.Scores(),
			"ids":        res.IDs(),
			"total_docs": res.TotalDocs,
			"error":      res.Error,
		})
	}
}

func HandleSearchArticles(svc Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || query == "" {
			return mcp.NewToolResultError("Missing 'query' field"), nil
		}
		return jsonResult(svc.SearchArticles(ctx, query))
	}
}

func HandleListReports() server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(ingest.Reports())
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
