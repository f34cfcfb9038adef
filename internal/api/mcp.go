package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/aide/internal/memory"
	"github.com/kalambet/aide/internal/session"
)

// MCPDeps holds dependencies for the MCP server. Every tool acts on Session.
type MCPDeps struct {
	Session *session.Session
}

// NewMCPServer creates an MCP server with the assistant tools and memory
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"aide",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("aide: personal assistant with weather, calendar and mail tools and a conversation memory."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Send a message to the assistant and get its reply. The exchange is remembered."),
			mcp.WithString("message", mcp.Description("What to ask"), mcp.Required()),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("classify_intent",
			mcp.WithDescription("Classify a message as weather, calendar, email or general and extract its entities."),
			mcp.WithString("message", mcp.Description("Text to classify"), mcp.Required()),
		),
		mcpClassify(deps),
	)

	s.AddTool(
		mcp.NewTool("recall",
			mcp.WithDescription("Return remembered exchanges relevant to a query."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpRecall(deps),
	)

	s.AddTool(
		mcp.NewTool("search_memory",
			mcp.WithDescription("Find remembered exchanges containing a keyword, newest first."),
			mcp.WithString("keyword", mcp.Description("Case-insensitive keyword"), mcp.Required()),
		),
		mcpSearchMemory(deps),
	)

	s.AddTool(
		mcp.NewTool("memory_stats",
			mcp.WithDescription("Summarize the memory store: totals, categories, average importance."),
		),
		mcpMemoryStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"memory://preferences",
			"User Preferences",
			mcp.WithResourceDescription("Preferences learned from the conversation, by kind"),
			mcp.WithMIMEType("application/json"),
		),
		mcpJSONResource(func() any { return deps.Session.Memory().Preferences() }),
	)

	s.AddResource(
		mcp.NewResource(
			"memory://facts",
			"Important Facts",
			mcp.WithResourceDescription("Dates, times and similar facts noted during the conversation"),
			mcp.WithMIMEType("application/json"),
		),
		mcpJSONResource(func() any { return deps.Session.Memory().Facts() }),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		return mcpText(deps.Session.Handle(ctx, msg).Text), nil
	}
}

func mcpClassify(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}
		return mcpJSON(deps.Session.Classify(msg))
	}
}

func mcpRecall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", memory.DefaultRelevantLimit)
		if limit <= 0 {
			limit = memory.DefaultRelevantLimit
		}
		if limit > 50 {
			limit = 50
		}

		scored := deps.Session.Memory().Score(query, limit)
		if len(scored) == 0 {
			return mcpText("[]"), nil
		}

		type recallResult struct {
			Timestamp string  `json:"timestamp"`
			UserInput string  `json:"user_input"`
			Response  string  `json:"assistant_response"`
			Category  string  `json:"category"`
			Score     float64 `json:"score"`
		}
		results := make([]recallResult, len(scored))
		for i, sc := range scored {
			results[i] = recallResult{
				Timestamp: sc.Entry.Timestamp.Format("2006-01-02 15:04"),
				UserInput: sc.Entry.UserInput,
				Response:  sc.Entry.AssistantResponse,
				Category:  sc.Entry.Category,
				Score:     sc.Score,
			}
		}
		return mcpJSON(results)
	}
}

func mcpSearchMemory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kw, err := req.RequireString("keyword")
		if err != nil {
			return mcpError("keyword is required"), nil
		}
		return mcpJSON(nonNil(deps.Session.Memory().Search(kw)))
	}
}

func mcpMemoryStats(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcpJSON(deps.Session.Memory().Stats())
	}
}

func mcpJSONResource(load func() any) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(load())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", req.Params.URI, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

