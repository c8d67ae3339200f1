package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jchaffin/call-analytics-pinecone/internal/transcript"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Analyzer         Analyzer
	Clusterer        Clusterer
	DefaultModel     string
	DefaultThreshold float64
	DefaultLimit     int
}

// NewMCPServer creates an MCP server exposing call analysis and intent
// clustering as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"call-analytics",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("Call analytics — classify customer-service call transcripts, extract summaries and products, and cluster intents across stored calls."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_call",
			mcp.WithDescription("Analyze a customer-service call transcript: call type, outcome, intent, summary, products, and related documents."),
			mcp.WithString("transcript", mcp.Description("Full call transcript text"), mcp.Required()),
			mcp.WithString("model", mcp.Description("Model id to analyze with (defaults to the configured model)")),
		),
		mcpAnalyzeCall(deps),
	)

	s.AddTool(
		mcp.NewTool("cluster_intents",
			mcp.WithDescription("Group stored call intents into clusters of semantically equivalent phrasings."),
			mcp.WithNumber("threshold", mcp.Description("Cosine similarity merge threshold, strictly between 0 and 1")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of stored calls to scan")),
		),
		mcpClusterIntents(deps),
	)

	return s
}

func mcpAnalyzeCall(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := req.RequireString("transcript")
		if err != nil {
			return mcpError("transcript is required"), nil
		}
		model := req.GetString("model", deps.DefaultModel)

		rec, err := deps.Analyzer.Analyze(ctx, transcript.Sanitize(raw), model)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		b, err := json.Marshal(rec)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpClusterIntents(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		threshold := req.GetFloat("threshold", deps.DefaultThreshold)
		limit := req.GetInt("limit", deps.DefaultLimit)

		report, err := deps.Clusterer.ClusterIntents(ctx, threshold, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("clustering failed: %v", err)), nil
		}

		b, err := json.Marshal(report)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
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
