// Package tools provides the MCP tool implementations for crewstack-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/services"
)

// AskToolDeps contains dependencies for the ask_hr tool.
type AskToolDeps struct {
	Answer  services.AnswerService
	Offline services.OfflineAnswerService
	Logger  *zap.Logger
}

// RegisterAskTool adds the ask_hr tool. It runs the same answering
// pipeline as POST /api/ask and returns the structured answer as JSON.
func RegisterAskTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_hr",
		mcp.WithDescription(
			"Ask a natural language question about employees, departments, goals, "+
				"projects, and skills. Returns a structured answer with the narrative "+
				"text, the query that produced it, and a preview of the matched rows. "+
				"Example: ask_hr(question='How many employees work as Delivery Managers?')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question to answer (e.g., 'Who reports to LCL16110001?')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}

		question = strings.TrimSpace(question)
		if question == "" {
			return NewErrorResult("invalid_parameters", "question parameter cannot be empty"), nil
		}

		result, err := deps.Answer.Answer(ctx, question)
		if err != nil {
			deps.Logger.Warn("Answer pipeline unavailable, using offline fallback", zap.Error(err))
			result = deps.Offline.Answer(ctx, question)
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal answer: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
