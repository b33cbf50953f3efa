package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// RegisterHealthTool adds the health tool, which reports liveness and the
// running build so MCP clients can verify what they are talking to.
func RegisterHealthTool(s *server.MCPServer, version string) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status and version"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := json.Marshal(healthResult{
			Status:  "ok",
			Service: "crewstack-engine",
			Version: version,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	})
}
