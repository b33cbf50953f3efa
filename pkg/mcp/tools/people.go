package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/repositories"
	"github.com/crewstack/crewstack-engine/pkg/services"
)

const (
	defaultPeopleLimit = 10
	maxPeopleLimit     = 25
)

// PeopleToolDeps contains dependencies for the search_people tool.
type PeopleToolDeps struct {
	Index     services.SemanticIndexService
	Employees repositories.EmployeeRepository
	Logger    *zap.Logger
}

// personMatch is one search hit.
type personMatch struct {
	EmployeeID string  `json:"employee_id,omitempty"`
	FullName   string  `json:"full_name,omitempty"`
	Content    string  `json:"content"`
	Score      float64 `json:"score,omitempty"`
}

// peopleResult is the search_people tool payload.
type peopleResult struct {
	Query      string        `json:"query"`
	Mode       string        `json:"mode"`
	Matches    []personMatch `json:"matches"`
	TotalCount int           `json:"total_count"`
}

// RegisterPeopleTool adds the search_people tool. With the vector index
// enabled it searches employee documents semantically; without it the
// query falls back to a name pattern match so the tool stays usable on
// installs that run without embeddings.
func RegisterPeopleTool(s *server.MCPServer, deps *PeopleToolDeps) {
	tool := mcp.NewTool(
		"search_people",
		mcp.WithDescription(
			"Search for employees by free text. Matches names, designations, and "+
				"role descriptions, ranked by relevance. "+
				"Example: search_people(query='senior delivery manager') returns the "+
				"closest matching employees.",
		),
		mcp.WithString(
			"query",
			mcp.Required(),
			mcp.Description("Search text (e.g., a name, role, or team description)"),
		),
		mcp.WithNumber(
			"limit",
			mcp.Description("Maximum number of results to return (default 10, max 25)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return nil, err
		}

		query = strings.TrimSpace(query)
		if query == "" {
			return NewErrorResult("invalid_parameters", "query parameter cannot be empty"), nil
		}

		limit := defaultPeopleLimit
		if limitVal, ok := req.Params.Arguments.(map[string]any)["limit"]; ok {
			if limitFloat, ok := limitVal.(float64); ok && limitFloat > 0 {
				limit = int(limitFloat)
			}
		}
		if limit > maxPeopleLimit {
			limit = maxPeopleLimit
		}

		result := peopleResult{Query: query, Matches: []personMatch{}}
		if deps.Index.Enabled() {
			result.Mode = "semantic"
			for _, match := range deps.Index.Search(ctx, query, limit, services.KindEmployee) {
				result.Matches = append(result.Matches, personMatch{
					EmployeeID: match.MetadataString("employee_id"),
					FullName:   match.MetadataString("full_name"),
					Content:    match.Content,
					Score:      match.Score,
				})
			}
		} else {
			result.Mode = "name"
			employees, err := deps.Employees.SearchByName(ctx, "%"+query+"%", limit)
			if err != nil {
				deps.Logger.Error("Name search failed", zap.Error(err))
				return nil, fmt.Errorf("failed to search employees: %w", err)
			}
			for _, e := range employees {
				result.Matches = append(result.Matches, personMatch{
					EmployeeID: e.EmployeeID,
					FullName:   e.FullName,
					Content:    fmt.Sprintf("Employee: %s | %s | %s", e.FullName, e.Designation, e.Email),
				})
			}
		}
		result.TotalCount = len(result.Matches)

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}

		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
