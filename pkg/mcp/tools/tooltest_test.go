package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/server"

	"github.com/crewstack/crewstack-engine/pkg/models"
)

// callTool runs one tools/call round trip through the server and returns
// the text payload of the first content block.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (text string, isError bool) {
	t.Helper()

	params := map[string]any{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	request := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params":  params,
		"id":      1,
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	result := s.HandleMessage(context.Background(), requestBytes)
	resultBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var response struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resultBytes, &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if response.Error != nil {
		t.Fatalf("tool call failed with JSON-RPC error %d: %s", response.Error.Code, response.Error.Message)
	}
	if len(response.Result.Content) == 0 {
		t.Fatal("expected content in response")
	}
	if response.Result.Content[0].Type != "text" {
		t.Fatalf("expected content type 'text', got %q", response.Result.Content[0].Type)
	}
	return response.Result.Content[0].Text, response.Result.IsError
}

func newToolServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// mockAnswerService implements services.AnswerService.
type mockAnswerService struct {
	result   *models.AnsweredQuery
	err      error
	received string
}

func (m *mockAnswerService) Answer(ctx context.Context, question string) (*models.AnsweredQuery, error) {
	m.received = question
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockOfflineService implements services.OfflineAnswerService.
type mockOfflineService struct {
	result *models.AnsweredQuery
	called bool
}

func (m *mockOfflineService) Answer(ctx context.Context, question string) *models.AnsweredQuery {
	m.called = true
	return m.result
}

// mockIndexService implements services.SemanticIndexService.
type mockIndexService struct {
	enabled bool
	matches []models.SemanticMatch
	topK    int
	kinds   []string
}

func (m *mockIndexService) Enabled() bool { return m.enabled }

func (m *mockIndexService) RebuildAll(ctx context.Context) (int, error) { return 0, nil }

func (m *mockIndexService) EnsureIndexed(ctx context.Context) error { return nil }

func (m *mockIndexService) Search(ctx context.Context, query string, topK int, kinds ...string) []models.SemanticMatch {
	m.topK = topK
	m.kinds = kinds
	return m.matches
}

// mockEmployeeRepo implements repositories.EmployeeRepository.
type mockEmployeeRepo struct {
	employees   []models.Employee
	searchErr   error
	lastPattern string
	lastLimit   int
}

func (m *mockEmployeeRepo) UpsertBatch(ctx context.Context, employees []models.Employee) (int, error) {
	return 0, nil
}

func (m *mockEmployeeRepo) GetByEmployeeID(ctx context.Context, employeeID string) (*models.Employee, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m *mockEmployeeRepo) SearchByName(ctx context.Context, namePattern string, limit int) ([]models.Employee, error) {
	m.lastPattern = namePattern
	m.lastLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.employees, nil
}

func (m *mockEmployeeRepo) ListSubordinates(ctx context.Context, managerEmployeeID string, limit int) ([]models.Employee, error) {
	return nil, nil
}

func (m *mockEmployeeRepo) ListAll(ctx context.Context) ([]models.Employee, error) {
	return m.employees, nil
}

func (m *mockEmployeeRepo) ListNames(ctx context.Context) ([]models.EmployeeName, error) {
	return nil, nil
}

func (m *mockEmployeeRepo) Stats(ctx context.Context) (*models.EmployeeStats, error) {
	return &models.EmployeeStats{}, nil
}
