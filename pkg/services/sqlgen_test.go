package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/llm"
)

func testAnsweringConfig() config.AnsweringConfig {
	return config.AnsweringConfig{
		RowLimit:         50,
		PreviewRows:      10,
		EmployeeIDPrefix: "LCL",
		FuzzyThreshold:   75,
		FuzzyTopN:        5,
	}
}

func sqlgenWithResponse(t *testing.T, content string, err error) (*llm.MockLLMClient, SQLGenerationService) {
	t.Helper()
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		if err != nil {
			return nil, err
		}
		return &llm.GenerateResponseResult{Content: content}, nil
	}
	return mock, NewSQLGenerationService(mock, testAnsweringConfig(), zap.NewNop())
}

func TestSQLGeneration_Generate(t *testing.T) {
	response := `{
		"sql": "SELECT e.full_name FROM employees e WHERE e.full_name ILIKE {{name}} LIMIT 50",
		"parameters": {"name": "%priya%"},
		"notes": "Name filter with wildcard binding."
	}`
	_, svc := sqlgenWithResponse(t, response, nil)

	query, err := svc.Generate(context.Background(), "who is priya?", "employees: id, full_name")
	require.NoError(t, err)

	assert.Contains(t, query.SQL, "ILIKE {{name}}")
	assert.Equal(t, "%priya%", query.Parameters["name"])
	assert.NotEmpty(t, query.Notes)
}

func TestSQLGeneration_Generate_CodeFencedResponse(t *testing.T) {
	response := "```json\n{\"sql\": \"SELECT COUNT(*) FROM employees\", \"parameters\": {}}\n```"
	_, svc := sqlgenWithResponse(t, response, nil)

	query, err := svc.Generate(context.Background(), "how many employees?", "employees: id")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM employees", query.SQL)
	assert.NotNil(t, query.Parameters)
}

func TestSQLGeneration_Generate_NilParametersInitialized(t *testing.T) {
	response := `{"sql": "SELECT COUNT(*) FROM goals"}`
	_, svc := sqlgenWithResponse(t, response, nil)

	query, err := svc.Generate(context.Background(), "how many goals?", "goals: id")
	require.NoError(t, err)
	assert.NotNil(t, query.Parameters)
	assert.Empty(t, query.Parameters)
}

func TestSQLGeneration_Generate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response string
		llmErr   error
		wantMsg  string
	}{
		{
			name:    "llm failure",
			llmErr:  errors.New("timeout"),
			wantMsg: "failed to generate SQL",
		},
		{
			name:     "no json in response",
			response: "SELECT * FROM employees",
			wantMsg:  "failed to parse",
		},
		{
			name:     "empty sql",
			response: `{"sql": "  ", "parameters": {}}`,
			wantMsg:  "empty SQL",
		},
		{
			name:     "unbound placeholder",
			response: `{"sql": "SELECT * FROM employees WHERE full_name ILIKE {{name}}", "parameters": {}}`,
			wantMsg:  "unbound placeholders",
		},
		{
			name:     "placeholder inside string literal",
			response: `{"sql": "SELECT * FROM employees WHERE full_name ILIKE '{{name}}'", "parameters": {"name": "%priya%"}}`,
			wantMsg:  "string literals",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, svc := sqlgenWithResponse(t, tt.response, tt.llmErr)

			query, err := svc.Generate(context.Background(), "who is priya?", "employees: id, full_name")

			require.Error(t, err)
			assert.Nil(t, query)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSQLGeneration_Temperatures(t *testing.T) {
	mock := llm.NewMockLLMClient()
	var temperatures []float64
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		temperatures = append(temperatures, temperature)
		return &llm.GenerateResponseResult{Content: `{"sql": "SELECT 1", "parameters": {}}`}, nil
	}
	svc := NewSQLGenerationService(mock, testAnsweringConfig(), zap.NewNop())

	_, err := svc.Generate(context.Background(), "q", "schema")
	require.NoError(t, err)
	_, err = svc.Repair(context.Background(), "q", "schema", "SELECT bogus", "column does not exist")
	require.NoError(t, err)

	require.Len(t, temperatures, 2)
	assert.InDelta(t, 0.1, temperatures[0], 1e-9)
	assert.Zero(t, temperatures[1])
}

func TestSQLGeneration_Repair_FeedsFailureBack(t *testing.T) {
	mock := llm.NewMockLLMClient()
	var gotPrompt string
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, temperature float64, thinking bool) (*llm.GenerateResponseResult, error) {
		gotPrompt = prompt
		return &llm.GenerateResponseResult{
			Content: `{"sql": "SELECT designation FROM employees", "parameters": {}}`,
		}, nil
	}
	svc := NewSQLGenerationService(mock, testAnsweringConfig(), zap.NewNop())

	query, err := svc.Repair(context.Background(), "what is the CEO's title?", "employees: id, designation",
		"SELECT job_title FROM employees", `column "job_title" does not exist`)
	require.NoError(t, err)

	assert.Equal(t, "SELECT designation FROM employees", query.SQL)
	assert.Contains(t, gotPrompt, "SELECT job_title FROM employees")
	assert.Contains(t, gotPrompt, `column "job_title" does not exist`)
}

func TestSQLGeneration_Repair_Errors(t *testing.T) {
	_, svc := sqlgenWithResponse(t, "", errors.New("connection reset"))

	query, err := svc.Repair(context.Background(), "q", "schema", "SELECT 1", "boom")

	require.Error(t, err)
	assert.Nil(t, query)
	assert.Contains(t, err.Error(), "failed to repair SQL")
}
