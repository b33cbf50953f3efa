//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewstack/crewstack-engine/pkg/models"
	"github.com/crewstack/crewstack-engine/pkg/testhelpers"
)

// queryLogTestContext holds test dependencies for AI query log repository
// tests.
type queryLogTestContext struct {
	t        *testing.T
	engineDB *testhelpers.EngineDB
	repo     AIQueryLogRepository
}

func setupQueryLogTest(t *testing.T) *queryLogTestContext {
	engineDB := testhelpers.GetEngineDB(t)
	tc := &queryLogTestContext{
		t:        t,
		engineDB: engineDB,
		repo:     NewAIQueryLogRepository(engineDB.DB),
	}
	t.Cleanup(tc.cleanup)
	return tc
}

func (tc *queryLogTestContext) cleanup() {
	tc.t.Helper()
	_, _ = tc.engineDB.DB.Exec(context.Background(),
		"DELETE FROM ai_query_logs WHERE question LIKE '[test]%'")
}

func TestAIQueryLogRepository_AppendAssignsIDAndTimestamp(t *testing.T) {
	tc := setupQueryLogTest(t)

	entry := &models.AIQueryLogEntry{
		Question:    "[test] Who reports to Rammohan?",
		QueryType:   "sql",
		QueryUsed:   "SELECT e.full_name FROM employees e JOIN employees m ON e.manager_employee_id = m.employee_id WHERE m.full_name ILIKE $1",
		Parameters:  models.JSONBMap{"manager_name": "%rammohan%"},
		ResultCount: 3,
		Answer:      "Three people report to Rammohan.",
		Success:     true,
		DurationMs:  412,
	}

	err := tc.repo.Append(context.Background(), entry)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAIQueryLogRepository_ListRoundTripsFields(t *testing.T) {
	tc := setupQueryLogTest(t)
	ctx := context.Background()

	entry := &models.AIQueryLogEntry{
		Question:    "[test] What is the capital of the marketing department?",
		QueryType:   "semantic",
		QueryUsed:   "vector_search:employees",
		ResultCount: 0,
		Answer:      "No matching records were found.",
		Success:     false,
		DurationMs:  96,
	}
	require.NoError(t, tc.repo.Append(ctx, entry))

	entries, err := tc.repo.List(ctx, 20, 0)
	require.NoError(t, err)

	var got *models.AIQueryLogEntry
	for i := range entries {
		if entries[i].ID == entry.ID {
			got = &entries[i]
			break
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, entry.Question, got.Question)
	assert.Equal(t, "semantic", got.QueryType)
	assert.Equal(t, "vector_search:employees", got.QueryUsed)
	assert.Equal(t, 0, got.ResultCount)
	assert.False(t, got.Success)
	assert.Equal(t, int64(96), got.DurationMs)
	assert.NotNil(t, got.Parameters, "nil parameters must round-trip as an empty object")
}

func TestAIQueryLogRepository_ListParametersRoundTrip(t *testing.T) {
	tc := setupQueryLogTest(t)
	ctx := context.Background()

	entry := &models.AIQueryLogEntry{
		Question:    "[test] Which skills does Noor have?",
		QueryType:   "sql",
		QueryUsed:   "SELECT s.name FROM skills s JOIN employee_skills es ON s.skill_id = es.skill_id WHERE es.employee_id = $1",
		Parameters:  models.JSONBMap{"employee_id": "LCL0042", "limit": float64(50)},
		ResultCount: 2,
		Answer:      "Noor has Terraform and Kubernetes skills.",
		Success:     true,
		DurationMs:  213,
	}
	require.NoError(t, tc.repo.Append(ctx, entry))

	entries, err := tc.repo.List(ctx, 20, 0)
	require.NoError(t, err)

	var got *models.AIQueryLogEntry
	for i := range entries {
		if entries[i].ID == entry.ID {
			got = &entries[i]
			break
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, "LCL0042", got.Parameters["employee_id"])
	assert.Equal(t, float64(50), got.Parameters["limit"])
}

func TestAIQueryLogRepository_Count(t *testing.T) {
	tc := setupQueryLogTest(t)
	ctx := context.Background()

	before, err := tc.repo.Count(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		entry := &models.AIQueryLogEntry{
			Question:  "[test] counted question",
			QueryType: "sql",
			Answer:    "ok",
			Success:   true,
		}
		require.NoError(t, tc.repo.Append(ctx, entry))
	}

	after, err := tc.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+3, after)
}

func TestAIQueryLogRepository_StatsAggregates(t *testing.T) {
	tc := setupQueryLogTest(t)
	ctx := context.Background()

	before, err := tc.repo.Stats(ctx)
	require.NoError(t, err)

	entries := []*models.AIQueryLogEntry{
		{Question: "[test] aggregated ok", QueryType: "sql", Answer: "ok", Success: true, DurationMs: 100},
		{Question: "[test] aggregated ok", QueryType: "hybrid", Answer: "ok", Success: true, DurationMs: 300},
		{Question: "[test] aggregated failed", QueryType: "offline-sql", Answer: "no", Success: false, DurationMs: 20},
	}
	for _, e := range entries {
		require.NoError(t, tc.repo.Append(ctx, e))
	}

	after, err := tc.repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Total+3, after.Total)
	assert.Equal(t, before.Successful+2, after.Successful)
	assert.Equal(t, before.Failed+1, after.Failed)
	assert.Greater(t, after.AvgDurationMs, float64(0))
}
