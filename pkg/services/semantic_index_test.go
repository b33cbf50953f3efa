package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/llm"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

func testVectorConfig() config.VectorConfig {
	return config.VectorConfig{
		Enabled:      true,
		Dimension:    4,
		BatchSize:    128,
		SearchTopK:   10,
		FallbackTopK: 5,
	}
}

// embedderCalls records CreateEmbeddings batches. Batches arrive from pool
// goroutines, so every accessor locks.
type embedderCalls struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *embedderCalls) record(inputs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]string(nil), inputs...))
}

func (c *embedderCalls) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// sizes returns the recorded batch sizes in ascending order since batch
// completion order is not deterministic.
func (c *embedderCalls) sizes() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	sizes := make([]int, len(c.batches))
	for i, b := range c.batches {
		sizes[i] = len(b)
	}
	sort.Ints(sizes)
	return sizes
}

func (c *embedderCalls) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = nil
}

// countingEmbedder returns a fixed-size vector per input and tracks batch
// sizes across CreateEmbeddings calls.
func countingEmbedder() (*llm.MockLLMClient, *embedderCalls) {
	calls := &embedderCalls{}
	mock := llm.NewMockLLMClient()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		calls.record(inputs)
		vectors := make([][]float32, len(inputs))
		for i := range inputs {
			vectors[i] = []float32{1, 0, 0, 0}
		}
		return vectors, nil
	}
	mock.CreateEmbeddingFunc = func(ctx context.Context, input string, model string) ([]float32, error) {
		return []float32{1, 0, 0, 0}, nil
	}
	return mock, calls
}

func strRef(s string) *string { return &s }

func indexFixtures() (*mockEmployeeRepository, *mockGoalRepository, *mockProjectRepository, *mockSkillRepository) {
	employees := &mockEmployeeRepository{employees: []models.Employee{
		{EmployeeID: "LCL001", FullName: "Priya Sharma", Designation: "Engineering Manager", Email: "priya@example.com", Active: true},
		{EmployeeID: "LCL002", FullName: "Arjun Mehta", Designation: "Senior Developer", Email: "arjun@example.com", ManagerEmployeeID: strRef("LCL001"), Active: true},
	}}
	goals := &mockGoalRepository{goals: []models.Goal{
		{GoalID: "G-1", Title: "Ship quarterly dashboard", Description: "Roll out the reporting dashboard", Status: models.GoalStatusInProgress, Category: "Delivery", AssignedToEmployeeID: strRef("LCL002")},
	}}
	projects := &mockProjectRepository{projects: []models.Project{
		{ProjectID: "P-1", Name: "Billing Rewrite", Description: "Replace the legacy billing stack", ProjectManager: "Priya Sharma"},
	}}
	skills := &mockSkillRepository{skills: []models.Skill{
		{SkillID: "S-1", Name: "Kubernetes", Category: "Infrastructure", Description: "Cluster operations"},
	}}
	return employees, goals, projects, skills
}

func TestSemanticIndex_RebuildAll(t *testing.T) {
	employees, goals, projects, skills := indexFixtures()
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, calls := countingEmbedder()

	svc := NewSemanticIndexService(embeddingRepo, employees, goals, projects, skills, embedder, testVectorConfig(), zap.NewNop())

	total, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Equal(t, 1, calls.count())

	byID := map[string]models.EmbeddingDocument{}
	for _, doc := range embeddingRepo.upserted {
		byID[doc.ID] = doc
	}
	require.Len(t, byID, 5)

	emp := byID["employee:LCL001"]
	assert.Equal(t, KindEmployee, emp.Kind)
	assert.Equal(t, "Employee: Priya Sharma | Engineering Manager | priya@example.com", emp.Content)
	assert.Equal(t, "Priya Sharma", emp.Metadata["full_name"])
	assert.Equal(t, "LCL001", emp.Metadata["employee_id"])

	goal := byID["goal:G-1"]
	assert.Equal(t, "Goal: Ship quarterly dashboard | Roll out the reporting dashboard | In Progress | Delivery", goal.Content)
	assert.Equal(t, "LCL002", goal.Metadata["employee_id"])

	project := byID["project:P-1"]
	assert.Equal(t, "Project: Billing Rewrite | Replace the legacy billing stack | Manager: Priya Sharma", project.Content)

	skill := byID["skill:S-1"]
	assert.Equal(t, "Skill: Kubernetes | Infrastructure | Cluster operations", skill.Content)
}

func TestSemanticIndex_RebuildAll_Idempotent(t *testing.T) {
	employees, goals, projects, skills := indexFixtures()
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, _ := countingEmbedder()

	svc := NewSemanticIndexService(embeddingRepo, employees, goals, projects, skills, embedder, testVectorConfig(), zap.NewNop())

	first, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	second, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Keys come from entity kind and natural id, so an unchanged dataset
	// writes the same id set both times and the store overwrites rather
	// than duplicating.
	firstIDs := map[string]bool{}
	for _, doc := range embeddingRepo.upserted[:first] {
		firstIDs[doc.ID] = true
	}
	secondIDs := map[string]bool{}
	for _, doc := range embeddingRepo.upserted[first:] {
		secondIDs[doc.ID] = true
	}
	assert.Equal(t, firstIDs, secondIDs)
}

func TestSemanticIndex_RebuildAll_Disabled(t *testing.T) {
	employees, goals, projects, skills := indexFixtures()
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, calls := countingEmbedder()

	cfg := testVectorConfig()
	cfg.Enabled = false
	svc := NewSemanticIndexService(embeddingRepo, employees, goals, projects, skills, embedder, cfg, zap.NewNop())

	total, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, calls.count())
	assert.False(t, svc.Enabled())
}

func TestSemanticIndex_RebuildAll_Batches(t *testing.T) {
	employees := &mockEmployeeRepository{}
	for i := 0; i < 5; i++ {
		employees.employees = append(employees.employees, models.Employee{
			EmployeeID: fmt.Sprintf("LCL%03d", i),
			FullName:   fmt.Sprintf("Employee %d", i),
			Email:      fmt.Sprintf("e%d@example.com", i),
		})
	}
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, calls := countingEmbedder()

	cfg := testVectorConfig()
	cfg.BatchSize = 2
	svc := NewSemanticIndexService(embeddingRepo, employees, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, cfg, zap.NewNop())

	total, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, []int{1, 2, 2}, calls.sizes())
}

func TestSemanticIndex_RebuildAll_SkipsFailedBatch(t *testing.T) {
	employees := &mockEmployeeRepository{}
	for i := 0; i < 4; i++ {
		employees.employees = append(employees.employees, models.Employee{
			EmployeeID: fmt.Sprintf("LCL%03d", i),
			FullName:   fmt.Sprintf("Employee %d", i),
		})
	}
	embeddingRepo := &mockEmbeddingRepository{}

	mock := llm.NewMockLLMClient()
	var call int32
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		if atomic.AddInt32(&call, 1) == 1 {
			return nil, errors.New("rate limited")
		}
		vectors := make([][]float32, len(inputs))
		for i := range inputs {
			vectors[i] = []float32{1, 0, 0, 0}
		}
		return vectors, nil
	}

	cfg := testVectorConfig()
	cfg.BatchSize = 2
	svc := NewSemanticIndexService(embeddingRepo, employees, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, mock, cfg, zap.NewNop())

	total, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, embeddingRepo.upserted, 2)
}

func TestSemanticIndex_RebuildAll_BreakerStopsDeadProvider(t *testing.T) {
	employees := &mockEmployeeRepository{}
	for i := 0; i < 20; i++ {
		employees.employees = append(employees.employees, models.Employee{
			EmployeeID: fmt.Sprintf("LCL%03d", i),
			FullName:   fmt.Sprintf("Employee %d", i),
		})
	}
	embeddingRepo := &mockEmbeddingRepository{}

	calls := &embedderCalls{}
	mock := llm.NewMockLLMClient()
	mock.CreateEmbeddingsFunc = func(ctx context.Context, inputs []string, model string) ([][]float32, error) {
		calls.record(inputs)
		return nil, errors.New("connection refused")
	}

	cfg := testVectorConfig()
	cfg.BatchSize = 1
	svc := NewSemanticIndexService(embeddingRepo, employees, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, mock, cfg, zap.NewNop())

	total, err := svc.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, embeddingRepo.upserted)

	// The circuit opens after five consecutive failures, so later batches
	// are rejected without reaching the provider.
	assert.GreaterOrEqual(t, calls.count(), 5)
	assert.Less(t, calls.count(), 20)
}

func TestSemanticIndex_RebuildAll_SourceReadFailure(t *testing.T) {
	employees := &mockEmployeeRepository{err: errors.New("connection refused")}
	embedder, _ := countingEmbedder()

	svc := NewSemanticIndexService(&mockEmbeddingRepository{}, employees, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, testVectorConfig(), zap.NewNop())

	_, err := svc.RebuildAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list employees")
}

func TestSemanticIndex_EnsureIndexed(t *testing.T) {
	employees, goals, projects, skills := indexFixtures()
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, calls := countingEmbedder()

	svc := NewSemanticIndexService(embeddingRepo, employees, goals, projects, skills, embedder, testVectorConfig(), zap.NewNop())

	require.NoError(t, svc.EnsureIndexed(context.Background()))
	assert.Len(t, embeddingRepo.upserted, 5)

	// Second call sees a populated index and must not re-embed.
	calls.reset()
	require.NoError(t, svc.EnsureIndexed(context.Background()))
	assert.Zero(t, calls.count())
}

func TestSemanticIndex_EnsureIndexed_Disabled(t *testing.T) {
	embeddingRepo := &mockEmbeddingRepository{}
	embedder, calls := countingEmbedder()

	cfg := testVectorConfig()
	cfg.Enabled = false
	svc := NewSemanticIndexService(embeddingRepo, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, cfg, zap.NewNop())

	require.NoError(t, svc.EnsureIndexed(context.Background()))
	assert.Zero(t, calls.count())
}

func TestSemanticIndex_Search(t *testing.T) {
	embeddingRepo := &mockEmbeddingRepository{matches: []models.SemanticMatch{
		{ID: "employee:LCL001", Content: "Employee: Priya Sharma | Engineering Manager | priya@example.com", Metadata: map[string]any{"type": "employee"}, Score: 0.12},
		{ID: "goal:G-1", Content: "Goal: Ship quarterly dashboard", Metadata: map[string]any{"type": "goal"}, Score: 0.31},
	}}
	embedder, _ := countingEmbedder()

	svc := NewSemanticIndexService(embeddingRepo, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, testVectorConfig(), zap.NewNop())

	matches := svc.Search(context.Background(), "priya", 5, KindEmployee)
	require.Len(t, matches, 1)
	assert.Equal(t, "employee:LCL001", matches[0].ID)
	assert.Equal(t, 5, embeddingRepo.lastTopK)
	assert.Equal(t, []string{KindEmployee}, embeddingRepo.lastKinds)

	all := svc.Search(context.Background(), "priya", 0)
	assert.Len(t, all, 2)
	assert.Equal(t, 10, embeddingRepo.lastTopK)
}

func TestSemanticIndex_Search_Degrades(t *testing.T) {
	t.Run("disabled index", func(t *testing.T) {
		cfg := testVectorConfig()
		cfg.Enabled = false
		embedder, _ := countingEmbedder()
		svc := NewSemanticIndexService(&mockEmbeddingRepository{}, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, cfg, zap.NewNop())
		assert.Nil(t, svc.Search(context.Background(), "priya", 5))
	})

	t.Run("blank query", func(t *testing.T) {
		embedder, _ := countingEmbedder()
		svc := NewSemanticIndexService(&mockEmbeddingRepository{}, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, testVectorConfig(), zap.NewNop())
		assert.Nil(t, svc.Search(context.Background(), "   ", 5))
	})

	t.Run("embedding failure", func(t *testing.T) {
		mock := llm.NewMockLLMClient()
		mock.CreateEmbeddingFunc = func(ctx context.Context, input string, model string) ([]float32, error) {
			return nil, errors.New("rate limited")
		}
		svc := NewSemanticIndexService(&mockEmbeddingRepository{}, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, mock, testVectorConfig(), zap.NewNop())
		assert.Nil(t, svc.Search(context.Background(), "priya", 5))
	})

	t.Run("store failure", func(t *testing.T) {
		embedder, _ := countingEmbedder()
		repo := &mockEmbeddingRepository{searchErr: errors.New("relation does not exist")}
		svc := NewSemanticIndexService(repo, &mockEmployeeRepository{}, &mockGoalRepository{}, &mockProjectRepository{}, &mockSkillRepository{}, embedder, testVectorConfig(), zap.NewNop())
		assert.Nil(t, svc.Search(context.Background(), "priya", 5))
	})
}
