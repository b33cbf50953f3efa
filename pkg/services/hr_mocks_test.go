package services

// In-memory repository and adapter stand-ins shared by the answering
// pipeline and sync tests.

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/hrsource"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// mockHRSource serves canned upstream records, with optional per-endpoint
// failures keyed by endpoint name.
type mockHRSource struct {
	employees        []hrsource.EmployeeRecord
	departments      []hrsource.DepartmentRecord
	goals            []hrsource.GoalRecord
	projects         []hrsource.ProjectRecord
	skills           []hrsource.SkillRecord
	employeeProjects []hrsource.EmployeeProjectRecord
	employeeSkills   []hrsource.EmployeeSkillRecord

	errs map[string]error
}

func (m *mockHRSource) endpointErr(endpoint string) error {
	if m.errs == nil {
		return nil
	}
	return m.errs[endpoint]
}

func (m *mockHRSource) Employees(ctx context.Context) ([]hrsource.EmployeeRecord, error) {
	if err := m.endpointErr("employee"); err != nil {
		return nil, err
	}
	return m.employees, nil
}

func (m *mockHRSource) Departments(ctx context.Context) ([]hrsource.DepartmentRecord, error) {
	if err := m.endpointErr("department"); err != nil {
		return nil, err
	}
	return m.departments, nil
}

func (m *mockHRSource) Goals(ctx context.Context) ([]hrsource.GoalRecord, error) {
	if err := m.endpointErr("goal"); err != nil {
		return nil, err
	}
	return m.goals, nil
}

func (m *mockHRSource) Projects(ctx context.Context) ([]hrsource.ProjectRecord, error) {
	if err := m.endpointErr("project"); err != nil {
		return nil, err
	}
	return m.projects, nil
}

func (m *mockHRSource) Skills(ctx context.Context) ([]hrsource.SkillRecord, error) {
	if err := m.endpointErr("skill"); err != nil {
		return nil, err
	}
	return m.skills, nil
}

func (m *mockHRSource) EmployeeProjects(ctx context.Context) ([]hrsource.EmployeeProjectRecord, error) {
	if err := m.endpointErr("employee-project"); err != nil {
		return nil, err
	}
	return m.employeeProjects, nil
}

func (m *mockHRSource) EmployeeSkills(ctx context.Context) ([]hrsource.EmployeeSkillRecord, error) {
	if err := m.endpointErr("employee-skill"); err != nil {
		return nil, err
	}
	return m.employeeSkills, nil
}

type mockEmployeeRepository struct {
	employees []models.Employee
	err       error
}

func (m *mockEmployeeRepository) UpsertBatch(ctx context.Context, employees []models.Employee) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.employees = append(m.employees, employees...)
	return len(employees), nil
}

func (m *mockEmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.employees {
		if m.employees[i].EmployeeID == employeeID {
			return &m.employees[i], nil
		}
	}
	return nil, fmt.Errorf("employee %s: %w", employeeID, apperrors.ErrNotFound)
}

func (m *mockEmployeeRepository) SearchByName(ctx context.Context, namePattern string, limit int) ([]models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	needle := strings.ToLower(strings.Trim(namePattern, "%"))
	var result []models.Employee
	for _, e := range m.employees {
		if strings.Contains(strings.ToLower(e.FullName), needle) {
			result = append(result, e)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockEmployeeRepository) ListSubordinates(ctx context.Context, managerEmployeeID string, limit int) ([]models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.Employee
	for _, e := range m.employees {
		if e.ManagerEmployeeID != nil && *e.ManagerEmployeeID == managerEmployeeID {
			result = append(result, e)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockEmployeeRepository) ListAll(ctx context.Context) ([]models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.employees, nil
}

func (m *mockEmployeeRepository) ListNames(ctx context.Context) ([]models.EmployeeName, error) {
	if m.err != nil {
		return nil, m.err
	}
	names := make([]models.EmployeeName, 0, len(m.employees))
	for _, e := range m.employees {
		names = append(names, models.EmployeeName{EmployeeID: e.EmployeeID, FullName: e.FullName})
	}
	return names, nil
}

func (m *mockEmployeeRepository) Stats(ctx context.Context) (*models.EmployeeStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	stats := &models.EmployeeStats{Total: len(m.employees)}
	for _, e := range m.employees {
		if e.Active {
			stats.Active++
		}
		if e.Blocked {
			stats.Blocked++
		}
	}
	return stats, nil
}

type mockDepartmentRepository struct {
	departments []models.Department
	members     map[string][]models.Employee
	err         error
}

func (m *mockDepartmentRepository) UpsertBatch(ctx context.Context, departments []models.Department) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.departments = append(m.departments, departments...)
	return len(departments), nil
}

func (m *mockDepartmentRepository) ListHeadedBy(ctx context.Context, headEmployeeID string) ([]models.Department, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.Department
	for _, d := range m.departments {
		if d.HeadEmployeeID != nil && *d.HeadEmployeeID == headEmployeeID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (m *mockDepartmentRepository) ListMembers(ctx context.Context, departmentID, excludeEmployeeID string, limit int) ([]models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.Employee
	for _, e := range m.members[departmentID] {
		if e.EmployeeID == excludeEmployeeID {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockDepartmentRepository) Count(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.departments), nil
}

type mockGoalRepository struct {
	goals []models.Goal
	err   error
}

func (m *mockGoalRepository) UpsertBatch(ctx context.Context, goals []models.Goal) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.goals = append(m.goals, goals...)
	return len(goals), nil
}

func (m *mockGoalRepository) ListAll(ctx context.Context) ([]models.Goal, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.goals, nil
}

func (m *mockGoalRepository) Stats(ctx context.Context) (*models.GoalStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	stats := &models.GoalStats{Total: len(m.goals)}
	for _, g := range m.goals {
		switch g.Status {
		case models.GoalStatusPending:
			stats.Pending++
		case models.GoalStatusInProgress:
			stats.InProgress++
		case models.GoalStatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}

type mockProjectRepository struct {
	projects    []models.Project
	assignments []models.EmployeeProject
	members     map[string][]models.Employee
	err         error
}

func (m *mockProjectRepository) UpsertBatch(ctx context.Context, projects []models.Project) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.projects = append(m.projects, projects...)
	return len(projects), nil
}

func (m *mockProjectRepository) UpsertAssignments(ctx context.Context, assignments []models.EmployeeProject) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.assignments = append(m.assignments, assignments...)
	return len(assignments), nil
}

func (m *mockProjectRepository) ListManagedBy(ctx context.Context, managerEmployeeID string) ([]models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.Project
	for _, p := range m.projects {
		if p.ManagerEmployeeID != nil && *p.ManagerEmployeeID == managerEmployeeID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *mockProjectRepository) ListByManagerName(ctx context.Context, namePattern string, limit int) ([]models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	needle := strings.ToLower(strings.Trim(namePattern, "%"))
	var result []models.Project
	for _, p := range m.projects {
		if strings.Contains(strings.ToLower(p.ProjectManager), needle) {
			result = append(result, p)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockProjectRepository) ListMembers(ctx context.Context, projectID, excludeEmployeeID string, limit int) ([]models.Employee, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []models.Employee
	for _, e := range m.members[projectID] {
		if e.EmployeeID == excludeEmployeeID {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *mockProjectRepository) ListAll(ctx context.Context) ([]models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.projects, nil
}

func (m *mockProjectRepository) Stats(ctx context.Context) (*models.ProjectStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	stats := &models.ProjectStats{Total: len(m.projects)}
	for _, p := range m.projects {
		if strings.EqualFold(p.Status, "Active") {
			stats.Active++
		}
	}
	return stats, nil
}

type mockSkillRepository struct {
	skills []models.Skill
	links  []models.EmployeeSkill
	err    error
}

func (m *mockSkillRepository) UpsertBatch(ctx context.Context, skills []models.Skill) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.skills = append(m.skills, skills...)
	return len(skills), nil
}

func (m *mockSkillRepository) UpsertEmployeeSkills(ctx context.Context, links []models.EmployeeSkill) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.links = append(m.links, links...)
	return len(links), nil
}

func (m *mockSkillRepository) ListAll(ctx context.Context) ([]models.Skill, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.skills, nil
}

func (m *mockSkillRepository) Count(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.skills), nil
}

// mockEmbeddingRepository serves canned matches, filtered the way the real
// index filters: by metadata type when kinds are given, capped at topK.
type mockEmbeddingRepository struct {
	matches   []models.SemanticMatch
	upserted  []models.EmbeddingDocument
	vectors   [][]float32
	searchErr error
	upsertErr error

	lastTopK  int
	lastKinds []string
}

func (m *mockEmbeddingRepository) UpsertBatch(ctx context.Context, docs []models.EmbeddingDocument, vectors [][]float32) (int, error) {
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	m.upserted = append(m.upserted, docs...)
	m.vectors = append(m.vectors, vectors...)
	return len(docs), nil
}

func (m *mockEmbeddingRepository) Search(ctx context.Context, vector []float32, topK int, kinds ...string) ([]models.SemanticMatch, error) {
	m.lastTopK = topK
	m.lastKinds = kinds
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var result []models.SemanticMatch
	for _, match := range m.matches {
		if len(kinds) > 0 && !slices.Contains(kinds, match.Kind()) {
			continue
		}
		result = append(result, match)
		if topK > 0 && len(result) == topK {
			break
		}
	}
	return result, nil
}

func (m *mockEmbeddingRepository) Count(ctx context.Context) (int, error) {
	return len(m.upserted), nil
}

// mockSemanticIndex is a canned SemanticIndexService.
type mockSemanticIndex struct {
	enabled    bool
	matches    []models.SemanticMatch
	rebuilt    int
	rebuildErr error

	rebuildCalls int
	ensureCalls  int
	searchCalls  int
	lastQuery    string
	lastTopK     int
	lastKinds    []string
}

func (m *mockSemanticIndex) Enabled() bool { return m.enabled }

func (m *mockSemanticIndex) RebuildAll(ctx context.Context) (int, error) {
	m.rebuildCalls++
	if m.rebuildErr != nil {
		return 0, m.rebuildErr
	}
	return m.rebuilt, nil
}

func (m *mockSemanticIndex) EnsureIndexed(ctx context.Context) error {
	m.ensureCalls++
	return m.rebuildErr
}

func (m *mockSemanticIndex) Search(ctx context.Context, query string, topK int, kinds ...string) []models.SemanticMatch {
	m.searchCalls++
	m.lastQuery = query
	m.lastTopK = topK
	m.lastKinds = kinds
	if !m.enabled {
		return nil
	}
	var result []models.SemanticMatch
	for _, match := range m.matches {
		if len(kinds) > 0 && !slices.Contains(kinds, match.Kind()) {
			continue
		}
		result = append(result, match)
		if topK > 0 && len(result) == topK {
			break
		}
	}
	return result
}

type mockSyncLogRepository struct {
	logs []models.SyncLog
	err  error
}

func (m *mockSyncLogRepository) Start(ctx context.Context, syncType string) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	log := models.SyncLog{
		ID:        uuid.New(),
		SyncType:  syncType,
		Status:    models.SyncStatusRunning,
		StartedAt: time.Now(),
	}
	m.logs = append(m.logs, log)
	return log.ID, nil
}

func (m *mockSyncLogRepository) Finish(ctx context.Context, id uuid.UUID, status string, recordsSynced int, errorMessage string) error {
	if m.err != nil {
		return m.err
	}
	for i := range m.logs {
		if m.logs[i].ID == id {
			now := time.Now()
			m.logs[i].Status = status
			m.logs[i].RecordsSynced = recordsSynced
			m.logs[i].CompletedAt = &now
			if errorMessage != "" {
				m.logs[i].ErrorMessage = &errorMessage
			}
			return nil
		}
	}
	return fmt.Errorf("sync log %s: %w", id, apperrors.ErrNotFound)
}

func (m *mockSyncLogRepository) List(ctx context.Context, limit int) ([]models.SyncLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	result := make([]models.SyncLog, len(m.logs))
	copy(result, m.logs)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockSyncLogRepository) byType(syncType string) *models.SyncLog {
	for i := range m.logs {
		if m.logs[i].SyncType == syncType {
			return &m.logs[i]
		}
	}
	return nil
}

type mockAIQueryLogRepository struct {
	entries []models.AIQueryLogEntry
	err     error
}

func (m *mockAIQueryLogRepository) Append(ctx context.Context, entry *models.AIQueryLogEntry) error {
	if m.err != nil {
		return m.err
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAIQueryLogRepository) List(ctx context.Context, limit, offset int) ([]models.AIQueryLogEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(m.entries) {
		return nil, nil
	}
	result := m.entries[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *mockAIQueryLogRepository) Count(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.entries), nil
}

func (m *mockAIQueryLogRepository) Stats(ctx context.Context) (*models.QueryLogStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	stats := &models.QueryLogStats{Total: len(m.entries)}
	var totalMs int64
	for _, e := range m.entries {
		if e.Success {
			stats.Successful++
		} else {
			stats.Failed++
		}
		totalMs += e.DurationMs
	}
	if stats.Total > 0 {
		stats.AvgDurationMs = float64(totalMs) / float64(stats.Total)
	}
	return stats, nil
}

// executedQuery records one ExecuteQuery invocation.
type executedQuery struct {
	SQL    string
	Params map[string]any
	Limit  int
}

// execResult is the canned outcome for one ExecuteQuery call.
type execResult struct {
	result *datasource.QueryResult
	err    error
}

// mockQueryExecutor replays canned results in call order. Calls beyond the
// configured results return an empty result set.
type mockQueryExecutor struct {
	dialect string
	results []execResult
	calls   []executedQuery
}

func (m *mockQueryExecutor) ExecuteQuery(ctx context.Context, sqlQuery string, params map[string]any, limit int) (*datasource.QueryResult, error) {
	m.calls = append(m.calls, executedQuery{SQL: sqlQuery, Params: params, Limit: limit})
	if len(m.calls) <= len(m.results) {
		r := m.results[len(m.calls)-1]
		return r.result, r.err
	}
	return &datasource.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
}

func (m *mockQueryExecutor) ValidateQuery(ctx context.Context, sqlQuery string) error { return nil }

func (m *mockQueryExecutor) Dialect() string {
	if m.dialect == "" {
		return "postgres"
	}
	return m.dialect
}

func (m *mockQueryExecutor) QuoteIdentifier(name string) string { return `"` + name + `"` }

func (m *mockQueryExecutor) Close() error { return nil }

type mockSchemaDiscoverer struct {
	schema *datasource.SchemaDescription
	err    error
}

func (m *mockSchemaDiscoverer) DiscoverSchema(ctx context.Context) (*datasource.SchemaDescription, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.schema != nil {
		return m.schema, nil
	}
	return &datasource.SchemaDescription{
		Tables: []datasource.TableSchema{
			{Name: "employees", Columns: []string{"id", "employee_id", "full_name", "designation"}},
		},
	}, nil
}

func (m *mockSchemaDiscoverer) Close() error { return nil }
