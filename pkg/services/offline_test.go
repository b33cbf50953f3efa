package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
)

func offlineFixture(results ...execResult) (*mockQueryExecutor, OfflineAnswerService) {
	executor := &mockQueryExecutor{results: results}
	return executor, NewOfflineAnswerService(executor, testAnsweringConfig(), zap.NewNop())
}

func rowsResult(rows ...map[string]any) execResult {
	return execResult{result: &datasource.QueryResult{Rows: rows, RowCount: len(rows)}}
}

func TestOfflineAnswer_Counts(t *testing.T) {
	tests := []struct {
		question string
		column   string
		sql      string
		answer   string
	}{
		{"How many employees do we have?", "total_employees", "SELECT COUNT(*) AS total_employees FROM employees", "Total employees: 7"},
		{"Give me a count of departments", "total_departments", "SELECT COUNT(*) AS total_departments FROM departments", "Total departments: 7"},
		{"how many projects are there", "total_projects", "SELECT COUNT(*) AS total_projects FROM projects", "Total projects: 7"},
		{"count of goals", "total_goals", "SELECT COUNT(*) AS total_goals FROM goals", "Total goals: 7"},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			executor, svc := offlineFixture(rowsResult(map[string]any{tt.column: int64(7)}))

			answer := svc.Answer(context.Background(), tt.question)
			require.True(t, answer.Success)
			assert.Equal(t, tt.answer, answer.Answer)
			assert.Equal(t, "offline-sql", answer.QueryType)
			assert.Equal(t, tt.sql, answer.QueryUsed)
			assert.Equal(t, 1, answer.DataPoints)

			require.Len(t, executor.calls, 1)
			assert.Equal(t, 50, executor.calls[0].Limit)
		})
	}
}

func TestOfflineAnswer_ListEmployees(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(
			map[string]any{"employee_id": "LCL001", "full_name": "Priya Sharma"},
			map[string]any{"employee_id": "LCL002", "full_name": "Arjun Mehta"},
		))

		answer := svc.Answer(context.Background(), "List all active employees")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 2 active employees", answer.Answer)
		assert.Len(t, answer.DataPreview, 2)

		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "WHERE active = {{active}}")
		assert.Equal(t, map[string]any{"active": true}, executor.calls[0].Params)
	})

	t.Run("single active employee uses singular label", func(t *testing.T) {
		_, svc := offlineFixture(rowsResult(map[string]any{"employee_id": "LCL001"}))

		answer := svc.Answer(context.Background(), "list active employees")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 1 active employee", answer.Answer)
	})

	t.Run("blocked", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult())

		answer := svc.Answer(context.Background(), "Show blocked employees")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 0 blocked employees", answer.Answer)
		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "WHERE blocked = {{blocked}}")
	})

	t.Run("unfiltered", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(
			map[string]any{"employee_id": "LCL001"},
			map[string]any{"employee_id": "LCL002"},
			map[string]any{"employee_id": "LCL003"},
		))

		answer := svc.Answer(context.Background(), "List all employees")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 3 employees", answer.Answer)
		require.Len(t, executor.calls, 1)
		assert.NotContains(t, executor.calls[0].SQL, "WHERE")
	})
}

func TestOfflineAnswer_ListDepartmentsAndSkills(t *testing.T) {
	executor, svc := offlineFixture(
		rowsResult(map[string]any{"department_id": "D-1", "name": "Engineering"}),
		rowsResult(map[string]any{"skill_id": "S-1", "name": "Kubernetes"}),
	)

	answer := svc.Answer(context.Background(), "List all departments")
	require.True(t, answer.Success)
	assert.Equal(t, "Found 1 department", answer.Answer)
	assert.Contains(t, executor.calls[0].SQL, "FROM departments")

	answer = svc.Answer(context.Background(), "List all skills")
	require.True(t, answer.Success)
	assert.Equal(t, "Found 1 skill", answer.Answer)
	assert.Contains(t, executor.calls[1].SQL, "FROM skills")
}

func TestOfflineAnswer_EmployeesWithSkill(t *testing.T) {
	executor, svc := offlineFixture(rowsResult(
		map[string]any{"employee_id": "LCL001", "full_name": "Priya Sharma", "skill": "Java"},
	))

	answer := svc.Answer(context.Background(), "Who has Java skills?")
	require.True(t, answer.Success)
	assert.Equal(t, "Found 1 employee with java skills", answer.Answer)

	require.Len(t, executor.calls, 1)
	assert.Contains(t, executor.calls[0].SQL, "JOIN employee_skills es")
	assert.Contains(t, executor.calls[0].SQL, "ILIKE {{skill_name}}")
	assert.Equal(t, map[string]any{"skill_name": "%java%"}, executor.calls[0].Params)
}

func TestOfflineAnswer_PendingGoals(t *testing.T) {
	executor, svc := offlineFixture(rowsResult(
		map[string]any{"goal_id": "G-1", "status": "Pending"},
		map[string]any{"goal_id": "G-2", "status": "In Progress"},
	))

	answer := svc.Answer(context.Background(), "Show pending goals")
	require.True(t, answer.Success)
	assert.Equal(t, "Found 2 pending or in-progress goals", answer.Answer)
	assert.Contains(t, executor.calls[0].SQL, "IN ('Pending', 'In Progress')")
}

func TestOfflineAnswer_GoalsAssigned(t *testing.T) {
	t.Run("to a name", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(map[string]any{"goal_id": "G-1"}))

		answer := svc.Answer(context.Background(), "What goals are assigned to Priya Sharma?")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 1 goal", answer.Answer)

		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "JOIN employees e ON g.assigned_to_employee_id = e.employee_id")
		assert.Equal(t, map[string]any{"employee_name": "%priya sharma%"}, executor.calls[0].Params)
	})

	t.Run("to an employee id", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(map[string]any{"goal_id": "G-1"}, map[string]any{"goal_id": "G-2"}))

		answer := svc.Answer(context.Background(), "goals assigned to LCL0042")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 2 goals", answer.Answer)

		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "WHERE assigned_to_employee_id = {{employee_id}}")
		assert.Equal(t, map[string]any{"employee_id": "LCL0042"}, executor.calls[0].Params)
	})

	t.Run("by an employee id", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult())

		answer := svc.Answer(context.Background(), "goals assigned by LCL0001")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 0 goals", answer.Answer)
		assert.Contains(t, executor.calls[0].SQL, "WHERE assigned_by_employee_id = {{employee_id}}")
	})
}

func TestOfflineAnswer_EmployeesReportingTo(t *testing.T) {
	t.Run("by manager name", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(
			map[string]any{"employee_id": "LCL002", "manager_name": "Anita Desai"},
			map[string]any{"employee_id": "LCL003", "manager_name": "Anita Desai"},
		))

		answer := svc.Answer(context.Background(), "List employees reports to Anita Desai?")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 2 direct reports under anita desai", answer.Answer)

		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "m.full_name ILIKE {{manager_name}}")
		assert.Equal(t, map[string]any{"manager_name": "%anita desai%"}, executor.calls[0].Params)
	})

	t.Run("by manager id", func(t *testing.T) {
		executor, svc := offlineFixture(rowsResult(map[string]any{"employee_id": "LCL002"}))

		answer := svc.Answer(context.Background(), "employees under manager LCL0001")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 1 direct report under lcl0001", answer.Answer)

		require.Len(t, executor.calls, 1)
		assert.Contains(t, executor.calls[0].SQL, "WHERE m.employee_id = {{manager_id}}")
		assert.Equal(t, map[string]any{"manager_id": "LCL0001"}, executor.calls[0].Params)
	})

	t.Run("no manager given", func(t *testing.T) {
		executor, svc := offlineFixture()

		answer := svc.Answer(context.Background(), "employees reports to")
		require.True(t, answer.Success)
		assert.Equal(t, "Found 0 direct reports", answer.Answer)
		assert.Empty(t, executor.calls)
	})
}

func TestOfflineAnswer_EmployeesPerDepartment(t *testing.T) {
	executor, svc := offlineFixture(rowsResult(
		map[string]any{"department": "Design", "employees": int64(3)},
		map[string]any{"department": "Engineering", "employees": int64(9)},
	))

	// The rollup intent must win over the plain employee count.
	answer := svc.Answer(context.Background(), "How many employees per department?")
	require.True(t, answer.Success)
	assert.Equal(t, "Employee counts for 2 departments", answer.Answer)
	assert.Contains(t, executor.calls[0].SQL, "GROUP BY d.name")
}

func TestOfflineAnswer_Unsupported(t *testing.T) {
	executor, svc := offlineFixture()

	answer := svc.Answer(context.Background(), "What is the meaning of life?")
	require.NotNil(t, answer)
	assert.False(t, answer.Success)
	assert.Equal(t, "Offline mode: I could not classify this into a supported basic query.", answer.Answer)
	assert.Equal(t, "unsupported_offline_query", answer.Error)
	assert.Equal(t, "offline-sql", answer.QueryType)
	assert.Empty(t, executor.calls)
}

func TestOfflineAnswer_QueryFailure(t *testing.T) {
	_, svc := offlineFixture(execResult{err: errors.New("connection reset")})

	answer := svc.Answer(context.Background(), "How many employees are there?")
	require.NotNil(t, answer)
	assert.False(t, answer.Success)
	assert.Equal(t, "Offline mode: the supporting lookup failed.", answer.Answer)
	assert.Equal(t, "offline_query_failed", answer.Error)
}
