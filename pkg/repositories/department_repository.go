package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// DepartmentRepository defines data access for synced departments.
type DepartmentRepository interface {
	// UpsertBatch inserts or updates departments by business key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, departments []models.Department) (int, error)

	// ListHeadedBy retrieves departments whose head is the given employee.
	ListHeadedBy(ctx context.Context, headEmployeeID string) ([]models.Department, error)

	// ListMembers retrieves the employees of a department, excluding one
	// employee (the department head, when listing an inferred team).
	ListMembers(ctx context.Context, departmentID string, excludeEmployeeID string, limit int) ([]models.Employee, error)

	// Count returns the number of departments.
	Count(ctx context.Context) (int, error)
}

// departmentRepository implements DepartmentRepository using PostgreSQL.
type departmentRepository struct {
	db *database.DB
}

// NewDepartmentRepository creates a new department repository.
func NewDepartmentRepository(db *database.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

// UpsertBatch inserts or updates departments by business key.
func (r *departmentRepository) UpsertBatch(ctx context.Context, departments []models.Department) (int, error) {
	if len(departments) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO departments (department_id, name, description, head_employee_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (department_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			head_employee_id = EXCLUDED.head_employee_id,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, dept := range departments {
		batch.Queue(query, dept.DepartmentID, dept.Name, dept.Description, dept.HeadEmployeeID)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range departments {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert department %s: %w", departments[i].DepartmentID, err)
		}
	}

	return len(departments), nil
}

// ListHeadedBy retrieves departments whose head is the given employee.
func (r *departmentRepository) ListHeadedBy(ctx context.Context, headEmployeeID string) ([]models.Department, error) {
	query := `
		SELECT id, department_id, name, description, head_employee_id, created_at, updated_at
		FROM departments
		WHERE head_employee_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, headEmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list headed departments: %w", err)
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var dept models.Department
		err := rows.Scan(
			&dept.ID,
			&dept.DepartmentID,
			&dept.Name,
			&dept.Description,
			&dept.HeadEmployeeID,
			&dept.CreatedAt,
			&dept.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating departments: %w", err)
	}
	return departments, nil
}

// ListMembers retrieves the employees of a department, excluding one employee.
func (r *departmentRepository) ListMembers(ctx context.Context, departmentID string, excludeEmployeeID string, limit int) ([]models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE department_id = $1 AND employee_id <> $2
		ORDER BY full_name
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, departmentID, excludeEmployeeID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list department members: %w", err)
	}
	return collectEmployees(rows)
}

// Count returns the number of departments.
func (r *departmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM departments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count departments: %w", err)
	}
	return count, nil
}

var _ DepartmentRepository = (*departmentRepository)(nil)
