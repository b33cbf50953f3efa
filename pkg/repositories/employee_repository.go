package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewstack/crewstack-engine/pkg/apperrors"
	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// employeeColumns is the full select list in table order.
const employeeColumns = `id, employee_id, full_name, email, department_id, designation, salary, manager_employee_id, blocked, active, last_login, created_at, updated_at`

// EmployeeRepository defines data access for synced employee records.
type EmployeeRepository interface {
	// UpsertBatch inserts or updates employees by business key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, employees []models.Employee) (int, error)

	// GetByEmployeeID retrieves one employee by business key.
	GetByEmployeeID(ctx context.Context, employeeID string) (*models.Employee, error)

	// SearchByName retrieves employees whose full name matches the ILIKE
	// pattern, e.g. "%anna%".
	SearchByName(ctx context.Context, namePattern string, limit int) ([]models.Employee, error)

	// ListSubordinates retrieves employees whose manager reference equals
	// the given business key.
	ListSubordinates(ctx context.Context, managerEmployeeID string, limit int) ([]models.Employee, error)

	// ListAll retrieves every employee ordered by business key.
	ListAll(ctx context.Context) ([]models.Employee, error)

	// ListNames retrieves every (employee_id, full_name) pair for
	// in-memory fuzzy name resolution.
	ListNames(ctx context.Context) ([]models.EmployeeName, error)

	// Stats counts employees by account state.
	Stats(ctx context.Context) (*models.EmployeeStats, error)
}

// employeeRepository implements EmployeeRepository using PostgreSQL.
type employeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository.
func NewEmployeeRepository(db *database.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

// UpsertBatch inserts or updates employees by business key.
func (r *employeeRepository) UpsertBatch(ctx context.Context, employees []models.Employee) (int, error) {
	if len(employees) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO employees (employee_id, full_name, email, department_id, designation, salary, manager_employee_id, blocked, active, last_login, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (employee_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			department_id = EXCLUDED.department_id,
			designation = EXCLUDED.designation,
			salary = EXCLUDED.salary,
			manager_employee_id = EXCLUDED.manager_employee_id,
			blocked = EXCLUDED.blocked,
			active = EXCLUDED.active,
			last_login = EXCLUDED.last_login,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, emp := range employees {
		batch.Queue(query,
			emp.EmployeeID,
			emp.FullName,
			emp.Email,
			emp.DepartmentID,
			emp.Designation,
			emp.Salary,
			emp.ManagerEmployeeID,
			emp.Blocked,
			emp.Active,
			emp.LastLogin,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range employees {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert employee %s: %w", employees[i].EmployeeID, err)
		}
	}

	return len(employees), nil
}

// GetByEmployeeID retrieves one employee by business key.
func (r *employeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_id = $1`

	rows, err := r.db.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	employees, err := collectEmployees(rows)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("employee %s: %w", employeeID, apperrors.ErrNotFound)
	}
	return &employees[0], nil
}

// SearchByName retrieves employees whose full name matches the ILIKE pattern.
func (r *employeeRepository) SearchByName(ctx context.Context, namePattern string, limit int) ([]models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE full_name ILIKE $1
		ORDER BY full_name
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, namePattern, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search employees by name: %w", err)
	}
	return collectEmployees(rows)
}

// ListSubordinates retrieves employees reporting to the given manager.
func (r *employeeRepository) ListSubordinates(ctx context.Context, managerEmployeeID string, limit int) ([]models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE manager_employee_id = $1
		ORDER BY full_name
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, managerEmployeeID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list subordinates: %w", err)
	}
	return collectEmployees(rows)
}

// ListAll retrieves every employee ordered by business key.
func (r *employeeRepository) ListAll(ctx context.Context) ([]models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY employee_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return collectEmployees(rows)
}

// ListNames retrieves every (employee_id, full_name) pair.
func (r *employeeRepository) ListNames(ctx context.Context) ([]models.EmployeeName, error) {
	query := `SELECT employee_id, full_name FROM employees ORDER BY employee_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employee names: %w", err)
	}
	defer rows.Close()

	var names []models.EmployeeName
	for rows.Next() {
		var n models.EmployeeName
		if err := rows.Scan(&n.EmployeeID, &n.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan employee name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee names: %w", err)
	}
	return names, nil
}

// Stats counts employees by account state. Active excludes blocked
// accounts even when the upstream record still flags them active.
func (r *employeeRepository) Stats(ctx context.Context) (*models.EmployeeStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE active AND NOT blocked),
		       COUNT(*) FILTER (WHERE blocked)
		FROM employees`

	var stats models.EmployeeStats
	err := r.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Active, &stats.Blocked)
	if err != nil {
		return nil, fmt.Errorf("failed to count employees: %w", err)
	}
	return &stats, nil
}

// collectEmployees drains rows into employee models. Shared by every query
// in this package that selects the full employee column list.
func collectEmployees(rows pgx.Rows) ([]models.Employee, error) {
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var emp models.Employee
		err := rows.Scan(
			&emp.ID,
			&emp.EmployeeID,
			&emp.FullName,
			&emp.Email,
			&emp.DepartmentID,
			&emp.Designation,
			&emp.Salary,
			&emp.ManagerEmployeeID,
			&emp.Blocked,
			&emp.Active,
			&emp.LastLogin,
			&emp.CreatedAt,
			&emp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}

// listLimit caps unbounded list queries.
func listLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

var _ EmployeeRepository = (*employeeRepository)(nil)
