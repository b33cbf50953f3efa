package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crewstack/crewstack-engine/pkg/database"
	"github.com/crewstack/crewstack-engine/pkg/models"
)

// projectColumns is the full select list in table order.
const projectColumns = `id, project_id, name, description, status, client_name, project_type, project_manager, manager_employee_id, start_date, end_date, created_at, updated_at`

// ProjectRepository defines data access for synced projects and their
// member assignments.
type ProjectRepository interface {
	// UpsertBatch inserts or updates projects by business key.
	// Returns the number of rows written.
	UpsertBatch(ctx context.Context, projects []models.Project) (int, error)

	// UpsertAssignments inserts or updates employee project assignments.
	// Returns the number of rows written.
	UpsertAssignments(ctx context.Context, assignments []models.EmployeeProject) (int, error)

	// ListManagedBy retrieves projects managed by the given employee.
	ListManagedBy(ctx context.Context, managerEmployeeID string) ([]models.Project, error)

	// ListByManagerName retrieves projects whose recorded manager name
	// matches the ILIKE pattern. Older upstream records carry only the
	// name, so this path exists alongside ListManagedBy.
	ListByManagerName(ctx context.Context, namePattern string, limit int) ([]models.Project, error)

	// ListMembers retrieves the employees assigned to a project,
	// excluding one employee (the manager, when listing an inferred team).
	ListMembers(ctx context.Context, projectID string, excludeEmployeeID string, limit int) ([]models.Employee, error)

	// ListAll retrieves every project ordered by business key.
	ListAll(ctx context.Context) ([]models.Project, error)

	// Stats counts projects by status.
	Stats(ctx context.Context) (*models.ProjectStats, error)
}

// projectRepository implements ProjectRepository using PostgreSQL.
type projectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *database.DB) ProjectRepository {
	return &projectRepository{db: db}
}

// UpsertBatch inserts or updates projects by business key.
func (r *projectRepository) UpsertBatch(ctx context.Context, projects []models.Project) (int, error) {
	if len(projects) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO projects (project_id, name, description, status, client_name, project_type, project_manager, manager_employee_id, start_date, end_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (project_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			client_name = EXCLUDED.client_name,
			project_type = EXCLUDED.project_type,
			project_manager = EXCLUDED.project_manager,
			manager_employee_id = EXCLUDED.manager_employee_id,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, proj := range projects {
		batch.Queue(query,
			proj.ProjectID,
			proj.Name,
			proj.Description,
			proj.Status,
			proj.ClientName,
			proj.ProjectType,
			proj.ProjectManager,
			proj.ManagerEmployeeID,
			proj.StartDate,
			proj.EndDate,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range projects {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert project %s: %w", projects[i].ProjectID, err)
		}
	}

	return len(projects), nil
}

// UpsertAssignments inserts or updates employee project assignments.
func (r *projectRepository) UpsertAssignments(ctx context.Context, assignments []models.EmployeeProject) (int, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO employee_projects (employee_id, project_id, role, allocation_percentage, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, project_id) DO UPDATE SET
			role = EXCLUDED.role,
			allocation_percentage = EXCLUDED.allocation_percentage,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date`

	batch := &pgx.Batch{}
	for _, a := range assignments {
		batch.Queue(query,
			a.EmployeeID,
			a.ProjectID,
			a.Role,
			a.AllocationPercentage,
			a.StartDate,
			a.EndDate,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for i := range assignments {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert assignment %s/%s: %w",
				assignments[i].EmployeeID, assignments[i].ProjectID, err)
		}
	}

	return len(assignments), nil
}

// ListManagedBy retrieves projects managed by the given employee.
func (r *projectRepository) ListManagedBy(ctx context.Context, managerEmployeeID string) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE manager_employee_id = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, managerEmployeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed projects: %w", err)
	}
	return collectProjects(rows)
}

// ListByManagerName retrieves projects whose recorded manager name matches.
func (r *projectRepository) ListByManagerName(ctx context.Context, namePattern string, limit int) ([]models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE project_manager ILIKE $1
		ORDER BY name
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, namePattern, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by manager name: %w", err)
	}
	return collectProjects(rows)
}

// ListMembers retrieves the employees assigned to a project, excluding one.
func (r *projectRepository) ListMembers(ctx context.Context, projectID string, excludeEmployeeID string, limit int) ([]models.Employee, error) {
	query := `
		SELECT e.id, e.employee_id, e.full_name, e.email, e.department_id, e.designation, e.salary, e.manager_employee_id, e.blocked, e.active, e.last_login, e.created_at, e.updated_at
		FROM employee_projects ep
		JOIN employees e ON e.employee_id = ep.employee_id
		WHERE ep.project_id = $1 AND e.employee_id <> $2
		ORDER BY e.full_name
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, projectID, excludeEmployeeID, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return collectEmployees(rows)
}

// ListAll retrieves every project ordered by business key.
func (r *projectRepository) ListAll(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY project_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return collectProjects(rows)
}

// Stats counts projects by status.
func (r *projectRepository) Stats(ctx context.Context) (*models.ProjectStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'Active')
		FROM projects`

	var stats models.ProjectStats
	if err := r.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Active); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	return &stats, nil
}

// collectProjects drains rows into project models.
func collectProjects(rows pgx.Rows) ([]models.Project, error) {
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var proj models.Project
		err := rows.Scan(
			&proj.ID,
			&proj.ProjectID,
			&proj.Name,
			&proj.Description,
			&proj.Status,
			&proj.ClientName,
			&proj.ProjectType,
			&proj.ProjectManager,
			&proj.ManagerEmployeeID,
			&proj.StartDate,
			&proj.EndDate,
			&proj.CreatedAt,
			&proj.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, proj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

var _ ProjectRepository = (*projectRepository)(nil)
