package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
	"github.com/crewstack/crewstack-engine/pkg/config"
	"github.com/crewstack/crewstack-engine/pkg/logging"
	"github.com/crewstack/crewstack-engine/pkg/models"
	sqlcheck "github.com/crewstack/crewstack-engine/pkg/sql"
)

// offlineQueryType marks answers produced without any model call.
const offlineQueryType = "offline-sql"

// OfflineAnswerService answers a fixed set of HR questions without any
// model call. It is the terminal fallback when the answering pipeline
// fails, so it never returns an error: unsupported phrasing and failed
// lookups both degrade to an explanatory answer.
type OfflineAnswerService interface {
	// Answer matches the question against the supported intents and runs
	// the canned query for the first one that fits.
	Answer(ctx context.Context, question string) *models.AnsweredQuery
}

type offlineAnswerService struct {
	executor datasource.QueryExecutor
	cfg      config.AnsweringConfig
	logger   *zap.Logger
}

// NewOfflineAnswerService creates the deterministic offline handler.
func NewOfflineAnswerService(executor datasource.QueryExecutor, cfg config.AnsweringConfig, logger *zap.Logger) OfflineAnswerService {
	return &offlineAnswerService{executor: executor, cfg: cfg, logger: logger}
}

// Answer routes by keywords. Order matters for specificity: the
// per-department rollup must fire before the plain employee count, and
// skill lookups before the generic employee listing.
func (s *offlineAnswerService) Answer(ctx context.Context, question string) *models.AnsweredQuery {
	q := strings.TrimSpace(question)
	ql := strings.ToLower(q)

	switch {
	case strings.Contains(ql, "per department") || strings.Contains(ql, "by department") || strings.Contains(ql, "each department"):
		return s.employeesPerDepartment(ctx, q)
	case strings.Contains(ql, "how many employees") || (strings.Contains(ql, "count") && strings.Contains(ql, "employees")):
		return s.countEntities(ctx, q, "employee")
	case strings.Contains(ql, "how many departments") || (strings.Contains(ql, "count") && strings.Contains(ql, "departments")):
		return s.countEntities(ctx, q, "department")
	case strings.Contains(ql, "how many projects") || (strings.Contains(ql, "count") && strings.Contains(ql, "projects")):
		return s.countEntities(ctx, q, "project")
	case strings.Contains(ql, "how many goals") || (strings.Contains(ql, "count") && strings.Contains(ql, "goals")):
		return s.countEntities(ctx, q, "goal")
	case strings.Contains(ql, "who has") && strings.Contains(ql, "skill"):
		if skill := trimQueryNoise(extractBetween(ql, "who has", "skill")); skill != "" {
			return s.employeesWithSkill(ctx, q, skill)
		}
	case strings.Contains(ql, "list all active employees") || (strings.Contains(ql, "active employees") && strings.Contains(ql, "list")):
		return s.listEmployees(ctx, q, "active")
	case strings.Contains(ql, "blocked employees"):
		return s.listEmployees(ctx, q, "blocked")
	case strings.Contains(ql, "list all employees") || (strings.Contains(ql, "employees") && strings.Contains(ql, "list") && !strings.Contains(ql, "skill") && !strings.Contains(ql, "reports to") && !strings.Contains(ql, "under manager")):
		return s.listEmployees(ctx, q, "")
	case strings.Contains(ql, "list all departments") || (strings.Contains(ql, "departments") && strings.Contains(ql, "list")):
		return s.listDepartments(ctx, q)
	case strings.Contains(ql, "list all skills") || (strings.Contains(ql, "skills") && strings.Contains(ql, "list") && !strings.Contains(ql, "employees")):
		return s.listSkills(ctx, q)
	case strings.Contains(ql, "pending goals") || (strings.Contains(ql, "in progress") && strings.Contains(ql, "goals")):
		return s.listOpenGoals(ctx, q)
	case strings.Contains(ql, "assigned to") && strings.Contains(ql, "goals"):
		return s.goalsAssigned(ctx, q, trimQueryNoise(extractAfter(ql, "assigned to")), "assigned_to_employee_id")
	case strings.Contains(ql, "assigned by") && strings.Contains(ql, "goals"):
		return s.goalsAssigned(ctx, q, trimQueryNoise(extractAfter(ql, "assigned by")), "assigned_by_employee_id")
	case (strings.Contains(ql, "reports to") || strings.Contains(ql, "under manager")) && strings.Contains(ql, "employees"):
		key := "reports to"
		if !strings.Contains(ql, key) {
			key = "under manager"
		}
		return s.employeesReportingTo(ctx, q, trimQueryNoise(extractAfter(ql, key)))
	}

	return s.unsupported(q)
}

func (s *offlineAnswerService) countEntities(ctx context.Context, question, entity string) *models.AnsweredQuery {
	table := inflection.Plural(entity)
	column := "total_" + table
	query := fmt.Sprintf("SELECT COUNT(*) AS %s FROM %s", column, table)

	result, failed := s.run(ctx, question, query, nil)
	if failed != nil {
		return failed
	}
	total := intAt(result.Rows, column)
	return s.answered(question, fmt.Sprintf("Total %s: %d", table, total), query, result.Rows)
}

func (s *offlineAnswerService) listEmployees(ctx context.Context, question, filter string) *models.AnsweredQuery {
	query := "SELECT employee_id, full_name, designation, active, blocked FROM employees ORDER BY full_name"
	var params map[string]any
	label := ""
	switch filter {
	case "active":
		query = "SELECT employee_id, full_name, designation, active, blocked FROM employees WHERE active = {{active}} ORDER BY full_name"
		params = map[string]any{"active": true}
		label = "active "
	case "blocked":
		query = "SELECT employee_id, full_name, designation, active, blocked FROM employees WHERE blocked = {{blocked}} ORDER BY full_name"
		params = map[string]any{"blocked": true}
		label = "blocked "
	}

	result, failed := s.run(ctx, question, query, params)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d %s%s", n, label, pluralize(n, "employee")), query, result.Rows)
}

func (s *offlineAnswerService) listDepartments(ctx context.Context, question string) *models.AnsweredQuery {
	query := "SELECT department_id, name, head_employee_id FROM departments ORDER BY name"
	result, failed := s.run(ctx, question, query, nil)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d %s", n, pluralize(n, "department")), query, result.Rows)
}

func (s *offlineAnswerService) listSkills(ctx context.Context, question string) *models.AnsweredQuery {
	query := "SELECT skill_id, name, category FROM skills ORDER BY name"
	result, failed := s.run(ctx, question, query, nil)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d %s", n, pluralize(n, "skill")), query, result.Rows)
}

func (s *offlineAnswerService) employeesWithSkill(ctx context.Context, question, skill string) *models.AnsweredQuery {
	query := `SELECT e.employee_id, e.full_name, e.designation, s.name AS skill, es.proficiency_level, es.years_of_experience, es.certified
FROM employees e
JOIN employee_skills es ON e.employee_id = es.employee_id
JOIN skills s ON es.skill_id = s.skill_id
WHERE s.name LIKE {{skill_name}}
ORDER BY e.full_name`
	params := map[string]any{"skill_name": "%" + skill + "%"}

	result, failed := s.run(ctx, question, query, params)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d %s with %s skills", n, pluralize(n, "employee"), skill), query, result.Rows)
}

func (s *offlineAnswerService) listOpenGoals(ctx context.Context, question string) *models.AnsweredQuery {
	query := `SELECT g.goal_id, g.title, g.status, g.assigned_to_employee_id, e.full_name AS employee_name
FROM goals g
LEFT JOIN employees e ON g.assigned_to_employee_id = e.employee_id
WHERE g.status IN ('Pending', 'In Progress')
ORDER BY g.goal_id`
	result, failed := s.run(ctx, question, query, nil)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d pending or in-progress %s", n, pluralize(n, "goal")), query, result.Rows)
}

func (s *offlineAnswerService) goalsAssigned(ctx context.Context, question, who, column string) *models.AnsweredQuery {
	query := "SELECT goal_id, title, status, assigned_to_employee_id, assigned_by_employee_id FROM goals ORDER BY goal_id"
	var params map[string]any
	switch {
	case who == "":
	case s.looksLikeEmployeeID(who):
		query = fmt.Sprintf("SELECT goal_id, title, status, assigned_to_employee_id, assigned_by_employee_id FROM goals WHERE %s = {{employee_id}} ORDER BY goal_id", column)
		params = map[string]any{"employee_id": strings.ToUpper(who)}
	default:
		query = fmt.Sprintf(`SELECT g.goal_id, g.title, g.status, g.assigned_to_employee_id, g.assigned_by_employee_id
FROM goals g
JOIN employees e ON g.%s = e.employee_id
WHERE e.full_name LIKE {{employee_name}}
ORDER BY g.goal_id`, column)
		params = map[string]any{"employee_name": "%" + who + "%"}
	}

	result, failed := s.run(ctx, question, query, params)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d %s", n, pluralize(n, "goal")), query, result.Rows)
}

func (s *offlineAnswerService) employeesReportingTo(ctx context.Context, question, who string) *models.AnsweredQuery {
	if who == "" {
		return s.answered(question, "Found 0 direct reports", "", nil)
	}

	var query string
	var params map[string]any
	if s.looksLikeEmployeeID(who) {
		query = `SELECT m.employee_id AS manager_id, m.full_name AS manager_name, e.employee_id, e.full_name, e.designation
FROM employees e
JOIN employees m ON e.manager_employee_id = m.employee_id
WHERE m.employee_id = {{manager_id}}
ORDER BY e.full_name`
		params = map[string]any{"manager_id": strings.ToUpper(who)}
	} else {
		query = `SELECT m.employee_id AS manager_id, m.full_name AS manager_name, e.employee_id, e.full_name, e.designation
FROM employees e
JOIN employees m ON e.manager_employee_id = m.employee_id
WHERE m.full_name LIKE {{manager_name}}
ORDER BY e.full_name`
		params = map[string]any{"manager_name": "%" + who + "%"}
	}

	result, failed := s.run(ctx, question, query, params)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Found %d direct %s under %s", n, pluralize(n, "report"), who), query, result.Rows)
}

func (s *offlineAnswerService) employeesPerDepartment(ctx context.Context, question string) *models.AnsweredQuery {
	query := `SELECT d.name AS department, COUNT(e.id) AS employees
FROM departments d
LEFT JOIN employees e ON e.department_id = d.department_id
GROUP BY d.name
ORDER BY d.name`
	result, failed := s.run(ctx, question, query, nil)
	if failed != nil {
		return failed
	}
	n := len(result.Rows)
	return s.answered(question, fmt.Sprintf("Employee counts for %d %s", n, pluralize(n, "department")), query, result.Rows)
}

// run normalizes the canned query for the executor's dialect and executes
// it. A non-nil second return value is the degraded answer for a failed
// lookup.
func (s *offlineAnswerService) run(ctx context.Context, question, query string, params map[string]any) (*datasource.QueryResult, *models.AnsweredQuery) {
	query = sqlcheck.EnsureCaseInsensitiveMatching(query, s.executor.Dialect())
	result, err := s.executor.ExecuteQuery(ctx, query, params, s.rowLimit())
	if err != nil {
		s.logger.Warn("Offline query failed", zap.String("sql", logging.SanitizeQuery(query)), zap.Error(err))
		return nil, &models.AnsweredQuery{
			Success:   false,
			Question:  question,
			Answer:    "Offline mode: the supporting lookup failed.",
			QueryType: offlineQueryType,
			QueryUsed: query,
			Error:     "offline_query_failed",
		}
	}
	return result, nil
}

func (s *offlineAnswerService) answered(question, answer, query string, rows []map[string]any) *models.AnsweredQuery {
	return &models.AnsweredQuery{
		Success:     true,
		Question:    question,
		Answer:      answer,
		QueryType:   offlineQueryType,
		QueryUsed:   query,
		DataPoints:  len(rows),
		DataPreview: rows,
	}
}

func (s *offlineAnswerService) unsupported(question string) *models.AnsweredQuery {
	return &models.AnsweredQuery{
		Success:   false,
		Question:  question,
		Answer:    "Offline mode: I could not classify this into a supported basic query.",
		QueryType: offlineQueryType,
		Error:     "unsupported_offline_query",
	}
}

// looksLikeEmployeeID reports whether a token extracted from lowercased
// question text is an employee business key rather than a name.
func (s *offlineAnswerService) looksLikeEmployeeID(token string) bool {
	prefix := s.cfg.EmployeeIDPrefix
	if prefix == "" {
		return false
	}
	return strings.HasPrefix(strings.ToUpper(token), strings.ToUpper(prefix))
}

func (s *offlineAnswerService) rowLimit() int {
	if s.cfg.RowLimit > 0 {
		return s.cfg.RowLimit
	}
	return 50
}

// pluralize returns the entity label matching the count.
func pluralize(count int, singular string) string {
	if count == 1 {
		return singular
	}
	return inflection.Plural(singular)
}

// intAt reads a numeric column from the first row, tolerating the scan
// types different drivers produce.
func intAt(rows []map[string]any, column string) int {
	if len(rows) == 0 {
		return 0
	}
	switch v := rows[0][column].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case int32:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

// extractBetween returns the trimmed text between the first occurrence of
// start and the next occurrence of end, or "".
func extractBetween(text, start, end string) string {
	i := strings.Index(text, start)
	if i < 0 {
		return ""
	}
	rest := text[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

// extractAfter returns the trimmed text after the first occurrence of key,
// or "".
func extractAfter(text, key string) string {
	i := strings.Index(text, key)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+len(key):])
}

// trimQueryNoise strips punctuation that question phrasing leaves on an
// extracted token.
func trimQueryNoise(s string) string {
	return strings.Trim(s, " ?.!,\"'")
}
