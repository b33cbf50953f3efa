package prompts

import (
	"fmt"
	"strings"
)

// defaultRowLimit is the query row cap applied when a context does not
// carry a configured one.
const defaultRowLimit = 50

// SQLGenerationContext carries the inputs for the SQL generation prompt.
type SQLGenerationContext struct {
	Question      string
	SchemaSummary string

	// RowLimit is the cap generated queries should apply by default.
	RowLimit int

	// EmployeeIDPrefix marks question tokens that are employee IDs rather
	// than names (e.g. "LCL16110165"), enabling direct ID filters instead
	// of name joins.
	EmployeeIDPrefix string
}

// SQLRepairContext carries a failed attempt alongside the original
// generation inputs for the single repair pass.
type SQLRepairContext struct {
	Question      string
	SchemaSummary string
	PreviousSQL   string
	ErrorMessage  string
	RowLimit      int
}

// BuildSQLGenerationPrompt creates the prompt that turns a question into a
// parameterized SELECT. The rules section carries the domain knowledge the
// model needs to produce usable SQL against the HR schema: real column
// names, join directions for the manager and goal relationships, and the
// placeholder discipline the executor enforces.
func BuildSQLGenerationPrompt(genCtx SQLGenerationContext) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Generation\n\n")
	prompt.WriteString("Write ONE safe, parameterized SELECT statement that answers the question.\n\n")

	prompt.WriteString("## Schema\n\n")
	prompt.WriteString("One line per table: columns in order, then outgoing foreign keys as FK(constrained_columns)->referred_table.referred_columns.\n\n")
	prompt.WriteString(genCtx.SchemaSummary)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(genCtx.Question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Use only tables and columns from the schema summary. Do not invent columns.\n")
	prompt.WriteString("- Prefer joins via the foreign keys listed; match constrained columns to referred_table.referred_columns exactly.\n")
	prompt.WriteString("- CRITICAL: Join on business keys (employee_id, goal_id, project_id, skill_id, department_id), NOT the integer id, unless a foreign key explicitly references id.\n")
	prompt.WriteString("- Text filters on names, roles, titles, and skill names MUST use case-insensitive matching (ILIKE). NEVER use LIKE or = for free text.\n")
	prompt.WriteString("- The employees table uses full_name for the person name and designation for the job title. There is NO name column on employees. The departments table uses name.\n")
	prompt.WriteString("- Manager relationship: employees.manager_employee_id references employees.employee_id. For \"reports to\" questions, self-join employees e (subordinate) to employees m (manager) ON e.manager_employee_id = m.employee_id, and SELECT the subordinate fields (e.full_name, e.designation, e.employee_id) unless the question explicitly asks about the manager.\n")
	prompt.WriteString("- Goals carry two employee references. \"assigned by <person>\" filters goals.assigned_by_employee_id; \"assigned to <person>\" filters goals.assigned_to_employee_id. Join the matching employees alias (e_by or e_to) and filter its full_name. Never swap the two directions.\n")
	prompt.WriteString("- The skills table uses name, NOT skill_name. For \"who has X skills\" questions, join employees e JOIN employee_skills es ON e.employee_id = es.employee_id JOIN skills s ON es.skill_id = s.skill_id and filter s.name with ILIKE. Include proficiency_level, years_of_experience, and certified from employee_skills when relevant.\n")
	prompt.WriteString(fmt.Sprintf("- When the question contains an employee ID (starts with '%s'), filter the ID column directly, e.g. e.manager_employee_id = {{manager_id}} or g.assigned_to_employee_id = {{employee_id}}, and skip the name join entirely.\n", genCtx.EmployeeIDPrefix))
	prompt.WriteString("- Bind every value from the question through a named {{param}} placeholder. Never inline raw question text into the SQL.\n")
	prompt.WriteString("- When using ILIKE, put the wildcards in the bound value, e.g. {{manager_name}} bound to \"%rammohan%\".\n")
	prompt.WriteString(fmt.Sprintf("- Limit results to %d rows unless the question asks for a complete listing. For title/designation lookups (e.g. CEO), prefer ILIKE with a wildcard-wrapped value.\n\n", rowLimitOrDefault(genCtx.RowLimit)))

	writeSQLResponseFormat(&prompt)

	return prompt.String()
}

// BuildSQLGenerationSystemMessage returns the system message for SQL generation.
func BuildSQLGenerationSystemMessage() string {
	return `You generate SAFE, PARAMETERIZED SQL for questions about HR data. You never modify data and you respond only with JSON.`
}

// BuildSQLRepairPrompt creates the prompt for the single repair pass after
// a generated query failed to execute. The database error text is quoted
// verbatim; it is the model's main signal for what to fix.
func BuildSQLRepairPrompt(repairCtx SQLRepairContext) string {
	var prompt strings.Builder

	prompt.WriteString("# SQL Repair\n\n")
	prompt.WriteString("The previous SQL failed. Generate a corrected, safe, parameterized SELECT.\n\n")

	prompt.WriteString("## Schema\n\n")
	prompt.WriteString(repairCtx.SchemaSummary)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Question\n\n")
	prompt.WriteString(repairCtx.Question)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Failed Attempt\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(repairCtx.PreviousSQL)
	prompt.WriteString("\n```\n\n")
	prompt.WriteString("Error: ")
	prompt.WriteString(repairCtx.ErrorMessage)
	prompt.WriteString("\n\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- Use ONLY tables and columns that exist in the schema summary.\n")
	prompt.WriteString("- If a column is invalid, replace it with the appropriate existing column (e.g. employees.designation for job title).\n")
	prompt.WriteString("- Prefer ILIKE for case-insensitive text filters.\n")
	prompt.WriteString("- Bind every value through a named {{param}} placeholder.\n")
	prompt.WriteString(fmt.Sprintf("- Limit results to %d rows where appropriate.\n\n", rowLimitOrDefault(repairCtx.RowLimit)))

	writeSQLResponseFormat(&prompt)

	return prompt.String()
}

// BuildSQLRepairSystemMessage returns the system message for the repair pass.
func BuildSQLRepairSystemMessage() string {
	return `You fix SQL that failed to execute. You use only the provided schema and respond only with JSON.`
}

// writeSQLResponseFormat appends the JSON response contract shared by the
// generation and repair prompts.
func writeSQLResponseFormat(prompt *strings.Builder) {
	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `sql`: the SELECT statement, with {{param}} placeholders for every bound value\n")
	prompt.WriteString("- `parameters`: object binding every placeholder name to its value\n")
	prompt.WriteString("- `notes`: one short sentence on the approach\n\n")
	prompt.WriteString("Every placeholder in the SQL must have a matching key in parameters.\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "sql": "SELECT e.full_name, e.designation, e.employee_id FROM employees e JOIN employees m ON e.manager_employee_id = m.employee_id WHERE m.full_name ILIKE {{manager_name}} LIMIT 50",
  "parameters": {"manager_name": "%rammohan%"},
  "notes": "Self-join resolves the manager by name and lists their subordinates."
}
`)
	prompt.WriteString("```\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")
}

func rowLimitOrDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	return defaultRowLimit
}
