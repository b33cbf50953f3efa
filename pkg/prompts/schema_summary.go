// Package prompts builds the prompt and system message pairs for every
// LLM call site: query routing, SQL generation and repair, and answer
// composition.
package prompts

import (
	"fmt"
	"strings"

	"github.com/crewstack/crewstack-engine/pkg/adapters/datasource"
)

// SummarizeSchema renders a discovered schema in the compact form the
// routing and generation prompts consume, one line per table:
//
//	employees: id, employee_id, full_name | FK(department_id)->departments.department_id
//
// Tables and columns keep their discovery order, so the summary is stable
// across requests against an unchanged database.
func SummarizeSchema(schema *datasource.SchemaDescription) string {
	if schema == nil {
		return ""
	}

	var b strings.Builder
	for i, table := range schema.Tables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(table.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(table.Columns, ", "))

		if len(table.ForeignKeys) == 0 {
			continue
		}
		edges := make([]string, 0, len(table.ForeignKeys))
		for _, fk := range table.ForeignKeys {
			edges = append(edges, fmt.Sprintf("FK(%s)->%s.%s",
				strings.Join(fk.Columns, ","),
				fk.ReferredTable,
				strings.Join(fk.ReferredColumns, ",")))
		}
		b.WriteString(" | ")
		b.WriteString(strings.Join(edges, "; "))
	}
	return b.String()
}
