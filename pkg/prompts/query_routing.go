package prompts

import "strings"

// BuildQueryRoutingPrompt creates the prompt that classifies a question as
// sql, semantic, or hybrid. The guidance biases toward sql: structured
// lookups are cheaper and more auditable than vector search, and the
// fallback chain already covers the case where sql finds nothing.
func BuildQueryRoutingPrompt(question string, schemaSummary string) string {
	var prompt strings.Builder

	prompt.WriteString("You are a router deciding how to answer a question.\n")
	prompt.WriteString("Options: sql, semantic, hybrid.\n")
	prompt.WriteString("Prefer sql for structured, exact lookups (counts, lists, filters, joins).\n")
	prompt.WriteString("Use semantic only when no clear structured path exists and fuzzy text meaning is required.\n")
	prompt.WriteString("Use hybrid when both structured filters and fuzzy matching help.\n")
	prompt.WriteString("Default to sql for aggregates (COUNT), lookups by known columns, and relational joins.\n\n")

	prompt.WriteString("Schema:\n")
	prompt.WriteString(schemaSummary)
	prompt.WriteString("\n\n")

	prompt.WriteString("Question: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString(`Respond with JSON: {"type": <sql|semantic|hybrid>, "reason": <short>}`)
	prompt.WriteString("\n")

	return prompt.String()
}

// BuildQueryRoutingSystemMessage returns the system message for routing.
func BuildQueryRoutingSystemMessage() string {
	return "Classify the question routing type succinctly."
}
