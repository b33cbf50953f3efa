package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueryRoutingPrompt(t *testing.T) {
	prompt := BuildQueryRoutingPrompt(
		"How many employees are active?",
		"employees: id, employee_id, full_name, active",
	)

	// Verify the routing guidance
	assert.Contains(t, prompt, "Options: sql, semantic, hybrid.")
	assert.Contains(t, prompt, "Prefer sql for structured, exact lookups")
	assert.Contains(t, prompt, "Default to sql for aggregates (COUNT), lookups by known columns, and relational joins.")

	// Verify both inputs are present
	assert.Contains(t, prompt, "employees: id, employee_id, full_name, active")
	assert.Contains(t, prompt, "Question: How many employees are active?")

	// Verify the response contract
	assert.Contains(t, prompt, `{"type": <sql|semantic|hybrid>, "reason": <short>}`)
}

func TestBuildQueryRoutingSystemMessage(t *testing.T) {
	message := BuildQueryRoutingSystemMessage()

	assert.NotEmpty(t, message)
	assert.Contains(t, message, "routing")
}
