package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crewstack/crewstack-engine/pkg/models"
)

// AnswerCompositionContext carries the gathered evidence for the final
// answer. Counts are reported in full; only the first PreviewRows items of
// each section are rendered verbatim so the prompt stays bounded no matter
// how many rows the query returned.
type AnswerCompositionContext struct {
	Question        string
	SQLRows         []map[string]any
	SemanticMatches []models.SemanticMatch

	// PreviewRows caps the items rendered per section. Zero means 10.
	PreviewRows int
}

// BuildAnswerCompositionPrompt creates the prompt that turns gathered SQL
// rows and semantic matches into the final natural-language answer.
func BuildAnswerCompositionPrompt(composeCtx AnswerCompositionContext) string {
	preview := composeCtx.PreviewRows
	if preview <= 0 {
		preview = 10
	}

	var prompt strings.Builder

	prompt.WriteString("Question: ")
	prompt.WriteString(composeCtx.Question)
	prompt.WriteString("\n\n")

	prompt.WriteString(fmt.Sprintf("SQL Rows (%d):\n", len(composeCtx.SQLRows)))
	prompt.WriteString(marshalEvidence(previewSlice(composeCtx.SQLRows, preview)))
	prompt.WriteString("\n\n")

	prompt.WriteString(fmt.Sprintf("Semantic Matches (%d):\n", len(composeCtx.SemanticMatches)))
	prompt.WriteString(marshalEvidence(previewSlice(composeCtx.SemanticMatches, preview)))
	prompt.WriteString("\n\n")

	prompt.WriteString("Compose a precise answer. Mention names and IDs where useful.\n")
	prompt.WriteString("If both sections are empty, state clearly that no matching records were found.\n")

	return prompt.String()
}

// BuildAnswerCompositionSystemMessage returns the system message for answer
// composition.
func BuildAnswerCompositionSystemMessage() string {
	return "You write clear answers citing specific data points."
}

// previewSlice bounds a section to its first n items. A nil slice comes
// back empty so it renders as [] rather than null.
func previewSlice[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

// marshalEvidence renders evidence as indented JSON. Values the encoder
// rejects (driver-specific row types) fall back to their fmt rendering so
// the prompt always carries something.
func marshalEvidence(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
