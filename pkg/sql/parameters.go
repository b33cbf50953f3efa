package sql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// parameterRegex matches {{parameter_name}} placeholders in SQL templates.
// Names start with a letter or underscore and continue with word characters.
var parameterRegex = regexp.MustCompile(`\{\{([a-zA-Z_]\w*)\}\}`)

// ExtractParameters returns the placeholder names used in a SQL template,
// deduplicated, in order of first appearance. A template without
// placeholders yields nil.
func ExtractParameters(sqlQuery string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range parameterRegex.FindAllStringSubmatch(sqlQuery, -1) {
		if name := match[1]; !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// MissingParameters returns the names of {{param}} placeholders that have no
// entry in values, in order of first appearance. An empty result means every
// placeholder is bound.
func MissingParameters(sqlQuery string, values map[string]any) []string {
	var missing []string
	for _, name := range ExtractParameters(sqlQuery) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// FindParametersInStringLiterals reports placeholders trapped inside
// single-quoted literals. A placeholder inside quotes never becomes a bound
// parameter; the database would see the literal text $N instead. Doubled ''
// escapes are part of the surrounding literal. An unterminated literal is
// scanned to its end so a trapped placeholder is still reported.
func FindParametersInStringLiterals(sqlQuery string) []string {
	var trapped []string
	seen := make(map[string]bool)

	rest := sqlQuery
	for {
		open := strings.IndexByte(rest, '\'')
		if open < 0 {
			return trapped
		}
		rest = rest[open+1:]

		var literal strings.Builder
		for {
			end := strings.IndexByte(rest, '\'')
			if end < 0 {
				literal.WriteString(rest)
				rest = ""
				break
			}
			literal.WriteString(rest[:end])
			if end+1 < len(rest) && rest[end+1] == '\'' {
				literal.WriteByte('\'')
				rest = rest[end+2:]
				continue
			}
			rest = rest[end+1:]
			break
		}

		for _, match := range parameterRegex.FindAllStringSubmatch(literal.String(), -1) {
			if name := match[1]; !seen[name] {
				seen[name] = true
				trapped = append(trapped, name)
			}
		}
	}
}

// SubstituteParameters replaces {{param}} placeholders with PostgreSQL
// positional parameters and returns the prepared SQL plus the values in
// binding order. A placeholder that appears several times maps to one $N and
// one bound value.
//
// Every placeholder must have an entry in values. Executing with an unbound
// placeholder would silently match nothing, so it is an error here.
func SubstituteParameters(sqlQuery string, values map[string]any) (string, []any, error) {
	if missing := MissingParameters(sqlQuery, values); len(missing) > 0 {
		return "", nil, fmt.Errorf("missing values for parameters: %s", strings.Join(missing, ", "))
	}

	names := ExtractParameters(sqlQuery)
	position := make(map[string]int, len(names))
	ordered := make([]any, len(names))
	for i, name := range names {
		position[name] = i + 1
		ordered[i] = values[name]
	}

	prepared := parameterRegex.ReplaceAllStringFunc(sqlQuery, func(match string) string {
		name := match[2 : len(match)-2]
		return "$" + strconv.Itoa(position[name])
	})

	return prepared, ordered, nil
}
