// Package sql provides validation, parameter substitution, and dialect
// normalization for generated SQL statements.
package sql

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrEmptyStatement indicates the query is empty after normalization.
	ErrEmptyStatement = errors.New("empty SQL statement")

	// ErrNotReadOnly indicates the query is not a read-only SELECT statement.
	ErrNotReadOnly = errors.New("only read-only SELECT statements are allowed")
)

// forbiddenKeywords are statement types and clauses that modify data or
// schema. They are rejected anywhere outside string literals, which also
// catches data-modifying CTEs such as WITH x AS (DELETE ... RETURNING *).
var forbiddenKeywords = map[string]bool{
	"insert":   true,
	"update":   true,
	"delete":   true,
	"merge":    true,
	"drop":     true,
	"alter":    true,
	"create":   true,
	"truncate": true,
	"grant":    true,
	"revoke":   true,
	"exec":     true,
	"execute":  true,
}

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize strips surrounding whitespace and the statement
// terminator, then rejects input that still contains a semicolon outside
// string literals. One trailing semicolon is normal generator output; a
// remaining one means a second statement follows.
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	normalized := normalizeStatement(sqlQuery)
	if normalized == "" {
		return ValidationResult{}
	}
	if semicolonOutsideLiterals(normalized) {
		return ValidationResult{Error: ErrMultipleStatements}
	}
	return ValidationResult{NormalizedSQL: normalized}
}

// ValidateSelectOnly normalizes the statement and verifies it is a single
// read-only SELECT (or WITH ... SELECT) statement. It returns the normalized
// SQL on success. Data-modifying keywords are rejected wherever they appear
// outside string literals, so a WITH clause cannot smuggle in a write.
func ValidateSelectOnly(sqlQuery string) (string, error) {
	result := ValidateAndNormalize(sqlQuery)
	if result.Error != nil {
		return "", result.Error
	}

	normalized := result.NormalizedSQL
	if normalized == "" {
		return "", ErrEmptyStatement
	}

	first := firstKeyword(normalized)
	if first != "select" && first != "with" {
		return "", fmt.Errorf("%w: statement begins with %q", ErrNotReadOnly, first)
	}

	if kw := findForbiddenKeyword(normalized); kw != "" {
		return "", fmt.Errorf("%w: statement contains %q", ErrNotReadOnly, strings.ToUpper(kw))
	}

	return normalized, nil
}

// firstKeyword returns the first word of the statement, lowercased.
// Leading parentheses are skipped so that "(SELECT ...)" is recognized.
func firstKeyword(sqlQuery string) string {
	start := -1
	for i, char := range sqlQuery {
		if unicode.IsSpace(char) || char == '(' {
			if start >= 0 {
				return strings.ToLower(sqlQuery[start:i])
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		return strings.ToLower(sqlQuery[start:])
	}
	return ""
}

// findForbiddenKeyword scans word tokens outside string literals and returns
// the first data-modifying keyword found, or "" if the statement is clean.
// Quoted identifiers (double quotes) and string literals (single quotes) are
// skipped, so a column named "update" does not trigger a rejection.
func findForbiddenKeyword(sqlQuery string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)
	var token strings.Builder

	checkToken := func() string {
		if token.Len() == 0 {
			return ""
		}
		word := strings.ToLower(token.String())
		token.Reset()
		if forbiddenKeywords[word] {
			return word
		}
		return ""
	}

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch {
			case char == '\'':
				if kw := checkToken(); kw != "" {
					return kw
				}
				state = stateSingleQuote
			case char == '"':
				if kw := checkToken(); kw != "" {
					return kw
				}
				state = stateDoubleQuote
			case char == '_' || unicode.IsLetter(char) || unicode.IsDigit(char):
				token.WriteRune(char)
			default:
				if kw := checkToken(); kw != "" {
					return kw
				}
			}
		case stateSingleQuote:
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return checkToken()
}

// normalizeStatement trims surrounding whitespace and at most one trailing
// semicolon, including whitespace between the statement and the semicolon.
// A second trailing semicolon survives and trips the multiple-statement
// check.
func normalizeStatement(sqlQuery string) string {
	sqlQuery = strings.TrimSpace(sqlQuery)
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimRight(strings.TrimSuffix(sqlQuery, ";"), " \t\n\r")
	}
	return sqlQuery
}

// semicolonOutsideLiterals reports whether a semicolon remains outside
// single-quoted literals and double-quoted identifiers. SQL doubled quotes
// ('') close and immediately reopen the literal, which keeps the scanner in
// the right state; backslash-escaped quotes are tolerated too. Byte
// comparisons are safe because every byte of a multi-byte rune has the high
// bit set.
func semicolonOutsideLiterals(sqlQuery string) bool {
	var quote, prev byte
	for i := 0; i < len(sqlQuery); i++ {
		ch := sqlQuery[i]
		switch {
		case quote != 0:
			if ch == quote && prev != '\\' {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == ';':
			return true
		}
		prev = ch
	}
	return false
}
