package sql

import "strings"

// EnsureCaseInsensitiveMatching rewrites text-matching operators for the
// target dialect. On postgres, LIKE becomes ILIKE so that name lookups match
// regardless of case; on mssql, ILIKE (which the generator may emit out of
// postgres habit) becomes LIKE, which is already case-insensitive under the
// default collation. NOT LIKE is handled naturally because NOT is a separate
// token. Operators inside string literals, quoted identifiers, or {{...}}
// placeholders are never rewritten. Unknown dialects pass through unchanged.
func EnsureCaseInsensitiveMatching(sqlQuery, dialect string) string {
	var from, to string
	switch dialect {
	case "postgres":
		from, to = "like", "ILIKE"
	case "mssql":
		from, to = "ilike", "LIKE"
	default:
		return sqlQuery
	}

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		statePlaceholder
	)

	var out strings.Builder
	out.Grow(len(sqlQuery) + 8)
	state := stateNormal

	for i := 0; i < len(sqlQuery); i++ {
		char := sqlQuery[i]
		switch state {
		case stateNormal:
			switch {
			case isWordByte(char):
				j := i + 1
				for j < len(sqlQuery) && isWordByte(sqlQuery[j]) {
					j++
				}
				word := sqlQuery[i:j]
				if strings.EqualFold(word, from) {
					out.WriteString(to)
				} else {
					out.WriteString(word)
				}
				i = j - 1
			case char == '\'':
				state = stateSingleQuote
				out.WriteByte(char)
			case char == '"':
				state = stateDoubleQuote
				out.WriteByte(char)
			case char == '{':
				state = statePlaceholder
				out.WriteByte(char)
			default:
				out.WriteByte(char)
			}
		case stateSingleQuote:
			out.WriteByte(char)
			if char == '\'' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			out.WriteByte(char)
			if char == '"' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case statePlaceholder:
			out.WriteByte(char)
			if char == '}' {
				state = stateNormal
			}
		}
	}

	return out.String()
}

// EnsureWildcardParameters wraps parameter values used in LIKE or ILIKE
// comparisons in %...% so that partial-name questions still match. Only
// string values bound to a placeholder that directly follows a LIKE or
// ILIKE operator are touched, and a value that already contains % is left
// alone, so the rewrite is idempotent. The input map is not modified.
func EnsureWildcardParameters(sqlQuery string, params map[string]any) map[string]any {
	if len(params) == 0 {
		return params
	}

	names := likeParameterNames(sqlQuery)
	if len(names) == 0 {
		return params
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	for _, name := range names {
		value, ok := out[name]
		if !ok {
			continue
		}
		str, ok := value.(string)
		if !ok || strings.Contains(str, "%") {
			continue
		}
		out[name] = "%" + str + "%"
	}

	return out
}

// likeParameterNames returns, in order of appearance, the names of {{...}}
// placeholders that directly follow a LIKE or ILIKE token outside string
// literals.
func likeParameterNames(sqlQuery string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var names []string
	state := stateNormal

	for i := 0; i < len(sqlQuery); i++ {
		char := sqlQuery[i]
		switch state {
		case stateNormal:
			switch {
			case isWordByte(char):
				j := i + 1
				for j < len(sqlQuery) && isWordByte(sqlQuery[j]) {
					j++
				}
				word := sqlQuery[i:j]
				if strings.EqualFold(word, "like") || strings.EqualFold(word, "ilike") {
					if name, next := placeholderAfter(sqlQuery, j); name != "" {
						names = append(names, name)
						j = next
					}
				}
				i = j - 1
			case char == '\'':
				state = stateSingleQuote
			case char == '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if char == '\'' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		}
	}

	return names
}

// placeholderAfter reads a {{name}} placeholder starting at the first
// non-space byte at or after pos. It returns the parameter name and the
// index just past the closing braces, or "" when the next token is not a
// placeholder.
func placeholderAfter(sqlQuery string, pos int) (string, int) {
	i := pos
	for i < len(sqlQuery) && (sqlQuery[i] == ' ' || sqlQuery[i] == '\t' || sqlQuery[i] == '\n' || sqlQuery[i] == '\r') {
		i++
	}
	if i+1 >= len(sqlQuery) || sqlQuery[i] != '{' || sqlQuery[i+1] != '{' {
		return "", pos
	}

	match := parameterRegex.FindStringSubmatchIndex(sqlQuery[i:])
	if match == nil || match[0] != 0 {
		return "", pos
	}

	return sqlQuery[i+match[2] : i+match[3]], i + match[1]
}

// isWordByte reports whether the byte is part of a SQL word token.
func isWordByte(char byte) bool {
	return char == '_' ||
		(char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
