package sql

/*
Parameter Template Syntax

# Overview

Generated SQL in this engine uses the {{parameter_name}} syntax to mark
parameter placeholders. The generator returns a SQL template plus a map of
parameter values; the two stay separate until the moment of execution, so
model-produced values are never interpolated into SQL text.

# Template Syntax

Parameters are denoted using double curly braces with the parameter name inside:

	{{parameter_name}}

Parameter names must:
  - Start with a letter or underscore
  - Contain only alphanumeric characters and underscores (a-z, A-Z, 0-9, _)
  - Match the regex pattern: [a-zA-Z_]\w*

The syntax is distinct from PostgreSQL's positional parameters ($1, $2) and
from shell variable syntax (${var}), so a template can be read, logged, and
diffed without ambiguity about what the database will see.

# Lifecycle

A generated query passes through this package in a fixed order:

 1. MissingParameters(sql, values) gates execution: a {{placeholder}} with no
    bound value is a generation contract violation, and the query is rejected
    before it reaches a database.
 2. CheckAllParameters(values) screens string values with libinjection. A hit
    rejects the query.
 3. EnsureCaseInsensitiveMatching(sql, dialect) rewrites LIKE to ILIKE on
    postgres (and ILIKE back to LIKE on mssql), outside string literals only.
 4. EnsureWildcardParameters(sql, values) wraps string values bound to a
    placeholder directly after LIKE/ILIKE in %...% so partial names match.
 5. SubstituteParameters(sql, values) replaces each unique {{param}} with $N
    and returns the ordered values for binding. The mssql adapter converts
    $N to @pN named arguments before execution.

# Placement Rules

Placeholders must appear where a bound value is legal, never inside a string
literal:

	-- Correct: the driver binds the value
	SELECT * FROM employees WHERE full_name ILIKE {{name}}

	-- Wrong: inside quotes, $1 would be literal text
	SELECT * FROM employees WHERE full_name ILIKE '{{name}}'

FindParametersInStringLiterals(sql) reports placeholders trapped inside
single-quoted literals so the caller can reject the template.

# Function Reference

  - ExtractParameters(sql) - Returns parameter names in order of first use
  - MissingParameters(sql, values) - Names used in SQL but absent from values
  - FindParametersInStringLiterals(sql) - Placeholders inside quoted literals
  - SubstituteParameters(sql, values) - Replaces {{param}} with $N, returns ordered values
  - CheckAllParameters(values) - Screens a whole parameter map with libinjection

See pkg/sql/parameters.go and pkg/sql/normalize.go for implementation details.
*/
