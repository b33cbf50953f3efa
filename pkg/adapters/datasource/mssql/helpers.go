package mssql

import "strings"

// quoteName quotes an identifier with SQL Server square brackets, escaping
// any closing bracket as ]] the way QUOTENAME() does.
func quoteName(identifier string) string {
	return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]"
}

// isStringType reports whether a SQL Server column type holds text. Scanned
// values for these columns arrive as byte slices and need conversion.
func isStringType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "CHAR", "NCHAR", "VARCHAR", "NVARCHAR", "TEXT", "NTEXT":
		return true
	}
	return false
}
