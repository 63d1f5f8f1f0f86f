// Package sqlutil provides SQL quoting helpers for MySQL-compatible dialects.
package sqlutil

import "strings"

// QuoteIdentifier quotes a SQL identifier (table name, column name, etc.)
// with backticks and escapes any backticks within the identifier.
func QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, "`", "``")
	return "`" + escaped + "`"
}

// QuoteQualified quotes each dot-separated part of a name such as
// "database.table". Parts that are already backtick-quoted are kept.
func QuoteQualified(name string) string {
	if name == "" {
		return QuoteIdentifier(name)
	}
	if strings.HasPrefix(name, "`") {
		return name
	}
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}

// IsPlainIdentifier reports whether name needs no quoting: letters, digits,
// underscores and dollar signs, not starting with a digit.
func IsPlainIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
