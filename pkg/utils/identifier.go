package utils

import "strings"

// IsQuoted checks if a string is wrapped in a single pair of identifier quotes
// (backticks or double quotes).
//
// Examples:
//   - "`t_order`" -> true
//   - "\"t_order\"" -> true
//   - "t_order" -> false
//   - "`db`.`t_order`" -> false (qualified name, not a single quoted identifier)
//   - "" -> false
func IsQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}

	q := s[0]
	if q != '`' && q != '"' {
		return false
	}

	return s[len(s)-1] == q && !strings.ContainsRune(s[1:len(s)-1], rune(q))
}

// StripQuotes removes backticks and double quotes from an identifier.
//
// Examples:
//   - "`t_order`" -> "t_order"
//   - "t_order" -> "t_order"
//   - "`db`.`t_order`" -> "db.t_order"
//   - "" -> ""
func StripQuotes(s string) string {
	return strings.NewReplacer("`", "", `"`, "").Replace(s)
}

// NormalizeIdentifier returns the canonical form used to compare logical table
// and index names: quotes removed, surrounding whitespace trimmed, lower case.
//
// Examples:
//   - "`T_Order`" -> "t_order"
//   - " t_config " -> "t_config"
//   - "\"Db\".\"T\"" -> "db.t"
func NormalizeIdentifier(name string) string {
	return strings.ToLower(strings.TrimSpace(StripQuotes(name)))
}

// NormalizeIdentifiers applies NormalizeIdentifier to every name, dropping
// names that normalize to the empty string.
func NormalizeIdentifiers(names []string) []string {
	result := make([]string, 0, len(names))
	for _, name := range names {
		if n := NormalizeIdentifier(name); n != "" {
			result = append(result, n)
		}
	}

	return result
}
