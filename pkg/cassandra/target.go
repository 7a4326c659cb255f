package cassandra

import (
	"regexp"
	"strings"
)

// targetRe matches the table a statement reads or writes, optionally
// qualified by its keyspace.
var targetRe = regexp.MustCompile(`(?is)\b(?:FROM|INTO|UPDATE)\s+((?:"[^"]+"|\w+)(?:\s*\.\s*(?:"[^"]+"|\w+))?)`)

// parseTarget returns the keyspace and table of query. The keyspace is empty
// when the query does not qualify the table.
func parseTarget(query string) (keyspace, table string) {
	m := targetRe.FindStringSubmatch(query)
	if m == nil {
		return "", ""
	}
	parts := strings.SplitN(m[1], ".", 2)
	if len(parts) == 1 {
		return "", identifier(parts[0])
	}
	return identifier(parts[0]), identifier(parts[1])
}

// identifier unquotes a quoted identifier and lower-cases an unquoted one.
func identifier(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.ToLower(s)
}
