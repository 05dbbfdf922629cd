package cli

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	clauseKeywordRe = regexp2.MustCompile(`\b((?:INNER|LEFT|RIGHT|FULL|CROSS)(?:\s+OUTER)?\s+JOIN|JOIN|SELECT|FROM|WHERE|ON|AND|OR|GROUP\s+BY|HAVING|ORDER\s+BY|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)\b`, regexp2.IgnoreCase)
	adjacentParenRe = regexp2.MustCompile(`\)\s*\(`, regexp2.None)
)

// FormatSQL lays sql out one clause per line. Major keywords start a new
// line, list items after a comma are indented by four spaces and ")("
// is split. It is a readability aid, not a parser.
func FormatSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return ""
	}

	formatted, err := clauseKeywordRe.Replace(sql, "\n$1", -1, -1)
	if err != nil {
		return sql
	}
	formatted = strings.ReplaceAll(formatted, ",", ",\n")
	if formatted, err = adjacentParenRe.Replace(formatted, ")\n(", -1, -1); err != nil {
		return sql
	}

	var lines []string
	for _, line := range strings.Split(formatted, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n := len(lines); n > 0 && strings.HasSuffix(lines[n-1], ",") {
			line = "    " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
