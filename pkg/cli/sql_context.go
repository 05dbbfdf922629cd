package cli

import (
	"strings"
)

// SQLContext is what the completer expects at the cursor
type SQLContext int

const (
	ContextKeyword  SQLContext = iota // start of statement or after AND, OR
	ContextTable                      // after FROM, JOIN, UPDATE, INTO
	ContextColumn                     // after SELECT, WHERE, ON, BY, SET
	ContextTableDot                   // after table. or alias.
	ContextCommand                    // a backslash command
)

// TableAlias maps alias names to table names
type TableAlias struct {
	Alias     string
	TableName string
}

// SQLParseResult describes the statement typed so far
type SQLParseResult struct {
	Context      SQLContext
	CurrentTable string // qualifier before the dot in ContextTableDot
	Tables       []string
	Aliases      []TableAlias
	PartialWord  string
}

// ParseSQLContext scans input up to cursorPos and decides what kind of
// word is being typed
func ParseSQLContext(input string, cursorPos int) *SQLParseResult {
	result := &SQLParseResult{
		Context: ContextKeyword,
		Tables:  []string{},
		Aliases: []TableAlias{},
	}

	if cursorPos > len(input) {
		cursorPos = len(input)
	}
	text := input[:cursorPos]
	if strings.HasPrefix(strings.TrimSpace(text), "\\") {
		result.Context = ContextCommand
		result.PartialWord = lastWord(text)
		return result
	}

	tokens := tokenizeSQL(text)
	if len(tokens) == 0 {
		return result
	}

	// the word under the cursor is not part of the context
	if !endsWithSeparator(text) {
		result.PartialWord = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	result.parseTokens(tokens)
	return result
}

func (r *SQLParseResult) parseTokens(tokens []string) {
	expectingTable := false
	expectingAlias := false

	for i, token := range tokens {
		upper := strings.ToUpper(token)

		switch upper {
		case "FROM", "JOIN", "UPDATE", "INTO":
			r.Context = ContextTable
			expectingTable = true
			expectingAlias = false
			continue
		case "INNER", "LEFT", "RIGHT", "OUTER", "CROSS", "NATURAL", "FULL":
			continue
		case "SELECT", "WHERE", "ON", "SET", "HAVING":
			r.Context = ContextColumn
		case "BY":
			if i > 0 {
				if prev := strings.ToUpper(tokens[i-1]); prev == "ORDER" || prev == "GROUP" {
					r.Context = ContextColumn
				}
			}
		case "AND", "OR", "NOT":
			r.Context = ContextColumn
		case "AS":
			continue
		case ",":
			if expectingAlias {
				// FROM a, b
				r.Context = ContextTable
				expectingTable = true
				expectingAlias = false
			}
			continue
		case ".":
			if i > 0 && !isKeyword(strings.ToUpper(tokens[i-1])) {
				r.CurrentTable = r.ResolveAlias(strings.Trim(tokens[i-1], "`[]\""))
				r.Context = ContextTableDot
			}
			continue
		default:
			if expectingTable && !isKeyword(upper) {
				r.Tables = append(r.Tables, strings.Trim(token, "`[]\""))
				expectingTable = false
				expectingAlias = true
				r.Context = ContextKeyword
				continue
			}
			if expectingAlias && !isKeyword(upper) && len(r.Tables) > 0 {
				r.Aliases = append(r.Aliases, TableAlias{Alias: token, TableName: r.Tables[len(r.Tables)-1]})
				expectingAlias = false
				continue
			}
			if r.Context == ContextTableDot {
				r.Context = ContextColumn
			}
		}
		expectingTable = false
		expectingAlias = false
	}
}

// ResolveAlias returns the table name for an alias, or name if it is not one
func (r *SQLParseResult) ResolveAlias(name string) string {
	for _, alias := range r.Aliases {
		if strings.EqualFold(alias.Alias, name) {
			return alias.TableName
		}
	}
	return name
}

// tokenizeSQL splits SQL into words and punctuation, keeping quoted text whole
func tokenizeSQL(sql string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, ch := range sql {
		switch {
		case quote != 0:
			current.WriteRune(ch)
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			current.WriteRune(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		case strings.ContainsRune(",();.=<>!", ch):
			flush()
			tokens = append(tokens, string(ch))
		default:
			current.WriteRune(ch)
		}
	}
	flush()

	return tokens
}

func endsWithSeparator(text string) bool {
	if text == "" {
		return true
	}
	return strings.ContainsRune(" \t\n\r,();.=<>!", rune(text[len(text)-1]))
}

func lastWord(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasSuffix(text, " ") {
		return ""
	}
	return fields[len(fields)-1]
}

var sqlKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "OUTER": true,
	"CROSS": true, "NATURAL": true, "FULL": true, "ON": true, "AS": true, "ORDER": true,
	"BY": true, "GROUP": true, "HAVING": true, "LIMIT": true, "OFFSET": true,
	"INSERT": true, "INTO": true, "VALUES": true, "UPDATE": true, "SET": true,
	"DELETE": true, "DISTINCT": true, "BETWEEN": true, "LIKE": true,
	"IN": true, "IS": true, "NULL": true, "NOT": true, "ASC": true, "DESC": true,
	"UNION": true, "ALL": true, "EXISTS": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "TOP": true, "WITH": true,
}

// isKeyword checks if an upper-cased token is a SQL keyword
func isKeyword(token string) bool {
	return sqlKeywords[token]
}
