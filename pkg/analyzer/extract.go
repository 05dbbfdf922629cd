package analyzer

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// identPattern matches a possibly qualified identifier, allowing [bracket],
// "double quote" and `backtick` decoration on each part.
const identPattern = "(?:\\[[^\\]]+\\]|\"[^\"]+\"|`[^`]+`|[A-Za-z_#@][\\w$#@]*)(?:\\.(?:\\[[^\\]]+\\]|\"[^\"]+\"|`[^`]+`|[A-Za-z_#@][\\w$#@]*))*"

// clauseBoundary is the lookahead that ends WHERE and ON content
const clauseBoundary = `\bWHERE\b|\bGROUP\s+BY\b|\bHAVING\b|\bORDER\s+BY\b`

// joinBoundary also ends an ON predicate so each join keeps its own text.
// It needs the whole join phrase, so LEFT( and RIGHT( calls stay in the predicate.
const joinBoundary = `\b(?:(?:INNER|LEFT|RIGHT|FULL|CROSS|NATURAL)(?:\s+OUTER)?\s+)?JOIN\b`

const reOpts = regexp2.IgnoreCase | regexp2.Singleline

var (
	queryTypeRe  = regexp2.MustCompile(`^\s*(SELECT|INSERT|UPDATE|DELETE)\b`, reOpts)
	fromRe       = regexp2.MustCompile(`\bFROM\s+(`+identPattern+`)`, reOpts)
	joinRe       = regexp2.MustCompile(`\bJOIN\s+(`+identPattern+`)`, reOpts)
	onRe         = regexp2.MustCompile(`\bON\b(.*?)(?=`+clauseBoundary+`|`+joinBoundary+`|\z)`, reOpts)
	whereRe      = regexp2.MustCompile(`\bWHERE\b(.*?)(?=\bGROUP\s+BY\b|\bHAVING\b|\bORDER\s+BY\b|\z)`, reOpts)
	orderByRe    = regexp2.MustCompile(`\bORDER\s+BY\b(.*)\z`, reOpts)
	percentRe    = regexp2.MustCompile(`%[^%]*%`, reOpts)
	functionRe   = regexp2.MustCompile(`\b([A-Za-z_]\w*)\(`, reOpts)
	leadIdentRe  = regexp2.MustCompile(`^\s*(`+identPattern+`)`, reOpts)
	comparisonRe = regexp2.MustCompile(`(`+identPattern+`)\s*(?:<>|!=|<=|>=|=|<|>|\bNOT\s+LIKE\b|\bLIKE\b|\bNOT\s+IN\b|\bIN\b|\bBETWEEN\b|\bIS\b)`, reOpts)
	equalityRe   = regexp2.MustCompile(`(`+identPattern+`)?\s*=\s*(`+identPattern+`)?`, reOpts)
)

// ExtractFeatures scans raw SQL text into a QueryFeatures record.
// Extraction is surface-level and total: absent clauses give empty slices.
func ExtractFeatures(sql string) QueryFeatures {
	orderBy, hasOrderBy := DetectOrderBy(sql)

	features := QueryFeatures{
		QueryType:       QueryTypeOf(sql),
		Tables:          ExtractTables(sql),
		JoinPredicates:  DetectJoins(sql),
		WhereConditions: DetectWhereConditions(sql),
		OrderByClause:   orderBy,
		OrderByColumns:  []string{},
		HasOrderBy:      hasOrderBy,
		HasWildcard:     DetectWildcards(sql),
		FunctionCalls:   DetectFunctions(sql),
	}
	if hasOrderBy {
		features.OrderByColumns = orderByColumns(orderBy)
	}

	return features
}

// QueryTypeOf classifies the statement by its leading keyword
func QueryTypeOf(sql string) QueryType {
	m := firstGroup(queryTypeRe, sql)
	switch strings.ToUpper(m) {
	case "SELECT":
		return QuerySelect
	case "INSERT":
		return QueryInsert
	case "UPDATE":
		return QueryUpdate
	case "DELETE":
		return QueryDelete
	default:
		return QueryUnknown
	}
}

// ExtractTables returns the table after the first FROM and after every JOIN,
// decoration stripped, deduplicated case-insensitively in first-seen order.
func ExtractTables(sql string) []string {
	tables := []string{}
	seen := make(map[string]bool)

	add := func(name string) {
		name = stripDecoration(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			return
		}
		seen[key] = true
		tables = append(tables, name)
	}

	if from := firstGroup(fromRe, sql); from != "" {
		add(from)
	}
	for _, name := range allGroups(joinRe, sql) {
		add(name)
	}

	return tables
}

// DetectJoins returns the raw predicate text of every ON clause in source order
func DetectJoins(sql string) []string {
	joins := []string{}
	for _, pred := range allGroups(onRe, sql) {
		if pred = trimClause(pred); pred != "" {
			joins = append(joins, pred)
		}
	}
	return joins
}

// DetectWhereConditions returns the WHERE clause split at top-level AND/OR
func DetectWhereConditions(sql string) []string {
	conditions := []string{}
	m, err := whereRe.FindStringMatch(sql)
	if err != nil || m == nil {
		return conditions
	}
	clause := trimClause(m.GroupByNumber(1).String())
	for _, part := range splitTopLevel(clause, "AND", "OR") {
		if part = strings.TrimSpace(part); part != "" {
			conditions = append(conditions, part)
		}
	}
	return conditions
}

// DetectOrderBy returns the ORDER BY content up to the end of the text
func DetectOrderBy(sql string) (string, bool) {
	m, err := orderByRe.FindStringMatch(sql)
	if err != nil || m == nil {
		return "", false
	}
	clause := trimClause(m.GroupByNumber(1).String())
	if clause == "" {
		return "", false
	}
	return clause, true
}

// DetectWildcards reports a literal * or a %...% pattern. Both cases share one flag.
func DetectWildcards(sql string) bool {
	if strings.Contains(sql, "*") {
		return true
	}
	ok, err := percentRe.MatchString(sql)
	return err == nil && ok
}

// DetectFunctions returns every identifier immediately followed by "(" in order
func DetectFunctions(sql string) []string {
	return allGroups(functionRe, sql)
}

// orderByColumns takes the leading identifier of each comma-separated segment
func orderByColumns(clause string) []string {
	columns := []string{}
	for _, segment := range strings.Split(clause, ",") {
		if ident := firstGroup(leadIdentRe, segment); ident != "" {
			columns = append(columns, ident)
		}
	}
	return columns
}

// filterColumn returns the identifier immediately preceding a comparison operator
func filterColumn(condition string) string {
	return columnName(firstGroup(comparisonRe, condition))
}

// joinColumns returns the column names flanking each "=" in a join predicate
func joinColumns(predicate string) []string {
	var columns []string
	m, err := equalityRe.FindStringMatch(predicate)
	for err == nil && m != nil {
		for _, g := range []int{1, 2} {
			if col := columnName(m.GroupByNumber(g).String()); col != "" {
				columns = append(columns, col)
			}
		}
		m, err = equalityRe.FindNextMatch(m)
	}
	return columns
}

// sortColumns reduces the ORDER BY identifiers to bare column names
func sortColumns(features QueryFeatures) []string {
	var columns []string
	for _, ident := range features.OrderByColumns {
		if col := columnName(ident); col != "" {
			columns = append(columns, col)
		}
	}
	return columns
}

// columnName keeps the part after the last "." and drops quoting
func columnName(ident string) string {
	ident = strings.TrimSpace(ident)
	if i := strings.LastIndex(ident, "."); i >= 0 {
		ident = ident[i+1:]
	}
	return stripDecoration(ident)
}

func stripDecoration(name string) string {
	return strings.TrimSpace(strings.NewReplacer("[", "", "]", "", `"`, "", "`", "").Replace(name))
}

func trimClause(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ";"))
}

// splitTopLevel cuts s at the given keywords when they stand alone outside
// parentheses and string literals
func splitTopLevel(s string, keywords ...string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			continue
		case ch == '\'' || ch == '"' || ch == '`':
			quote = ch
			continue
		case ch == '(':
			depth++
			continue
		case ch == ')':
			if depth > 0 {
				depth--
			}
			continue
		}

		if depth != 0 || (i > 0 && isIdentByte(s[i-1])) {
			continue
		}
		for _, kw := range keywords {
			end := i + len(kw)
			if end > len(s) || !strings.EqualFold(s[i:end], kw) {
				continue
			}
			if end < len(s) && isIdentByte(s[end]) {
				continue
			}
			parts = append(parts, s[start:i])
			start = end
			i = end - 1
			break
		}
	}

	return append(parts, s[start:])
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '$' || b == '#' || b == '@' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// firstGroup returns capture group 1 of the first match, or ""
func firstGroup(re *regexp2.Regexp, s string) string {
	m, err := re.FindStringMatch(s)
	if err != nil || m == nil {
		return ""
	}
	return m.GroupByNumber(1).String()
}

// allGroups returns capture group 1 of every non-overlapping match
func allGroups(re *regexp2.Regexp, s string) []string {
	out := []string{}
	m, err := re.FindStringMatch(s)
	for err == nil && m != nil {
		out = append(out, m.GroupByNumber(1).String())
		m, err = re.FindNextMatch(m)
	}
	return out
}
