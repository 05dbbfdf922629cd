package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTypeOf(t *testing.T) {
	tests := []struct {
		sql      string
		expected QueryType
	}{
		{"SELECT * FROM t", QuerySelect},
		{"  select id from t", QuerySelect},
		{"\n\tInsert INTO t VALUES (1)", QueryInsert},
		{"update t set a = 1", QueryUpdate},
		{"DELETE FROM t WHERE id = 1", QueryDelete},
		{"WITH x AS (SELECT 1) SELECT * FROM x", QueryUnknown},
		{"selection", QueryUnknown},
		{"", QueryUnknown},
	}

	for _, tt := range tests {
		if got := QueryTypeOf(tt.sql); got != tt.expected {
			t.Errorf("QueryTypeOf(%q) = %v, expected %v", tt.sql, got, tt.expected)
		}
	}
}

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{"single", "SELECT * FROM Customers", []string{"Customers"}},
		{"alias", "SELECT c.id FROM Customers c", []string{"Customers"}},
		{"joins", "SELECT * FROM a INNER JOIN b ON a.id = b.id LEFT JOIN c ON b.id = c.id", []string{"a", "b", "c"}},
		{"dedup keeps first spelling", "SELECT * FROM Orders o JOIN orders p ON o.id = p.parent", []string{"Orders"}},
		{"decoration stripped", "SELECT * FROM [dbo].[Orders] JOIN `Items` ON 1 = 1", []string{"dbo.Orders", "Items"}},
		{"only first from", "SELECT * FROM a WHERE id IN (SELECT id FROM b)", []string{"a"}},
		{"none", "SELECT 1", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTables(tt.sql))
		})
	}
}

func TestDetectJoins(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{"none", "SELECT * FROM a", []string{}},
		{"ends at where", "SELECT * FROM a JOIN b ON a.id = b.aid WHERE a.x = 1", []string{"a.id = b.aid"}},
		{"ends at next join", "SELECT * FROM a JOIN b ON a.id = b.aid LEFT JOIN c ON b.id = c.bid ORDER BY a.id", []string{"a.id = b.aid", "b.id = c.bid"}},
		{"end of text", "select * from a join b on a.id = b.id;", []string{"a.id = b.id"}},
		{"multiline", "SELECT *\nFROM a\nJOIN b\n  ON a.id = b.id\n AND a.k = b.k\nGROUP BY a.id", []string{"a.id = b.id\n AND a.k = b.k"}},
		{"left function", "SELECT * FROM a JOIN b ON LEFT(a.code, 2) = b.prefix WHERE a.x = 1", []string{"LEFT(a.code, 2) = b.prefix"}},
		{"right function", "SELECT * FROM a JOIN b ON a.id = b.id AND RIGHT(a.c, 1) = 'x'", []string{"a.id = b.id AND RIGHT(a.c, 1) = 'x'"}},
		{"outer join phrase", "SELECT * FROM a JOIN b ON a.id = b.id LEFT OUTER JOIN c ON LEFT(c.k, 3) = b.k", []string{"a.id = b.id", "LEFT(c.k, 3) = b.k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectJoins(tt.sql))
		})
	}
}

func TestDetectWhereConditions(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		expected []string
	}{
		{"absent", "SELECT * FROM t ORDER BY id", []string{}},
		{"single", "SELECT * FROM t WHERE id = 1", []string{"id = 1"}},
		{"and or", "SELECT * FROM t WHERE a = 1 AND b > 2 or c IS NULL ORDER BY a", []string{"a = 1", "b > 2", "c IS NULL"}},
		{"parens kept", "SELECT * FROM t WHERE a = 1 AND (b = 2 OR c = 3)", []string{"a = 1", "(b = 2 OR c = 3)"}},
		{"quoted keyword", "SELECT * FROM t WHERE name = 'salt and pepper' AND brand = 'x'", []string{"name = 'salt and pepper'", "brand = 'x'"}},
		{"group by ends", "SELECT a FROM t WHERE origin = 'x' GROUP BY a HAVING COUNT(*) > 1", []string{"origin = 'x'"}},
		{"trailing semicolon", "DELETE FROM t WHERE id = 4;", []string{"id = 4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectWhereConditions(tt.sql))
		})
	}
}

func TestDetectOrderBy(t *testing.T) {
	clause, ok := DetectOrderBy("SELECT * FROM t ORDER BY o.OrderDate DESC, id;")
	assert.True(t, ok)
	assert.Equal(t, "o.OrderDate DESC, id", clause)

	_, ok = DetectOrderBy("SELECT * FROM t")
	assert.False(t, ok)

	features := ExtractFeatures("SELECT * FROM t ORDER BY o.OrderDate DESC, [name] ASC, 3")
	assert.Equal(t, []string{"o.OrderDate", "[name]"}, features.OrderByColumns)
	assert.Equal(t, []string{"OrderDate", "name"}, sortColumns(features))
}

func TestDetectWildcards(t *testing.T) {
	tests := []struct {
		sql      string
		expected bool
	}{
		{"SELECT * FROM t", true},
		{"SELECT COUNT(*) FROM t", true},
		{"SELECT id FROM t WHERE name LIKE '%abc%'", true},
		{"SELECT id FROM t WHERE name LIKE 'abc%'", false},
		{"SELECT id FROM t", false},
	}

	for _, tt := range tests {
		if got := DetectWildcards(tt.sql); got != tt.expected {
			t.Errorf("DetectWildcards(%q) = %v, expected %v", tt.sql, got, tt.expected)
		}
	}
}

func TestDetectFunctions(t *testing.T) {
	got := DetectFunctions("SELECT UPPER(name), COUNT(*), upper (x) FROM t WHERE LOWER(email) = 'a' AND COUNT(id) > 1")
	assert.Equal(t, []string{"UPPER", "COUNT", "LOWER", "COUNT"}, got)
	assert.Empty(t, DetectFunctions("SELECT id FROM t"))
}

func TestFilterColumn(t *testing.T) {
	tests := []struct {
		condition string
		expected  string
	}{
		{"T1.x = 5", "x"},
		{"c.LastName LIKE 'Smith%'", "LastName"},
		{"[o].[Status] <> 'open'", "Status"},
		{"total >= 10", "total"},
		{"id IN (1, 2)", "id"},
		{"deleted_at IS NULL", "deleted_at"},
		{"name NOT LIKE 'x%'", "name"},
		{"5 = 5", ""},
		{"EXISTS (SELECT 1)", ""},
	}

	for _, tt := range tests {
		if got := filterColumn(tt.condition); got != tt.expected {
			t.Errorf("filterColumn(%q) = %q, expected %q", tt.condition, got, tt.expected)
		}
	}
}

func TestJoinColumns(t *testing.T) {
	assert.Equal(t, []string{"id", "id"}, joinColumns("T1.id = T2.id"))
	assert.Equal(t, []string{"CustomerID", "CustomerID", "Region", "Region"},
		joinColumns("c.CustomerID=o.CustomerID AND c.Region = o.Region"))
	assert.Equal(t, []string{"status"}, joinColumns("o.status = 'open'"))
	assert.Empty(t, joinColumns("1 = 1"))
}

func TestExtractFeaturesMissingWhere(t *testing.T) {
	queries := []string{
		"SELECT * FROM Customers",
		"SELECT a FROM t JOIN u ON t.id = u.id ORDER BY a",
		"INSERT INTO t (id, name) VALUES (1, 'x')",
		"nothing to see here",
	}

	for _, q := range queries {
		assert.Empty(t, ExtractFeatures(q).WhereConditions, q)
	}
}

func TestExtractFeaturesIsDeterministic(t *testing.T) {
	sql := "SELECT a FROM T1 INNER JOIN T2 ON T1.id = T2.id WHERE T1.x = 5 ORDER BY T2.y"
	first := ExtractFeatures(sql)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ExtractFeatures(sql))
	}

	assert.Equal(t, QuerySelect, first.QueryType)
	assert.Equal(t, []string{"T1", "T2"}, first.Tables)
	assert.Equal(t, []string{"T1.id = T2.id"}, first.JoinPredicates)
	assert.Equal(t, []string{"T1.x = 5"}, first.WhereConditions)
	assert.Equal(t, []string{"T2.y"}, first.OrderByColumns)
	assert.True(t, first.HasOrderBy)
	assert.False(t, first.HasWildcard)
	assert.Empty(t, first.FunctionCalls)
}
