package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeSelectStar(t *testing.T) {
	bundle, err := Analyze("SELECT * FROM Customers", Registry{})
	require.NoError(t, err)
	require.NotNil(t, bundle)

	assert.Equal(t, []string{"Customers"}, bundle.Features.Tables)
	assert.True(t, bundle.Features.HasWildcard)
	require.Len(t, bundle.Plan.Operations, 1)
	assert.Equal(t, OpScan, bundle.Plan.Operations[0].Type)
	assert.Contains(t, bundle.Plan.Warnings, "Table Customers has no indexes defined")
	assert.Contains(t, bundle.Plan.Warnings, WildcardWarning)

	var high, wildcard bool
	for _, r := range bundle.Recommendations {
		if r.Type == RecommendIndex && r.Severity == SeverityHigh && strings.Contains(r.Description, "Customers") {
			high = true
		}
		if r.Type == RecommendQuery && strings.Contains(r.Description, "wildcards") {
			wildcard = true
		}
	}
	assert.True(t, high, "missing high severity index recommendation")
	assert.True(t, wildcard, "missing wildcard recommendation")
}

func TestAnalyzeExamplePlan(t *testing.T) {
	a := New(WithRand(rand.New(rand.NewPCG(1, 2))))
	reg := NewRegistry(IndexEntry{Table: "T1", Definition: "index on x"})

	bundle, err := a.Analyze("SELECT a FROM T1 INNER JOIN T2 ON T1.id = T2.id WHERE T1.x = 5 ORDER BY T2.y", reg)
	require.NoError(t, err)

	var types []OperationType
	for _, op := range bundle.Plan.Operations {
		types = append(types, op.Type)
	}
	assert.Equal(t, []OperationType{OpScan, OpScan, OpJoin, OpFilter, OpSort}, types)
	assert.Contains(t, bundle.Plan.Warnings, "Join column id is not covered by an index")
	assert.Contains(t, bundle.Plan.Warnings, "Sort column y is not covered by an index")
	assert.NotContains(t, bundle.Plan.Warnings, "Filter column x is not covered by an index")
}

func TestAnalyzeMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"empty", ""},
		{"blank", "  \n\t "},
		{"invalid utf8", "SELECT \xff FROM t"},
		{"nul byte", "SELECT 1\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle, err := Analyze(tt.sql, Registry{})
			assert.Nil(t, bundle)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedInput))
			assert.False(t, errors.Is(err, ErrInternalExtraction))

			var aerr *AnalysisError
			require.True(t, errors.As(err, &aerr))
			assert.Equal(t, MalformedInput, aerr.Kind)
		})
	}
}

// panicRand simulates a broken random source
type panicRand struct{}

func (panicRand) IntN(int) int     { panic("source exhausted") }
func (panicRand) Float64() float64 { panic("source exhausted") }

func TestAnalyzeInternalFailureIsAtomic(t *testing.T) {
	bundle, err := New(WithRand(panicRand{})).Analyze("SELECT * FROM t", Registry{})

	assert.Nil(t, bundle)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternalExtraction))
	assert.Contains(t, err.Error(), "source exhausted")
}

func TestAnalyzeNeverFailsOnAbsentClauses(t *testing.T) {
	for _, sql := range []string{"x", "SELECT", "FROM", "WHERE", "ORDER BY", "JOIN ON", "%%", "((("} {
		bundle, err := Analyze(sql, Registry{})
		require.NoError(t, err, sql)
		require.NotNil(t, bundle, sql)
	}
}

func TestAnalyzeLogsStages(t *testing.T) {
	var buf bytes.Buffer
	a := New(WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

	_, err := a.Analyze("SELECT id FROM t WHERE id = 1", Registry{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "extracted query features")
	assert.Contains(t, out, "synthesized plan")
	assert.Contains(t, out, `"recommendations":`)
}

func TestAnalyzeConcurrent(t *testing.T) {
	reg := NewRegistry(IndexEntry{Table: "Orders", Definition: "PRIMARY KEY (OrderID)"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bundle, err := Analyze("SELECT OrderID FROM Orders WHERE Status = 'open'", reg)
			assert.NoError(t, err)
			assert.Len(t, bundle.Plan.Operations, 2)
		}()
	}
	wg.Wait()
}

func TestBundleJSON(t *testing.T) {
	bundle, err := New(WithRand(fixedRand{})).Analyze("SELECT * FROM Customers", Registry{})
	require.NoError(t, err)

	data, err := json.Marshal(bundle)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	features := decoded["features"].(map[string]any)
	assert.Equal(t, "SELECT", features["queryType"])

	plan := decoded["plan"].(map[string]any)
	assert.EqualValues(t, 30, plan["totalCost"])
	ops := plan["operations"].([]any)
	assert.Equal(t, "SCAN", ops[0].(map[string]any)["type"])

	recs := decoded["recommendations"].([]any)
	first := recs[0].(map[string]any)
	assert.Equal(t, "index", first["type"])
	assert.Equal(t, "high", first["severity"])
	assert.NotEmpty(t, first["code"])

	stats := decoded["statistics"].(map[string]any)
	assert.Contains(t, stats, "memoryGrant")
	assert.Contains(t, stats, "logicalReads")
}
