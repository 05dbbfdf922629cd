package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-sqladvisor/pkg/analyzer"
	"go-sqladvisor/pkg/registry"
)

func newTestServer(t *testing.T, store *registry.Store, cards ...analyzer.IndexEntry) *Server {
	t.Helper()
	return New(registry.NewWorkspace(cards...), analyzer.New(), store, zerolog.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeUsesWorkspace(t *testing.T) {
	s := newTestServer(t, nil, registry.Demo()...)

	rec := do(t, s, http.MethodPost, "/analyze", `{"sql": "SELECT OrderID FROM Orders"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bundle analyzer.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	require.NotEmpty(t, bundle.Plan.Operations)
	assert.Equal(t, "Index scan on Orders", bundle.Plan.Operations[0].Description)
	assert.Empty(t, bundle.Plan.Warnings)
}

func TestAnalyzeWithRequestTables(t *testing.T) {
	s := newTestServer(t, nil, registry.Demo()...)

	body := `{"sql": "SELECT * FROM Orders", "tables": []}`
	rec := do(t, s, http.MethodPost, "/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle analyzer.Bundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	assert.Equal(t, "Table scan on Orders", bundle.Plan.Operations[0].Description)
	assert.Contains(t, bundle.Plan.Warnings, "Table Orders has no indexes defined")
}

func TestAnalyzeMalformed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/analyze", `{"sql": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "query text is empty"}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")

	rec = do(t, s, http.MethodGet, "/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTablesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/tables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/tables", `{"table": "Orders", "indexes": "PRIMARY KEY (OrderID)"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `[{"table": "Orders", "indexes": "PRIMARY KEY (OrderID)"}]`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/tables", `{"table": "Orders", "indexes": "  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "please enter at least one index definition"}`, rec.Body.String())

	rec = do(t, s, http.MethodDelete, "/tables/orders", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/tables/orders", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, nil)

	do(t, s, http.MethodPost, "/analyze", `{"sql": "SELECT * FROM Customers"}`)
	do(t, s, http.MethodPost, "/analyze", `{"sql": ""}`)

	m := s.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyses.WithLabelValues("malformed")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.recommendations.WithLabelValues("high")), 1.0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.totalCost))

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sqladvisor_analyses_total")
	assert.Contains(t, rec.Body.String(), "sqladvisor_plan_total_cost_bucket")
}

func TestHealthz(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHistoryAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")
	store := registry.NewStore(path, zerolog.Nop())
	s := newTestServer(t, store)

	rec := do(t, s, http.MethodGet, "/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	do(t, s, http.MethodPost, "/analyze", `{"sql": "SELECT a FROM first"}`)
	do(t, s, http.MethodPost, "/analyze", `{"sql": "SELECT b FROM second"}`)

	rec = do(t, s, http.MethodGet, "/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var records []registry.HistoryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "SELECT b FROM second", records[0].SQL)

	rec = do(t, s, http.MethodGet, "/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	do(t, s, http.MethodPost, "/tables", `{"table": "Orders", "indexes": "PRIMARY KEY (OrderID)"}`)
	cards, err := store.LoadWorkspace()
	require.NoError(t, err)
	assert.Equal(t, []analyzer.IndexEntry{{Table: "Orders", Definition: "PRIMARY KEY (OrderID)"}}, cards)
}

func TestHistoryDisabled(t *testing.T) {
	rec := do(t, newTestServer(t, nil), http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
