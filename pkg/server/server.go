package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"go-sqladvisor/pkg/analyzer"
	"go-sqladvisor/pkg/registry"
)

// maxBodyBytes caps request bodies; a query plus its table cards fits easily
const maxBodyBytes = 1 << 20

// AnalyzeRequest is the body of POST /analyze. When Tables is set it is used
// as the registry for this call instead of the shared workspace.
type AnalyzeRequest struct {
	SQL    string                `json:"sql"`
	Tables []analyzer.IndexEntry `json:"tables,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server exposes the analyzer and the shared workspace over HTTP
type Server struct {
	router    *mux.Router
	workspace *registry.Workspace
	analyzer  *analyzer.Analyzer
	store     *registry.Store
	metrics   *Metrics
	logger    zerolog.Logger

	// bolt locks the file per open, so store calls are serialized
	storeMu sync.Mutex
}

// New wires the routes. store may be nil, which disables history and
// workspace persistence.
func New(ws *registry.Workspace, a *analyzer.Analyzer, store *registry.Store, logger zerolog.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		workspace: ws,
		analyzer:  a,
		store:     store,
		metrics:   NewMetrics(),
		logger:    logger,
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/tables", s.handleListTables).Methods(http.MethodGet)
	s.router.HandleFunc("/tables", s.handleAddTable).Methods(http.MethodPost)
	s.router.HandleFunc("/tables/{name}", s.handleDropTable).Methods(http.MethodDelete)
	s.router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return s
}

// Handler returns the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.metrics.ObserveFailure("bad_request")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reg := s.workspace.Snapshot()
	if req.Tables != nil {
		reg = analyzer.NewRegistry(req.Tables...)
	}

	bundle, err := s.analyzer.Analyze(req.SQL, reg)
	if err != nil {
		var aerr *analyzer.AnalysisError
		if errors.As(err, &aerr) && aerr.Kind == analyzer.MalformedInput {
			s.metrics.ObserveFailure("malformed")
			writeError(w, http.StatusBadRequest, aerr.Message)
			return
		}
		s.metrics.ObserveFailure("internal")
		s.logger.Error().Err(err).Msg("analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	s.metrics.ObserveBundle(bundle)
	if s.store != nil {
		s.storeMu.Lock()
		if err := s.store.AppendHistory(registry.NewHistoryRecord(req.SQL, reg, bundle)); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record history")
		}
		s.storeMu.Unlock()
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.workspace.Tables()
	if tables == nil {
		tables = []analyzer.IndexEntry{}
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleAddTable(w http.ResponseWriter, r *http.Request) {
	var card analyzer.IndexEntry
	if err := decodeBody(w, r, &card); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.workspace.Add(card.Table, card.Definition); err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWorkspace()
	writeJSON(w, http.StatusCreated, s.workspace.Tables())
}

func (s *Server) handleDropTable(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !s.workspace.Remove(name) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no table named %s", name))
		return
	}
	s.persistWorkspace()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	s.storeMu.Lock()
	records, err := s.store.History(limit)
	s.storeMu.Unlock()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read history")
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if records == nil {
		records = []registry.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) persistWorkspace() {
	if s.store == nil {
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if err := s.store.SaveWorkspace(s.workspace.Tables()); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist workspace")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
