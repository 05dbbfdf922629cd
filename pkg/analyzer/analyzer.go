package analyzer

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Rand is the source of the bounded random draws used for costs and statistics
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// globalRand uses the auto-seeded, goroutine-safe top-level generator
type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// Analyzer runs the extraction, plan, recommendation and statistics stages.
// It holds no per-call state and is safe for concurrent use when its Rand is.
type Analyzer struct {
	logger zerolog.Logger
	rnd    Rand
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger used for debug tracing of pipeline stages
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithRand replaces the random source, mainly for tests
func WithRand(rnd Rand) Option {
	return func(a *Analyzer) {
		if rnd != nil {
			a.rnd = rnd
		}
	}
}

// New creates an Analyzer. Without options it logs nothing and draws from
// the global generator.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger: zerolog.Nop(),
		rnd:    globalRand{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAnalyzer = New()

// Analyze runs the default analyzer
func Analyze(sql string, reg Registry) (*Bundle, error) {
	return defaultAnalyzer.Analyze(sql, reg)
}

// Analyze runs the full pipeline against one registry snapshot. It returns
// either a complete bundle or an *AnalysisError, never both.
func (a *Analyzer) Analyze(sql string, reg Registry) (bundle *Bundle, err error) {
	if err := validateInput(sql); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			bundle = nil
			err = internal(fmt.Errorf("%v", r), "analysis aborted")
		}
	}()

	features := ExtractFeatures(sql)
	a.logger.Debug().
		Str("query_type", features.QueryType.String()).
		Int("tables", len(features.Tables)).
		Int("joins", len(features.JoinPredicates)).
		Int("conditions", len(features.WhereConditions)).
		Msg("extracted query features")

	plan := SynthesizePlan(features, reg, a.rnd)
	if err := checkPlan(plan); err != nil {
		return nil, internal(err, "inconsistent execution plan")
	}
	a.logger.Debug().
		Int("operations", len(plan.Operations)).
		Int("total_cost", plan.TotalCost).
		Int("warnings", len(plan.Warnings)).
		Msg("synthesized plan")

	recs := Recommend(features, plan, reg)
	a.logger.Debug().Int("recommendations", len(recs)).Msg("generated recommendations")

	stats := SynthesizeStatistics(features, a.rnd)

	return &Bundle{
		Features:        features,
		Plan:            plan,
		Recommendations: recs,
		Statistics:      stats,
	}, nil
}

func validateInput(sql string) error {
	switch {
	case strings.TrimSpace(sql) == "":
		return malformed("query text is empty")
	case !utf8.ValidString(sql):
		return malformed("query text is not valid UTF-8")
	case strings.ContainsRune(sql, 0):
		return malformed("query text contains NUL bytes")
	}
	return nil
}
