package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"go-sqladvisor/pkg/analyzer"
	"go-sqladvisor/pkg/registry"
)

// Options are the resolved command line settings of the root command
type Options struct {
	Execute      string
	File         string
	RegistryFile string
	Format       string
	StorePath    string
	Demo         bool
	Import       ImportOptions
}

// Session bundles the state shared by one-shot analysis and the REPL
type Session struct {
	Config      *Config
	Workspace   *registry.Workspace
	Store       *registry.Store // nil disables persistence
	Analyzer    *analyzer.Analyzer
	Highlighter *SyntaxHighlighter
	Logger      zerolog.Logger
	Out         io.Writer
	Format      string
}

// NewSession loads the saved store first, then replaces it with the first of
// the demo cards, a MySQL import or a registry file that was requested
func NewSession(ctx context.Context, cfg *Config, opts Options, logger zerolog.Logger, out io.Writer) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	format := opts.Format
	if format == "" {
		format = cfg.OutputFormat
	}

	s := &Session{
		Config:      cfg,
		Workspace:   registry.NewWorkspace(),
		Analyzer:    analyzer.New(analyzer.WithLogger(logger)),
		Highlighter: NewSyntaxHighlighter(cfg),
		Logger:      logger,
		Out:         out,
		Format:      format,
	}
	if f, ok := out.(*os.File); !ok || !isTerminal(f) {
		// no escape codes in pipes or buffers
		s.Highlighter.SetEnabled(false)
	}

	if opts.StorePath != "" {
		s.Store = registry.NewStore(opts.StorePath, logger)
		cards, err := s.Store.LoadWorkspace()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load saved workspace")
		} else {
			s.Workspace.Replace(cards)
		}
	}

	switch {
	case opts.Demo:
		s.Workspace.Replace(registry.Demo())
	case opts.Import.Requested():
		cards, err := importMySQL(ctx, opts.Import, logger)
		if err != nil {
			return nil, err
		}
		s.Workspace.Replace(cards)
	case opts.RegistryFile != "":
		cards, err := registry.LoadFile(opts.RegistryFile)
		if err != nil {
			return nil, err
		}
		s.Workspace.Replace(cards)
	}

	return s, nil
}

// Start runs one-shot analysis for -e or -f, otherwise the interactive prompt
func Start(s *Session, opts Options) error {
	switch {
	case opts.Execute != "":
		return s.AnalyzeSQL(opts.Execute)
	case opts.File != "":
		content, err := registry.ReadSource(opts.File)
		if err != nil {
			return err
		}
		executor := NewPromptExecutor(s)
		executor.nonInteractive = true
		return executor.RunScript(bytes.NewReader(content))
	case opts.Demo && !isTerminal(os.Stdin):
		return s.AnalyzeSQL(registry.DemoQuery)
	default:
		return StartPrompt(s)
	}
}

// AnalyzeSQL analyzes one statement against the current workspace,
// renders the result and records it in the history
func (s *Session) AnalyzeSQL(sql string) error {
	reg := s.Workspace.Snapshot()
	bundle, err := s.Analyzer.Analyze(sql, reg)
	if err != nil {
		return err
	}

	if err := Render(s.Out, s.Format, bundle, s.Highlighter); err != nil {
		return err
	}

	if s.Store != nil {
		if err := s.Store.AppendHistory(registry.NewHistoryRecord(sql, reg, bundle)); err != nil {
			s.Logger.Warn().Err(err).Msg("failed to record analysis history")
		}
	}
	return nil
}

func importMySQL(ctx context.Context, opts ImportOptions, logger zerolog.Logger) ([]analyzer.IndexEntry, error) {
	config := MergeConfig(ReadMySQLConfig(opts.LoginPath, opts.ConfigFile), opts)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := registry.ConnectMySQL(ctx, BuildDSN(config, timeout))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	cards, err := registry.ImportMySQL(ctx, db, config.Database)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("no indexes found in schema %q", config.Database)
	}

	logger.Info().Int("tables", len(cards)).Str("host", config.Host).Str("database", config.Database).Msg("imported index definitions")
	return cards, nil
}

func isTerminal(f *os.File) bool {
	stat, err := f.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}
