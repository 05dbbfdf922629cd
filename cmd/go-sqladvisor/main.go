package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-sqladvisor/pkg/analyzer"
	"go-sqladvisor/pkg/cli"
	"go-sqladvisor/pkg/logging"
	"go-sqladvisor/pkg/registry"
	"go-sqladvisor/pkg/server"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "go-sqladvisor [database]",
	Short: "Heuristic SQL query analyzer",
	Long: `Analyze SQL statements against your table index definitions and get a
synthetic execution plan, warnings and optimization recommendations.

Examples:
  go-sqladvisor --demo
  go-sqladvisor -e "SELECT * FROM Orders WHERE Status = 'open'" --registry tables.yaml
  go-sqladvisor -f report.sql.zst --format json
  go-sqladvisor --host db.internal -u app shop    # import indexes from MySQL`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analyzer over HTTP",
	Long: `Start an HTTP server exposing POST /analyze, the shared table workspace
under /tables, the analysis history and Prometheus metrics.

Example:
  go-sqladvisor serve --addr :8080 --demo`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "path to the .go-sqladvisorrc file")
	pf.StringP("registry", "r", "", "load table index definitions from a file (.ini, .yaml, .json, optionally .zst)")
	pf.String("store", "", "bolt file holding the saved workspace and analysis history")
	pf.Bool("no-store", false, "do not load or record anything in the store")
	pf.Bool("demo", false, "start with the demo Customers and Orders tables")
	pf.String("log-level", "", "log level (debug, info, warn, error, off)")

	f := rootCmd.Flags()
	f.StringP("execute", "e", "", "analyze this statement and quit")
	f.StringP("file", "f", "", "analyze every statement in a SQL script (optionally zstd-compressed)")
	f.String("format", "", "output format: text or json")
	f.String("host", "", "MySQL host to import index definitions from")
	f.IntP("port", "P", 0, "MySQL port")
	f.StringP("user", "u", "", "MySQL user")
	f.StringP("password", "p", "", "MySQL password")
	f.StringP("database", "D", "", "MySQL schema to import")
	f.StringP("socket", "S", "", "MySQL socket file")
	f.StringP("login-path", "g", "", "read this section from the MySQL option files")
	f.String("mycnf", "", "additional MySQL option file")
	f.Duration("import-timeout", 10*time.Second, "timeout for the MySQL index import")

	serveCmd.Flags().String("addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Bool("json-logs", false, "log one JSON object per line")

	// Bind flags to viper
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		if err := viper.BindPFlags(c.Flags()); err != nil {
			panic(fmt.Errorf("failed to bind flags: %w", err))
		}
	}
	if err := viper.BindPFlags(pf); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("GO_SQLADVISOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("go-sqladvisor\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

// loadSettings reads the rc file and makes its values the defaults beneath
// flags and environment variables
func loadSettings(jsonLogs bool) (*cli.Config, zerolog.Logger) {
	var cfg *cli.Config
	if path := viper.GetString("config"); path != "" {
		cfg = cli.LoadConfigFrom(path)
	} else {
		cfg = cli.LoadConfig()
	}

	viper.SetDefault("format", cfg.OutputFormat)
	viper.SetDefault("registry", cfg.RegistryFile)
	viper.SetDefault("store", cfg.StorePath)
	viper.SetDefault("log-level", cfg.LogLevel)

	logger := logging.New(viper.GetString("log-level"), os.Stderr, jsonLogs)
	logger.Debug().Str("rc", cfg.Path()).Msg("configuration loaded")
	return cfg, logger
}

func storePath() string {
	if viper.GetBool("no-store") {
		return ""
	}
	return viper.GetString("store")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, logger := loadSettings(false)

	opts := cli.Options{
		Execute:      viper.GetString("execute"),
		File:         viper.GetString("file"),
		RegistryFile: viper.GetString("registry"),
		Format:       strings.ToLower(viper.GetString("format")),
		StorePath:    storePath(),
		Demo:         viper.GetBool("demo"),
		Import: cli.ImportOptions{
			Host:       viper.GetString("host"),
			Port:       viper.GetInt("port"),
			User:       viper.GetString("user"),
			Password:   viper.GetString("password"),
			Database:   viper.GetString("database"),
			Socket:     viper.GetString("socket"),
			LoginPath:  viper.GetString("login-path"),
			ConfigFile: viper.GetString("mycnf"),
			Timeout:    viper.GetDuration("import-timeout"),
		},
	}
	if len(args) > 0 {
		opts.Import.Database = args[0]
	}
	switch opts.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected text or json)", opts.Format)
	}

	s, err := cli.NewSession(cmd.Context(), cfg, opts, logger, os.Stdout)
	if err != nil {
		return err
	}
	return cli.Start(s, opts)
}

func runServe(cmd *cobra.Command, args []string) error {
	_, logger := loadSettings(viper.GetBool("json-logs"))

	ws := registry.NewWorkspace()
	var store *registry.Store
	if path := storePath(); path != "" {
		store = registry.NewStore(path, logger)
		cards, err := store.LoadWorkspace()
		if err != nil {
			return err
		}
		ws.Replace(cards)
	}
	if viper.GetBool("demo") {
		ws.Replace(registry.Demo())
	} else if file := viper.GetString("registry"); file != "" {
		cards, err := registry.LoadFile(file)
		if err != nil {
			return err
		}
		ws.Replace(cards)
	}
	logger.Info().Int("tables", ws.Len()).Msg("workspace ready")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(ws, analyzer.New(analyzer.WithLogger(logger)), store, logger)
	return srv.ListenAndServe(ctx, viper.GetString("addr"))
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
