package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/config"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/obfuscate"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/observability"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/version"
)

// stdioName is the path argument meaning stdin or stdout.
const stdioName = "-"

// app holds the root flags and the streams commands write to.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	verbose    bool
	quiet      bool
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "pyfuscate",
		Short: "Python identifier obfuscator",
		Long: `pyfuscate rewrites identifiers in Python source so that behaviour is
preserved while local names become generated, meaningless tokens.

Commands:
  obfuscate  Rename identifiers in a Python file
  transform  Rename identifiers in a wire JSON tree (no Python needed)
  dump       Print a wire JSON tree as an outline, YAML or JSON
  validate   Check a wire JSON tree against the schema
  diff       Show a line diff of two source files
  version    Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is ./.pyfuscate.yaml or $HOME/.pyfuscate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().Bool("log-json", config.DefaultLogJSON, "write logs as JSON")
	rootCmd.PersistentFlags().String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP gRPC collector address; empty disables telemetry export")

	rootCmd.AddCommand(a.obfuscateCmd())
	rootCmd.AddCommand(a.transformCmd())
	rootCmd.AddCommand(a.dumpCmd())
	rootCmd.AddCommand(a.validateCmd())
	rootCmd.AddCommand(a.diffCmd())
	rootCmd.AddCommand(a.versionCmd())

	return rootCmd
}

// session is the configuration and telemetry of one command run.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	metrics   *observability.RenameMetrics
}

func (s *session) deps() obfuscate.Deps {
	return obfuscate.Deps{
		Logger:  s.providers.Logger,
		Tracer:  s.providers.Tracer,
		Metrics: s.metrics,
	}
}

func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("telemetry shutdown", "error", err)
	}
}

// start loads configuration for cmd and initializes logging and telemetry.
func (a *app) start(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}

	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.LogOutput = a.stderr
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	metrics, err := observability.NewRenameMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())

		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return &session{cfg: cfg, providers: providers, metrics: metrics}, nil
}

// addRenameFlags registers the flags that shape renaming. Their names are
// the keys of config.FlagKeys.
func addRenameFlags(fs *pflag.FlagSet) {
	fs.Int("length", config.DefaultLength, "generated identifier length")
	fs.String("prefix", config.DefaultPrefix, "generated identifier prefix")
	fs.Int64("seed", 0, "random seed (random when unset)")
	fs.Bool("rename-builtins", config.DefaultBuiltins, "rename builtin names")
	fs.Bool("rename-imports", config.DefaultImports, "rename imported modules and aliases")
	fs.Bool("rename-functions", config.DefaultFunctions, "rename functions and methods")
	fs.Bool("rename-classes", config.DefaultClasses, "rename classes")
	fs.Bool("fold-constants", config.DefaultFoldConstants, "fold constant expressions (not implemented)")
	fs.Bool("remove-dead-code", config.DefaultRemoveDeadCode, "remove dead code (not implemented)")
	fs.Bool("obfuscate-strings", config.DefaultObfuscateStrings, "obfuscate string literals (not implemented)")
	fs.Bool("remove-docs", config.DefaultRemoveDocs, "remove docstrings (not implemented)")
}

// openInput opens path for reading; "-" or "" is the command's stdin.
func (a *app) openInput(path string) (io.ReadCloser, string, error) {
	if path == "" || path == stdioName {
		return io.NopCloser(a.stdin), "stdin", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, path, fmt.Errorf("open input: %w", err)
	}

	return f, path, nil
}

// writeOutput writes data to path; "-" or "" is the command's stdout.
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == stdioName {
		_, err := a.stdout.Write(data)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	}

	err := os.WriteFile(path, data, outputFileMode)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}

// outputFileMode is the permission of files the CLI writes.
const outputFileMode = 0o644

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}
