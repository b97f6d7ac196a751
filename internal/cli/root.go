package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/relalg/internal/config"
	"github.com/roach88/relalg/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text" | "table"
	ConfigFile string

	// Config is the resolved configuration, set before any command runs.
	// Commands built without a root (tests) fall back to defaults.
	Config *config.Config

	// Logger receives engine and store diagnostics on stderr.
	Logger *slog.Logger

	// RunIDs overrides the evaluator's run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = config.ValidFormats

// NewRootCommand creates the root command for the relalg CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "relalg",
		Short: "relalg - relational algebra workbench",
		Long: `Evaluate, render and check relational algebra expressions.

Relations are declared in CUE, loaded from CSV, JSON or Avro files, or
read from a SQLite store. Expressions are written in YAML.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag before loading anything else
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigFile, cmd.Flags())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			opts.Format = cfg.Format
			opts.Verbose = cfg.Verbose
			opts.Logger = newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			return nil
		},
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", config.DefaultFormat, "output format (json|text|table)")
	flags.StringVar(&opts.ConfigFile, "config", "", "config file (default relalg.yaml)")
	flags.String("render-mode", config.DefaultRenderMode, "expression notation (unicode|ascii|latex|html)")
	flags.String("database", config.DefaultDatabase, "path to SQLite store")
	flags.String("schema", "", "CUE file or directory declaring relations")
	flags.String("data-dir", "", "base directory for relative data files")
	flags.Int("regex-cache-size", config.DefaultRegexCacheSize, "compiled pattern cache size (0 disables)")

	// Add subcommands
	cmd.AddCommand(NewEvalCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewGraphCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// settings returns the resolved configuration, or defaults shaped by the
// flag fields when the command ran without the root.
func (o *RootOptions) settings() *config.Config {
	if o.Config != nil {
		return o.Config
	}
	return &config.Config{
		Format:         o.Format,
		RenderMode:     config.DefaultRenderMode,
		Database:       config.DefaultDatabase,
		RegexCacheSize: config.DefaultRegexCacheSize,
		Verbose:        o.Verbose,
	}
}

// logger returns the configured logger, discarding output when unset.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// formatter returns an OutputFormatter writing to the command's streams.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// newLogger builds the stderr logger: debug when verbose, warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
