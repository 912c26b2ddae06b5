package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/revise/internal/config"
	"github.com/roach88/revise/internal/i18n"
	"github.com/roach88/revise/internal/schema"
	"github.com/roach88/revise/internal/store"
)

// Error codes for CLI output.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeConfig       = "E002" // Config file unreadable or invalid
	ErrCodeStore        = "E003" // Database open/read/write failure
	ErrCodeSchema       = "E004" // CUE kinds failed to load
	ErrCodeUnknownKind  = "E005" // Kind not declared
	ErrCodeInvalidInput = "E006" // Bad --set or flag value
	ErrCodeRecordError  = "E007" // Escalated persistence failure
	ErrCodeExists       = "E008" // Record already exists
)

// env is everything a command needs after config is loaded.
type env struct {
	cfg       config.Config
	logger    *slog.Logger
	kinds     *schema.Registry
	store     *store.Store
	messages  *i18n.Printer
	formatter *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// openEnv loads config, kinds and the store. Failures are reported
// through the formatter and returned as command errors.
func openEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath, ".")
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, "failed to load config", err)
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, commandError(formatter, ErrCodeConfig, "failed to configure logging", err)
	}

	kinds, err := schema.LoadDir(cfg.SchemaDir)
	if err != nil {
		return nil, commandError(formatter, ErrCodeSchema, fmt.Sprintf("failed to load kinds from %s", cfg.SchemaDir), err)
	}
	formatter.VerboseLog("Loaded %d kind(s) from %s", len(kinds.Kinds()), cfg.SchemaDir)

	var storeOpts []store.Option
	if opts.logIDs != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.logIDs))
	}
	if opts.now != nil {
		storeOpts = append(storeOpts, store.WithClock(opts.now))
	}
	s, err := store.Open(cfg.DatabasePath, storeOpts...)
	if err != nil {
		return nil, commandError(formatter, ErrCodeStore, "failed to open database", err)
	}

	return &env{
		cfg:       cfg,
		logger:    logger,
		kinds:     kinds,
		store:     s,
		messages:  i18n.For(cfg.Locale),
		formatter: formatter,
	}, nil
}

func (e *env) Close() {
	e.store.Close()
}

// kind looks up a declared kind or reports a command error.
func (e *env) kind(name string) (*schema.Kind, error) {
	k, ok := e.kinds.Lookup(name)
	if !ok {
		return nil, commandError(e.formatter, ErrCodeUnknownKind, fmt.Sprintf("unknown kind %q", name), nil)
	}
	return k, nil
}

// commandError outputs an error and returns an exit-code-2 error.
func commandError(formatter *OutputFormatter, code, message string, err error) error {
	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	_ = formatter.Error(code, detail, nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), err)
}
