package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/pkg/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const cliContextKey contextKey = "cliContext"

// CliContext holds shared CLI context
type CliContext struct {
	Config *Config
	Logger *slog.Logger
}

// logOptions carries the persistent logging flags every subcommand shares
type logOptions struct {
	level      string
	file       string
	toStderr   bool
	alsoStderr bool
	format     string
}

// NewRootCommand creates the root cobra command
func NewRootCommand() *cobra.Command {
	var (
		ctx  CliContext
		logs logOptions
	)

	rootCmd := &cobra.Command{
		Use:           "emrctl",
		Short:         "Operator CLI for the OpenEMR proxy",
		Long:          `A command line interface for checking upstream credentials and working with patient records through the proxy's OpenEMR connection.`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors (main.go handles it)
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(&logs); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			ctx.Logger = slog.Default().With("component", "cli")
			ctx.Logger.Debug("CLI started", "command", cmd.Name())

			// Load the context config. Commands resolve the proxy config and
			// build upstream clients on demand; config commands never do.
			cfg, err := loadContexts()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			ctx.Config = cfg

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey, &ctx))

			return nil
		},
	}

	rootCmd.AddCommand(newAuthCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newPatientsCommand())

	rootCmd.PersistentFlags().StringVar(&logs.level, "log-level", "warn",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logs.file, "log-file", "",
		"Log file path (if specified, logs to file instead of stderr)")
	rootCmd.PersistentFlags().BoolVar(&logs.toStderr, "logtostderr", false,
		"Log to stderr (default behavior unless --log-file specified)")
	rootCmd.PersistentFlags().BoolVar(&logs.alsoStderr, "alsologtostderr", false,
		"Log to both file and stderr")
	rootCmd.PersistentFlags().StringVar(&logs.format, "log-format", "text",
		"Log format (text, json)")

	return rootCmd
}

// setupLogging configures the process-wide logger from the persistent flags
func setupLogging(o *logOptions) error {
	// --alsologtostderr implies file logging, so pick the default path
	// when none was given
	if o.alsoStderr && o.file == "" {
		o.file = logger.GetDefaultLogFile("emrctl")
	}

	// Default to stderr logging unless a file is specified
	if o.file == "" {
		o.toStderr = true
	}

	globalLogger, err := logger.SetupLogger(logger.Config{
		Level:         logger.ParseLevel(o.level),
		LogFile:       o.file,
		LogToStderr:   o.toStderr,
		AlsoLogStderr: o.alsoStderr,
		Format:        o.format,
	})
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

// getCliContext extracts the CLI context stored by the root command's
// PersistentPreRunE, or nil when the command runs outside that chain
func getCliContext(cmd *cobra.Command) *CliContext {
	cliCtx, _ := cmd.Context().Value(cliContextKey).(*CliContext)
	return cliCtx
}
