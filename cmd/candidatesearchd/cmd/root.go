// Package cmd provides the CLI commands for candidatesearchd.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/itrecruiter/candidatesearch/internal/config"
	"github.com/itrecruiter/candidatesearch/internal/logging"
	"github.com/itrecruiter/candidatesearch/pkg/version"
)

// Debug logging flag, shared across the PersistentPreRunE/PersistentPostRunE
// hooks below.
var (
	debugMode      bool
	noColor        bool
	tunablesPath   string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the candidatesearchd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidatesearchd",
		Short: "Hybrid lexical + vector search service for candidate profiles",
		Long: `candidatesearchd runs the hybrid search API (BM25-style lexical
filtering fused with ANN semantic ranking) over indexed candidate profiles,
consumes candidate change events off RabbitMQ to keep the indexes current,
and provides operator subcommands for diagnostics and full reindex.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("candidatesearchd version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.candidatesearch/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored terminal output")
	cmd.PersistentFlags().StringVar(&tunablesPath, "config", config.DefaultTunablesPath(), "Path to the optional tunables YAML file")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLogsCmd())

	return cmd
}

// startLogging enables debug file logging if --debug was passed.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		slog.Info("debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func loadConfig() (*config.Config, error) {
	return config.Load(tunablesPath)
}
