package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/itrecruiter/candidatesearch/internal/logging"
	"github.com/itrecruiter/candidatesearch/internal/ui"
)

func newLogsCmd() *cobra.Command {
	var (
		lines   int
		follow  bool
		level   string
		pattern string
		logFile string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View or follow the debug log file",
		Long: `logs reads candidatesearchd's debug log file (see --debug on the
root command), optionally filtering by level or a regular expression. With
--follow it keeps printing new entries as they are written, like tail -f.`,
		Example: `  candidatesearchd logs
  candidatesearchd logs --follow --level=error
  candidatesearchd logs --pattern="rebuild failed" --lines=200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, lines, follow, level, pattern, logFile)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow the log file for new entries")
	cmd.Flags().StringVarP(&level, "level", "l", "", "Filter by level (debug, info, warn, error)")
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Filter by regular expression")
	cmd.Flags().StringVar(&logFile, "file", "", "Explicit log file path (defaults to ~/.candidatesearch/logs/server.log)")

	return cmd
}

func runLogs(cmd *cobra.Command, lines int, follow bool, level, pattern, logFile string) error {
	path, err := logging.FindLogFile(logFile)
	if err != nil {
		return err
	}

	var compiled *regexp.Regexp
	if pattern != "" {
		compiled, err = regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   level,
		Pattern: compiled,
		NoColor: noColor || !ui.IsTTY(cmd.OutOrStdout()),
	}, cmd.OutOrStdout())

	entries, err := viewer.Tail(path, lines)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	viewer.Print(entries)

	if !follow {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	entryCh := make(chan logging.LogEntry, 64)
	go func() {
		for entry := range entryCh {
			viewer.Print([]logging.LogEntry{entry})
		}
	}()

	err = viewer.Follow(ctx, path, entryCh)
	close(entryCh)
	if err != nil {
		return fmt.Errorf("failed to follow log file: %w", err)
	}
	return nil
}
