package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/itrecruiter/candidatesearch/internal/asyncjob"
	"github.com/itrecruiter/candidatesearch/internal/ui"
)

func newReindexCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Trigger a full reindex of the candidate stores",
		Long: `reindex builds a brand-new lexical index and a freshly emptied
vector collection, repopulates both from the candidate source in pages, and
atomically swaps the live alias once the new index is fully populated.

The rebuild runs in the background and is tracked by task id; use --watch
to follow its progress until it finishes.`,
		Example: `  candidatesearchd reindex
  candidatesearchd reindex --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Poll and display progress until the rebuild finishes")

	return cmd
}

func runReindex(cmd *cobra.Command, watch bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.Default()
	ctx := cmd.Context()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	// The launcher's background goroutine outlives this function on purpose
	// (asyncjob.Launcher.run uses context.Background(), not ctx) so the
	// rebuild keeps running even if this CLI invocation returns before it
	// finishes. Closing the job store here would race that goroutine, so
	// components are deliberately left open for the process lifetime.

	taskID, err := comps.launcher.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start rebuild: %w", err)
	}

	if !watch {
		fmt.Fprintf(cmd.OutOrStdout(), "rebuild started, task_id=%s\n", taskID)
		return nil
	}

	poll := func() (ui.JobSnapshot, error) {
		job, err := comps.store.Get(ctx, taskID)
		if err != nil {
			return ui.JobSnapshot{}, err
		}
		return ui.JobSnapshot{
			TaskID:       job.TaskID,
			Status:       string(job.Status),
			TotalIndexed: job.TotalIndexed,
			ActiveIndex:  job.ActiveIndex,
			ErrorMessage: job.ErrorMessage,
		}, nil
	}

	noColorOut := noColor || !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor() || ui.DetectCI()
	model := ui.NewWatchModel(poll, time.Second, noColorOut)

	program := tea.NewProgram(model)
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("failed to run watch view: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), finalModel.View())

	job, err := comps.store.Get(ctx, taskID)
	if err == nil && job.Status == asyncjob.StatusFailed {
		return fmt.Errorf("rebuild failed: %s", job.ErrorMessage)
	}
	return nil
}
