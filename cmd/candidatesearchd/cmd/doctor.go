package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/itrecruiter/candidatesearch/internal/config"
	"github.com/itrecruiter/candidatesearch/internal/ui"
)

func newDoctorCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to the lexical store, vector store, and message bus",
		Long: `doctor validates the effective configuration and probes each
external dependency the service needs: the lexical store's candidate alias,
the vector store's collection, and the RabbitMQ connection. Use --json for
machine-readable output suitable for scripting.`,
		Example: `  candidatesearchd doctor
  candidatesearchd doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func runDoctor(cmd *cobra.Command, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return &doctorError{message: fmt.Sprintf("configuration invalid: %v", err)}
	}

	logger := slog.Default()
	info := ui.HealthInfo{
		Config: map[string]string{
			"elasticsearch_url": cfg.ElasticsearchURL,
			"milvus_host":       cfg.MilvusHost,
			"rabbitmq_host":     cfg.RabbitMQHost,
			"candidate_alias":   cfg.CandidateAlias,
		},
	}

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		info.Components = append(info.Components, ui.ComponentStatus{
			Name: "wiring", Status: "fail", Detail: err.Error(),
		})
	} else {
		defer comps.closeAll()

		info.Components = append(info.Components, checkLexical(ctx, comps, cfg))
		info.Components = append(info.Components, checkVector(ctx, comps))
		info.Components = append(info.Components, checkBus(cfg))
	}

	if jsonOutput {
		renderer := ui.NewHealthRenderer(cmd.OutOrStdout(), true)
		if err := renderer.RenderJSON(info); err != nil {
			return err
		}
	} else {
		renderer := ui.NewHealthRenderer(cmd.OutOrStdout(), noColor || !ui.IsTTY(cmd.OutOrStdout()))
		if err := renderer.Render(info); err != nil {
			return err
		}
	}

	if info.AnyFailed() {
		return &doctorError{message: "one or more dependencies are unreachable"}
	}
	return nil
}

func checkLexical(ctx context.Context, comps *components, cfg *config.Config) ui.ComponentStatus {
	start := time.Now()
	indices, err := comps.lexical.ListIndicesForAlias(ctx, cfg.CandidateAlias)
	latency := time.Since(start)
	if err != nil {
		return ui.ComponentStatus{Name: "lexical", Status: "fail", Detail: err.Error()}
	}
	if len(indices) == 0 {
		return ui.ComponentStatus{
			Name: "lexical", Status: "warn",
			Detail:  fmt.Sprintf("alias %q resolves to no index yet — run reindex", cfg.CandidateAlias),
			Latency: latency.Round(time.Millisecond).String(),
		}
	}
	return ui.ComponentStatus{Name: "lexical", Status: "ok", Latency: latency.Round(time.Millisecond).String()}
}

func checkVector(ctx context.Context, comps *components) ui.ComponentStatus {
	start := time.Now()
	err := comps.vector.EnsureCollection(ctx)
	latency := time.Since(start)
	if err != nil {
		return ui.ComponentStatus{Name: "vector", Status: "fail", Detail: err.Error()}
	}
	return ui.ComponentStatus{Name: "vector", Status: "ok", Latency: latency.Round(time.Millisecond).String()}
}

func checkBus(cfg *config.Config) ui.ComponentStatus {
	start := time.Now()
	conn, err := amqp.Dial(cfg.AMQPURL())
	latency := time.Since(start)
	if err != nil {
		return ui.ComponentStatus{Name: "bus", Status: "fail", Detail: err.Error()}
	}
	_ = conn.Close()
	return ui.ComponentStatus{Name: "bus", Status: "ok", Latency: latency.Round(time.Millisecond).String()}
}

// doctorError is a custom error for doctor command failures, distinguished
// so the exit code reflects a dependency check failure rather than an
// unhandled error.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}
