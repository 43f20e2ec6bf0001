package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/itrecruiter/candidatesearch/internal/httpapi"
	"github.com/itrecruiter/candidatesearch/internal/ingest"
	"github.com/itrecruiter/candidatesearch/internal/profiling"
)

func newServeCmd() *cobra.Command {
	var httpAddr string
	var noBus bool
	var cpuProfile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API and the RabbitMQ ingest consumer",
		Long: `serve starts the hybrid search HTTP API (GET /health, POST
/v1/search/, POST /v1/search/index/rebuild) and, unless --no-bus is set,
the ingest consumer that applies candidate.created/updated/deleted events
to the lexical and vector stores as they arrive.

Both run until SIGINT/SIGTERM, at which point the HTTP server drains
in-flight requests and the consumer finishes its current deliveries before
exiting.`,
		Example: `  candidatesearchd serve
  candidatesearchd serve --http-addr :9090
  candidatesearchd serve --no-bus   # API only, no ingest consumer`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, httpAddr, noBus, cpuProfile)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (overrides HTTP_ADDR/config)")
	cmd.Flags().BoolVar(&noBus, "no-bus", false, "Run the HTTP API only, without the ingest consumer")
	cmd.Flags().StringVar(&cpuProfile, "cpu-profile", "", "Write a CPU profile to this path for the life of the process")

	return cmd
}

func runServe(cmd *cobra.Command, httpAddr string, noBus bool, cpuProfile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}

	logger := slog.Default()

	if cpuProfile != "" {
		stopCPUProfile, err := profiling.NewProfiler().StartCPU(cpuProfile)
		if err != nil {
			return err
		}
		defer stopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	comps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.closeAll()

	var consumer *ingest.Consumer
	var bus httpapi.BusHealthChecker
	if !noBus {
		consumer = buildConsumer(cfg, comps.indexer, logger)
		bus = consumer
	}

	srv := httpapi.New(httpapi.Config{LexicalAlias: cfg.CandidateAlias},
		comps.engine, comps.launcher, comps.lexical, comps.vector, bus, logger)
	srv.SetMetrics(comps.metrics)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if consumer != nil {
		go func() {
			logger.Info("ingest consumer starting", slog.String("exchange", cfg.CandidateExchangeName))
			if err := consumer.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("service error, shutting down", slog.String("error", err.Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			logger.Error("ingest consumer close error", slog.String("error", err.Error()))
		}
	}

	return nil
}
