// Command scan ingests biodiversity occurrence records from a data directory
// and writes per-species and overall data-quality summaries for the web
// presentation layer.
//
// Usage:
//
//	scan [-input data/occurrence] [-output web/data]
//
// Flags override the OCCURRENCE_DIR and OUTPUT_DIR environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/occurrence-metrics/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/occurrence-metrics/internal/adapter/kafka"
	"github.com/couchcryptid/occurrence-metrics/internal/aggregate"
	"github.com/couchcryptid/occurrence-metrics/internal/config"
	"github.com/couchcryptid/occurrence-metrics/internal/ingest"
	"github.com/couchcryptid/occurrence-metrics/internal/observability"
	"github.com/couchcryptid/occurrence-metrics/internal/pipeline"
	"github.com/couchcryptid/occurrence-metrics/internal/report"
)

func main() {
	inputFlag := flag.String("input", "", "occurrence data directory (overrides OCCURRENCE_DIR)")
	outputFlag := flag.String("output", "", "output directory for result artifacts (overrides OUTPUT_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *inputFlag != "" {
		cfg.InputDir = *inputFlag
	}
	if *outputFlag != "" {
		cfg.OutputDir = *outputFlag
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	discovery, err := ingest.Discover(cfg.InputDir, logger, metrics)
	if err != nil {
		logger.Error("discovery failed", "error", err)
		os.Exit(1)
	}
	if discovery.Mode == ingest.ModeNone {
		logger.Info("no occurrence files found to scan", "input", cfg.InputDir)
		return
	}

	var sources []pipeline.BatchExtractor
	switch discovery.Mode {
	case ingest.ModeStreaming:
		for _, src := range discovery.Files {
			sources = append(sources, src)
		}
	case ingest.ModeWorkbook:
		sources = append(sources, discovery.Book)
	}

	p := pipeline.New(pipeline.NewClassifier(), logger, metrics, cfg.BatchSize, cfg.Workers)

	// Optional status server for scans run under an orchestrator.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	results, runErr := p.Run(ctx, sources)
	if runErr != nil {
		logger.Error("scan completed with errors", "error", runErr)
	}

	if err := emit(cfg, discovery, results, logger); err != nil {
		logger.Error("emit failed", "error", err)
		os.Exit(1)
	}

	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		if err := writer.PublishSpecies(ctx, results); err != nil {
			logger.Error("kafka publish failed", "error", err)
		} else {
			metrics.AggregatesPublished.Add(float64(len(results.Species)))
			logger.Info("published species aggregates", "count", len(results.Species), "topic", cfg.KafkaSinkTopic)
		}
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

// emit writes the result artifacts to the output directory.
func emit(cfg *config.Config, discovery *ingest.Discovery, results *aggregate.Results, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return err
	}
	if err := report.WriteSpeciesCSV(cfg.OutputDir, results.Species); err != nil {
		return err
	}
	if err := report.WriteOverallJSON(cfg.OutputDir, results.Overall); err != nil {
		return err
	}
	if discovery.Mode == ingest.ModeWorkbook {
		if err := report.WriteColumnsSeen(cfg.OutputDir, discovery.BookHdr); err != nil {
			return err
		}
	}
	logger.Info("wrote result artifacts", "dir", cfg.OutputDir, "species", len(results.Species))
	return nil
}
