// capstock enriches a stock export with CAP valuations: for every vehicle it
// fetches the current valuation and, when configured, a fixed-date
// comparison valuation, then writes the enriched rows as CSV.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"capcli/internal/audit"
	"capcli/internal/cap"
	"capcli/internal/config"
	"capcli/internal/enrich"
	"capcli/internal/exporter"
	"capcli/internal/infrastructure"
	"capcli/internal/loader"
	"capcli/internal/record"
	"capcli/internal/status"
)

const inputPattern = "vehicles-autoedit*.xlsx"

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	inputFile := flag.String("in", "", "input file (defaults to newest "+inputPattern+" in the input directory)")
	outputFile := flag.String("out", "", "output CSV path (defaults to <input>_CAP_Figures.csv in the output directory)")
	flag.Parse()

	if err := run(*configFile, *inputFile, *outputFile); err != nil {
		slog.Error("capstock failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configFile, inputFile, outputFile string) error {
	// .env is optional; real deployments inject CAP_* variables directly
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Paths.EnsureDirs(); err != nil {
		return err
	}

	now := time.Now()
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = cfg.Paths.LogFilePath("capstock", now)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogger()

	// run_id is injected into every log record by the context-aware handler
	ctx := infrastructure.EnsureRunID(context.Background())

	if inputFile == "" {
		newest, err := loader.FindNewest(cfg.Paths.InputDir, inputPattern)
		if err != nil {
			return err
		}
		inputFile = newest.Path
	}
	logger.InfoContext(ctx, "loading input", slog.String("file", inputFile))

	table, err := loader.Load(inputFile)
	if err != nil {
		return err
	}

	schema, err := record.MapColumns(table.Header, logger)
	if err != nil {
		return err
	}
	normalizer := record.NewNormalizer(schema, record.RoundingPolicy(cfg.Valuation.Rounding))
	records := normalizer.NormalizeAll(table.Rows)
	logger.InfoContext(ctx, "input normalized",
		slog.Int("rows", len(table.Rows)),
		slog.Int("records", len(records)),
		slog.Int("skipped", len(table.Rows)-len(records)))

	auditLog, err := audit.Open(cfg.Paths.AuditFilePath("capstock", now))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	client := cap.NewClient(cfg.Vendor, logger)
	enricher := enrich.NewEnricher(client, auditLog, logger, enrich.Options{
		ValuationDates: cfg.ValuationDates(now),
		Policy:         record.RoundingPolicy(cfg.Valuation.Rounding),
	})
	runner := enrich.NewRunner(enricher, cfg.Batch.Concurrency, logger)

	if cfg.Status.Enabled {
		server := status.NewServer(cfg.Status, runner, logger)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	results, err := runner.Run(ctx, records)
	if err != nil {
		return err
	}

	if outputFile == "" {
		base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		outputFile = filepath.Join(cfg.Paths.OutputDir, base+"_CAP_Figures.csv")
	}
	if err := exporter.RotateExisting(outputFile, time.Now()); err != nil {
		return err
	}

	width := len(table.Header)
	rows := make([][]string, 0, len(results))
	for _, out := range results {
		rows = append(rows, exporter.StockRow(out, width, now))
	}
	if err := exporter.WriteCSV(outputFile, exporter.WriteOptions{
		Headers:   exporter.StockHeaders(table.Header),
		Records:   rows,
		BOMPrefix: true,
	}); err != nil {
		return err
	}

	logger.InfoContext(ctx, "run complete",
		slog.String("output", outputFile),
		slog.Int("records", len(results)),
		slog.Int("failures_audited", auditLog.Count()))
	return nil
}
