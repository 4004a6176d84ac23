// capvrm resolves registration plates to CAP identifiers and valuations:
// each input row (registration + mileage) is looked up by plate, then valued
// at the current date, and written out in the fixed padded CSV layout the
// downstream import expects.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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

func main() {
	configFile := flag.String("config", "", "path to YAML config file")
	inputFile := flag.String("in", "", "input CSV (defaults to VRM_Input.csv in the input directory)")
	outputFile := flag.String("out", "", "output CSV path (defaults to CAP_VRM_Output_<timestamp>.csv in the output directory)")
	flag.Parse()

	if err := run(*configFile, *inputFile, *outputFile); err != nil {
		slog.Error("capvrm failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configFile, inputFile, outputFile string) error {
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
		cfg.Logging.FilePath = cfg.Paths.LogFilePath("capvrm", now)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogger()

	ctx := infrastructure.EnsureRunID(context.Background())

	if inputFile == "" {
		inputFile = filepath.Join(cfg.Paths.InputDir, "VRM_Input.csv")
	}
	logger.InfoContext(ctx, "loading input", slog.String("file", inputFile))

	table, err := loader.Load(inputFile)
	if err != nil {
		return err
	}

	schema, err := record.MapColumnsLookup(table.Header, logger)
	if err != nil {
		return err
	}
	normalizer := record.NewNormalizer(schema, record.RoundingPolicy(cfg.Valuation.Rounding))
	records := normalizer.NormalizeAll(table.Rows)
	logger.InfoContext(ctx, "input normalized",
		slog.Int("rows", len(table.Rows)),
		slog.Int("records", len(records)),
		slog.Int("skipped", len(table.Rows)-len(records)))

	auditLog, err := audit.Open(cfg.Paths.AuditFilePath("capvrm", now))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	client := cap.NewClient(cfg.Vendor, logger)
	enricher := enrich.NewEnricher(client, auditLog, logger, enrich.Options{
		// Lookup flavor values at the current date only. Rows that already
		// carry a CAPID skip the plate lookup, so their identifier details
		// come from the CAPID lookup instead.
		ValuationDates:   []string{now.Format("2006-01-02")},
		LookupIdentifier: true,
		Policy:           record.RoundingPolicy(cfg.Valuation.Rounding),
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
		name := fmt.Sprintf("CAP_VRM_Output_%s.csv", now.Format("20060102_150405"))
		outputFile = filepath.Join(cfg.Paths.OutputDir, name)
	}
	if err := exporter.RotateExisting(outputFile, time.Now()); err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, out := range results {
		rows = append(rows, exporter.VRMRow(out))
	}
	if err := exporter.WriteCSV(outputFile, exporter.WriteOptions{
		Headers: exporter.VRMHeaders,
		Records: rows,
	}); err != nil {
		return err
	}

	logger.InfoContext(ctx, "run complete",
		slog.String("output", outputFile),
		slog.Int("records", len(results)),
		slog.Int("failures_audited", auditLog.Count()))
	return nil
}
