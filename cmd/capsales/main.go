// capsales enriches sold-vehicle records with CAP valuations at each row's
// own sale and purchase dates, plus the derivative details behind the CAP
// identifier, and writes the enriched rows as CSV.
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
	inputFile := flag.String("in", "", "input CSV (defaults to CAP_Sales_Input.csv in the input directory)")
	outputFile := flag.String("out", "", "output CSV path (defaults to CAP_Sales_Output_<timestamp>.csv in the output directory)")
	flag.Parse()

	if err := run(*configFile, *inputFile, *outputFile); err != nil {
		slog.Error("capsales failed", slog.String("error", err.Error()))
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
		cfg.Logging.FilePath = cfg.Paths.LogFilePath("capsales", now)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogger()

	ctx := infrastructure.EnsureRunID(context.Background())

	if inputFile == "" {
		inputFile = filepath.Join(cfg.Paths.InputDir, "CAP_Sales_Input.csv")
	}
	logger.InfoContext(ctx, "loading input", slog.String("file", inputFile))

	table, err := loader.Load(inputFile)
	if err != nil {
		return err
	}

	schema, err := record.MapColumnsSales(table.Header, logger)
	if err != nil {
		return err
	}
	normalizer := record.NewNormalizer(schema, record.RoundingPolicy(cfg.Valuation.Rounding))
	records := normalizer.NormalizeAll(table.Rows)
	logger.InfoContext(ctx, "input normalized",
		slog.Int("rows", len(table.Rows)),
		slog.Int("records", len(records)),
		slog.Int("skipped", len(table.Rows)-len(records)))

	auditLog, err := audit.Open(cfg.Paths.AuditFilePath("capsales", now))
	if err != nil {
		return err
	}
	defer auditLog.Close()

	client := cap.NewClient(cfg.Vendor, logger)
	enricher := enrich.NewEnricher(client, auditLog, logger, enrich.Options{
		// Each record carries its own sale and purchase valuation dates
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
		name := fmt.Sprintf("CAP_Sales_Output_%s.csv", now.Format("20060102150405"))
		outputFile = filepath.Join(cfg.Paths.OutputDir, name)
	}
	if err := exporter.RotateExisting(outputFile, time.Now()); err != nil {
		return err
	}

	rows := make([][]string, 0, len(results))
	for _, out := range results {
		rows = append(rows, exporter.SalesRow(out))
	}
	if err := exporter.WriteCSV(outputFile, exporter.WriteOptions{
		Headers: exporter.SalesHeaders,
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
