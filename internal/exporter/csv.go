// Package exporter writes enriched records to CSV output files with the
// fixed column schema each enrichment flavor requires.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, creating parent directories as needed
func WriteCSV(fullPath string, options WriteOptions) error {
	slog.Info("writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return writer.Error()
}

// RotateExisting moves an existing file out of the way by renaming it with a
// timestamp suffix, so a fresh write never clobbers a previous output.
func RotateExisting(fullPath string, now time.Time) error {
	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return nil
	}

	ext := filepath.Ext(fullPath)
	base := fullPath[:len(fullPath)-len(ext)]
	rotated := fmt.Sprintf("%s_%s%s", base, now.Format("20060102150405"), ext)
	if err := os.Rename(fullPath, rotated); err != nil {
		return fmt.Errorf("failed to rotate existing output: %w", err)
	}
	slog.Info("existing output rotated", slog.String("renamed_to", rotated))
	return nil
}
