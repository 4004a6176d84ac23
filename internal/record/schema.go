package record

import (
	"fmt"
	"log/slog"
	"strings"
)

// Schema maps logical fields to column indexes in an input table. An index of
// -1 means the column is not present.
type Schema struct {
	Registration int
	Mileage      int
	RegDate      int
	CAPID        int
	SaleDate     int
	PurchaseDate int
}

// Column matching is case-insensitive and substring-based because the input
// files come from several systems with drifting headers. Matching is
// deterministic: first candidate in column order wins, and any further
// candidates are logged as a warning.

func isRegDateColumn(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "dfr" {
		return true
	}
	return strings.Contains(n, "date") && strings.Contains(n, "regist")
}

func isRegistrationColumn(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "vrm" {
		return true
	}
	// A date column such as DateFirstRegistered also contains "reg"
	return strings.Contains(n, "reg") && !strings.Contains(n, "date")
}

func isMileageColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "mile")
}

func isCAPIDColumn(name string) bool {
	return strings.Contains(strings.ToLower(name), "capid")
}

func isSaleDateColumn(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "sale") && strings.Contains(n, "date")
}

func isPurchaseDateColumn(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "purchase") && strings.Contains(n, "date")
}

// schemaField describes one logical column to discover
type schemaField struct {
	name    string
	match   func(string) bool
	target  *int
	require bool
}

// MapColumns discovers the schema from a header row. Registration, mileage
// and registration date are required; the CAPID column is optional.
func MapColumns(header []string, logger *slog.Logger) (Schema, error) {
	schema := newSchema()
	return mapColumns(header, logger, schema, []schemaField{
		{"registration date", isRegDateColumn, &schema.RegDate, true},
		{"registration", isRegistrationColumn, &schema.Registration, true},
		{"mileage", isMileageColumn, &schema.Mileage, true},
		{"capid", isCAPIDColumn, &schema.CAPID, false},
	})
}

// MapColumnsLookup discovers the schema for lookup-flavor inputs. Only a
// registration and a mileage are required; the registration date column is
// mapped when present (some lookup inputs carry a DFR column) and otherwise
// resolved later from the vendor lookup.
func MapColumnsLookup(header []string, logger *slog.Logger) (Schema, error) {
	schema := newSchema()
	return mapColumns(header, logger, schema, []schemaField{
		{"registration date", isRegDateColumn, &schema.RegDate, false},
		{"registration", isRegistrationColumn, &schema.Registration, true},
		{"mileage", isMileageColumn, &schema.Mileage, true},
		{"capid", isCAPIDColumn, &schema.CAPID, false},
	})
}

// MapColumnsSales discovers the schema for sales-flavor inputs, which value
// each row at its own sale and purchase dates.
func MapColumnsSales(header []string, logger *slog.Logger) (Schema, error) {
	schema := newSchema()
	return mapColumns(header, logger, schema, []schemaField{
		{"registration date", isRegDateColumn, &schema.RegDate, true},
		{"sale date", isSaleDateColumn, &schema.SaleDate, true},
		{"purchase date", isPurchaseDateColumn, &schema.PurchaseDate, true},
		{"registration", isRegistrationColumn, &schema.Registration, true},
		{"mileage", isMileageColumn, &schema.Mileage, true},
		{"capid", isCAPIDColumn, &schema.CAPID, false},
	})
}

func newSchema() *Schema {
	return &Schema{Registration: -1, Mileage: -1, RegDate: -1, CAPID: -1, SaleDate: -1, PurchaseDate: -1}
}

func mapColumns(header []string, logger *slog.Logger, schema *Schema, fields []schemaField) (Schema, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, f := range fields {
		var candidates []string
		for i, name := range header {
			if !f.match(name) {
				continue
			}
			if *f.target == -1 {
				*f.target = i
			}
			candidates = append(candidates, name)
		}
		if len(candidates) > 1 {
			logger.Warn("multiple candidate columns, using first in column order",
				slog.String("field", f.name),
				slog.Any("candidates", candidates))
		}
		if f.require && *f.target == -1 {
			return Schema{}, fmt.Errorf("no %s column found in header", f.name)
		}
	}

	return *schema, nil
}

// cell returns the trimmed value at index i, or "" when the row is short or
// the index is -1.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
