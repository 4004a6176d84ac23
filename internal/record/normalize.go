package record

import (
	"strconv"
	"strings"
	"time"
)

// Accepted input date layouts
const (
	layoutSlash = "02/01/2006"
	layoutISO   = "2006-01-02"
)

// excelEpoch is the zero day of Excel serial dates. Excel treats 1900 as a
// leap year, which this epoch absorbs for post-1900 dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// ParseInputDate parses a registration date in DD/MM/YYYY or YYYY-MM-DD form,
// or as an Excel serial number, and returns it in ISO form.
func ParseInputDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range []string{layoutSlash, layoutISO} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(layoutISO), true
		}
	}
	if serial, err := strconv.Atoi(s); err == nil && serial > 0 {
		return excelEpoch.AddDate(0, 0, serial).Format(layoutISO), true
	}
	return "", false
}

// parseMileage parses a mileage cell, tolerating thousands separators and
// spreadsheet-style decimal renderings of whole numbers.
func parseMileage(s string) (int, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int(f), true
}

// parseCAPID parses an optional vendor identifier cell
func parseCAPID(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int(f), true
}

// Normalizer converts raw rows into NormalizedRecords under a schema and
// rounding policy.
type Normalizer struct {
	schema Schema
	policy RoundingPolicy
}

// NewNormalizer creates a normalizer for the given schema and policy
func NewNormalizer(schema Schema, policy RoundingPolicy) *Normalizer {
	return &Normalizer{schema: schema, policy: policy}
}

// Normalize converts one raw row. ok is false when any required field is
// missing or unparseable; such rows are skipped, not reported as failures.
func (n *Normalizer) Normalize(row []string) (NormalizedRecord, bool) {
	registration := cell(row, n.schema.Registration)
	if registration == "" {
		return NormalizedRecord{}, false
	}

	mileage, ok := parseMileage(cell(row, n.schema.Mileage))
	if !ok {
		return NormalizedRecord{}, false
	}

	// Lookup-flavor schemas have no registration date column; the date is
	// resolved from the vendor lookup instead.
	var regDate string
	if n.schema.RegDate >= 0 {
		var ok bool
		regDate, ok = ParseInputDate(cell(row, n.schema.RegDate))
		if !ok {
			return NormalizedRecord{}, false
		}
	}

	rec := NormalizedRecord{
		Registration:   registration,
		Mileage:        mileage,
		RoundedMileage: n.policy.Round(mileage, 1000),
		RegDate:        regDate,
		Raw:            row,
	}

	// Sales-flavor schemas carry per-row valuation dates; both are required
	if n.schema.SaleDate >= 0 {
		saleDate, ok := ParseInputDate(cell(row, n.schema.SaleDate))
		if !ok {
			return NormalizedRecord{}, false
		}
		purchaseDate, ok := ParseInputDate(cell(row, n.schema.PurchaseDate))
		if !ok {
			return NormalizedRecord{}, false
		}
		rec.ValuationDates = []string{saleDate, purchaseDate}
	}

	if id, ok := parseCAPID(cell(row, n.schema.CAPID)); ok {
		rec.CAPID = id
		rec.HasCAPID = true
	}
	return rec, true
}

// NormalizeAll converts all rows, dropping incomplete ones. The returned
// records keep input order.
func (n *Normalizer) NormalizeAll(rows [][]string) []NormalizedRecord {
	records := make([]NormalizedRecord, 0, len(rows))
	for _, row := range rows {
		if rec, ok := n.Normalize(row); ok {
			records = append(records, rec)
		}
	}
	return records
}
