// Package record converts loosely-structured tabular input rows into typed,
// normalized vehicle records ready for enrichment. Column discovery is a
// documented fuzzy-matching adapter at this boundary; everything downstream
// works with the typed NormalizedRecord.
package record

// NormalizedRecord is a canonical vehicle record derived from one input row.
// Rows missing any required field never produce a NormalizedRecord; they are
// skipped as incomplete rather than treated as errors.
type NormalizedRecord struct {
	Registration string
	// Mileage is the raw mileage from the input row
	Mileage int
	// RoundedMileage is Mileage rounded at step 1000 under the configured policy
	RoundedMileage int
	// RegDate is the first-registration date in ISO YYYY-MM-DD form
	RegDate string
	// CAPID is the vendor identifier when the input supplied one
	CAPID    int
	HasCAPID bool
	// ValuationDates holds per-record valuation dates (ISO) for flavors that
	// value each row at its own dates, e.g. sale and purchase. Empty means the
	// batch-level dates apply.
	ValuationDates []string
	// Raw preserves the original cells for passthrough output columns
	Raw []string
}
