// Package enrich implements the valuation-enrichment pipeline: a per-record
// orchestrator issuing vendor calls with a mileage-rounding fallback, and a
// batch runner driving it under a bounded concurrency gate. Individual
// sub-lookups degrade to absent values; a record is never failed outright.
package enrich

import (
	"context"
	"time"

	"capcli/internal/cap"
	"capcli/internal/record"
)

// VendorClient is the subset of the CAP client the orchestrator needs.
// Implemented by cap.Client; tests substitute stubs.
type VendorClient interface {
	UsedValueLive(ctx context.Context, req cap.ValuationRequest) (cap.Valuation, error)
	CAPIDValuation(ctx context.Context, req cap.IdentifierRequest) (cap.IdentifierInfo, error)
	VRMValuation(ctx context.Context, req cap.VRMRequest) (cap.VRMResult, error)
}

// FailureLog records per-row vendor failures for later inspection.
// Implemented by audit.Logger.
type FailureLog interface {
	Recordf(registration, format string, args ...any)
}

// ValuationResult holds the outcome of one requested valuation date. Clean
// and Retail stay absent when the vendor had no figure or the call failed.
type ValuationResult struct {
	// Date is the requested valuation date (ISO)
	Date   string
	Clean  cap.Amount
	Retail cap.Amount
	// MileageUsed is the mileage of the attempt that produced this result,
	// which differs from the record's rounded mileage after a fallback retry
	MileageUsed int
	// VendorDate is the valuation timestamp the vendor reported
	VendorDate time.Time
	// FallbackUsed marks results taken from the 10,000-mile retry
	FallbackUsed bool
}

// OutputRecord is one enriched row. Each OutputRecord is constructed and
// owned by the Enrich call that produced it.
type OutputRecord struct {
	Record record.NormalizedRecord

	// CAPID after resolution; HasCAPID is false when the input lacked one
	// and the lookup failed
	CAPID    int
	HasCAPID bool

	// Identifier is set only when an identifier lookup ran and succeeded
	Identifier *cap.IdentifierInfo
	// Database and RegisteredDate come from a VRM lookup when one ran
	Database       string
	RegisteredDate time.Time

	// Monthly is the monthly valuation a VRM lookup returns alongside the
	// identifier; nil when no VRM lookup ran
	Monthly *ValuationResult

	// Valuations holds one result per requested valuation date, in the
	// requested order
	Valuations []ValuationResult
}

// noopLog discards failures; used when no audit log is configured
type noopLog struct{}

func (noopLog) Recordf(string, string, ...any) {}
