package enrich

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"capcli/internal/cap"
	"capcli/internal/record"
)

// Options configures the per-record enrichment behavior
type Options struct {
	// ValuationDates are the ISO dates to value each record at (1..2:
	// current and/or the fixed comparison date)
	ValuationDates []string
	// LookupIdentifier requests derivative details even when the input row
	// already carries a CAPID
	LookupIdentifier bool
	// Policy is the mileage rounding policy, shared with normalization
	Policy record.RoundingPolicy
}

// Enricher enriches single records. Safe for concurrent use.
type Enricher struct {
	client VendorClient
	audit  FailureLog
	logger *slog.Logger
	opts   Options
}

// NewEnricher creates an enricher. audit may be nil, in which case failures
// are only logged.
func NewEnricher(client VendorClient, audit FailureLog, logger *slog.Logger, opts Options) *Enricher {
	if audit == nil {
		audit = noopLog{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = record.RoundUp
	}
	return &Enricher{client: client, audit: audit, logger: logger, opts: opts}
}

// Enrich produces the output record for one normalized record. It never
// fails the record: every sub-call error is audited and folds to absent
// fields in the result.
func (e *Enricher) Enrich(ctx context.Context, rec record.NormalizedRecord) OutputRecord {
	// Records carrying their own valuation dates (sales flavor) override the
	// batch-level dates.
	dates := e.opts.ValuationDates
	if len(rec.ValuationDates) > 0 {
		dates = rec.ValuationDates
	}

	out := OutputRecord{
		Record:     rec,
		CAPID:      rec.CAPID,
		HasCAPID:   rec.HasCAPID,
		Valuations: make([]ValuationResult, len(dates)),
	}
	for i, date := range dates {
		out.Valuations[i] = ValuationResult{Date: date}
	}

	// Valuation calls need a CAPID. When the input row has none, the VRM
	// lookup must complete first; its failure leaves every field absent.
	if !rec.HasCAPID {
		res, err := e.client.VRMValuation(ctx, cap.VRMRequest{
			Registration: rec.Registration,
			Mileage:      rec.RoundedMileage,
		})
		if err != nil {
			e.fail(ctx, rec.Registration, "vrm lookup failed", err)
			return out
		}
		out.CAPID = res.CAPID
		out.HasCAPID = true
		out.Database = res.Database
		out.RegisteredDate = res.RegisteredDate
		identifier := res.Identifier
		out.Identifier = &identifier
		out.Monthly = &ValuationResult{
			Clean:       res.Monthly.Clean,
			Retail:      res.Monthly.Retail,
			MileageUsed: res.Monthly.Mileage,
		}

		// Lookup-flavor inputs carry no registration date; adopt the one the
		// vendor returned. Without any date the valuation calls cannot run.
		if rec.RegDate == "" {
			if res.RegisteredDate.IsZero() {
				e.audit.Recordf(rec.Registration, "no registration date available for valuation")
				return out
			}
			rec.RegDate = res.RegisteredDate.Format("2006-01-02")
		}
	}

	// The identifier lookup and the per-date valuations are independent of
	// each other, so they fan out together. Each goroutine writes a distinct
	// field of out.
	g, gctx := errgroup.WithContext(ctx)

	if e.opts.LookupIdentifier && out.Identifier == nil {
		g.Go(func() error {
			info, err := e.client.CAPIDValuation(gctx, cap.IdentifierRequest{
				CAPID:   out.CAPID,
				RegDate: rec.RegDate,
				Mileage: rec.RoundedMileage,
			})
			if err != nil {
				e.fail(gctx, rec.Registration, "identifier lookup failed", err)
				return nil
			}
			out.Identifier = &info
			return nil
		})
	}

	for i := range out.Valuations {
		i := i
		g.Go(func() error {
			out.Valuations[i] = e.fetchValuation(gctx, rec, out.CAPID, out.Valuations[i].Date)
			return nil
		})
	}

	g.Wait()
	return out
}

// fetchValuation runs the two-attempt valuation state machine for one date:
// attempt at the 1000-rounded mileage, then at most one retry at the
// 10,000-rounded mileage when the first result is missing a figure and the
// retry mileage actually differs.
func (e *Enricher) fetchValuation(ctx context.Context, rec record.NormalizedRecord, capID int, date string) ValuationResult {
	result := ValuationResult{Date: date}

	req := cap.ValuationRequest{
		CAPID:         capID,
		RegDate:       rec.RegDate,
		Mileage:       rec.RoundedMileage,
		ValuationDate: date,
	}
	val, err := e.client.UsedValueLive(ctx, req)
	if err != nil {
		e.fail(ctx, rec.Registration, "valuation failed for "+date, err)
		return result
	}
	result.Clean = val.Clean
	result.Retail = val.Retail
	result.VendorDate = val.Date
	result.MileageUsed = val.Mileage

	if val.Clean.Valid && val.Retail.Valid {
		return result
	}

	fallback := e.opts.Policy.Round(rec.Mileage, 10000)
	if fallback == req.Mileage {
		return result
	}

	req.Mileage = fallback
	retry, err := e.client.UsedValueLive(ctx, req)
	if err != nil {
		// Keep the partial first attempt
		e.fail(ctx, rec.Registration, "fallback valuation failed for "+date, err)
		return result
	}
	return ValuationResult{
		Date:         date,
		Clean:        retry.Clean,
		Retail:       retry.Retail,
		VendorDate:   retry.Date,
		MileageUsed:  retry.Mileage,
		FallbackUsed: true,
	}
}

func (e *Enricher) fail(ctx context.Context, registration, msg string, err error) {
	e.audit.Recordf(registration, "%s: %v", msg, err)
	e.logger.WarnContext(ctx, msg,
		slog.String("registration", registration),
		slog.String("error", err.Error()))
}
