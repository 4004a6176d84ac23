package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"

	"capcli/internal/record"
)

var recordsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "cap_records_processed_total",
	Help: "Records that completed enrichment (successful or degraded)",
})

// Runner drives the enricher over a batch of records under a bounded
// concurrency gate. Completion order is arbitrary; output order equals input
// order because each task writes into its own slot of a pre-sized slice.
type Runner struct {
	enricher    *Enricher
	concurrency int64
	logger      *slog.Logger
	tracker     *Tracker
	trackerMu   sync.Mutex
}

// NewRunner creates a runner with the given concurrency bound (min 1)
func NewRunner(enricher *Enricher, concurrency int, logger *slog.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		enricher:    enricher,
		concurrency: int64(concurrency),
		logger:      logger,
	}
}

// Progress returns a snapshot of the current batch, or zeros when no batch
// is running.
func (r *Runner) Progress() (current, total int, percentage float64, eta string) {
	r.trackerMu.Lock()
	t := r.tracker
	r.trackerMu.Unlock()
	if t == nil {
		return 0, 0, 0, ""
	}
	current, total, percentage, _ = t.Snapshot()
	return current, total, percentage, t.ETA()
}

// Run enriches all records and returns one output per input, in input order.
// Submission blocks on the concurrency gate, so at most `concurrency`
// records are in flight. The batch only finishes once every record's
// enrichment has resolved; an error is returned only when the context is
// cancelled before all records were submitted.
func (r *Runner) Run(ctx context.Context, records []record.NormalizedRecord) ([]OutputRecord, error) {
	tracker := NewTracker(len(records))
	r.trackerMu.Lock()
	r.tracker = tracker
	r.trackerMu.Unlock()

	r.logger.InfoContext(ctx, "starting batch",
		slog.Int("records", len(records)),
		slog.Int64("concurrency", r.concurrency))

	stopLogging := r.logProgressPeriodically(ctx, tracker)
	defer stopLogging()

	out := make([]OutputRecord, len(records))
	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup

	var submitErr error
	for i, rec := range records {
		if err := sem.Acquire(ctx, 1); err != nil {
			submitErr = fmt.Errorf("batch interrupted after %d of %d records: %w", i, len(records), err)
			break
		}
		wg.Add(1)
		go func(i int, rec record.NormalizedRecord) {
			defer wg.Done()
			defer sem.Release(1)

			out[i] = r.enricher.Enrich(ctx, rec)
			tracker.Increment(rec.Registration)
			recordsProcessed.Inc()
		}(i, rec)
	}
	wg.Wait()

	current, total, _, _ := tracker.Snapshot()
	r.logger.InfoContext(ctx, "batch finished",
		slog.Int("completed", current),
		slog.Int("total", total),
		slog.Duration("elapsed", time.Since(tracker.StartTime)))

	return out, submitErr
}

// logProgressPeriodically logs batch progress every 10s until the returned
// stop function is called.
func (r *Runner) logProgressPeriodically(ctx context.Context, tracker *Tracker) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				current, total, percentage, _ := tracker.Snapshot()
				r.logger.InfoContext(ctx, "batch progress",
					slog.Int("completed", current),
					slog.Int("total", total),
					slog.String("percentage", fmt.Sprintf("%.1f%%", percentage)),
					slog.String("eta", tracker.ETA()))
			}
		}
	}()
	return func() { close(done) }
}
