package enrich

import (
	"fmt"
	"sync"
	"time"
)

// Tracker tracks progress of a batch run
type Tracker struct {
	Total     int
	Current   int
	StartTime time.Time
	Message   string
	mu        sync.Mutex
}

// NewTracker creates a progress tracker for a batch of the given size
func NewTracker(total int) *Tracker {
	return &Tracker{Total: total, StartTime: time.Now()}
}

// Increment increments the completed count by 1
func (t *Tracker) Increment(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Current++
	t.Message = message
}

// Snapshot returns the current progress state
func (t *Tracker) Snapshot() (current, total int, percentage float64, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	percentage = 0
	if t.Total > 0 {
		percentage = float64(t.Current) / float64(t.Total) * 100
	}
	return t.Current, t.Total, percentage, t.Message
}

// ETA calculates the estimated time remaining
func (t *Tracker) ETA() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Current == 0 || t.Total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(t.StartTime)
	rate := float64(t.Current) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := float64(t.Total-t.Current) / rate
	switch {
	case remaining < 60:
		return fmt.Sprintf("%.0f seconds", remaining)
	case remaining < 3600:
		return fmt.Sprintf("%.1f minutes", remaining/60)
	default:
		return fmt.Sprintf("%.1f hours", remaining/3600)
	}
}
