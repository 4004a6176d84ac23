// Package audit provides the append-only failure log for enrichment runs.
// Every vendor-call failure is recorded with a timestamp, the registration it
// concerned and the failure detail, so degraded output rows can be traced
// back to their cause after the run.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one audited failure
type Entry struct {
	Time         time.Time
	Registration string
	Detail       string
}

// Logger writes entries to an append-only text file. Writers on any
// goroutine hand entries to a single writer goroutine, so no file-level
// locking is needed.
type Logger struct {
	file    *os.File
	entries chan Entry
	done    chan struct{}
	mu      sync.Mutex
	closed  bool
	count   int
}

// Open creates an audit logger writing to the given path, creating parent
// directories as needed.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	l := &Logger{
		file:    file,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Record appends one failure entry. Safe for concurrent use; a no-op after
// Close. The send happens under the mutex so Close can never close the
// channel between the closed-check and the send.
func (l *Logger) Record(registration, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.count++
	l.entries <- Entry{Time: time.Now(), Registration: registration, Detail: detail}
}

// Recordf appends one formatted failure entry
func (l *Logger) Recordf(registration, format string, args ...any) {
	l.Record(registration, fmt.Sprintf(format, args...))
}

// Count returns the number of entries recorded so far
func (l *Logger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Close drains pending entries and closes the file
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	close(l.entries)
	<-l.done
	return l.file.Close()
}

func (l *Logger) run() {
	defer close(l.done)
	for e := range l.entries {
		fmt.Fprintf(l.file, "%s\t%s\t%s\n",
			e.Time.Format("2006-01-02 15:04:05"), e.Registration, e.Detail)
	}
}
