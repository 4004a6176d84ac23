package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnsureDirs creates the input, output and logs directories if they do not
// exist. Paths are used as-is; callers resolve them relative to wherever the
// tool runs from.
func (p PathsConfig) EnsureDirs() error {
	for _, dir := range []string{p.InputDir, p.OutputDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogFilePath returns the path for a timestamped log file under the logs
// directory, e.g. logs/capstock_2024-01-02_15_04_05.log.
func (p PathsConfig) LogFilePath(tool string, now time.Time) string {
	name := fmt.Sprintf("%s_%s.log", tool, now.Format("2006-01-02_15_04_05"))
	return filepath.Join(p.LogsDir, name)
}

// AuditFilePath returns the path for a timestamped audit log under the logs
// directory, e.g. logs/capstock_errors_2024-01-02_15_04_05.log.
func (p PathsConfig) AuditFilePath(tool string, now time.Time) string {
	name := fmt.Sprintf("%s_errors_%s.log", tool, now.Format("2006-01-02_15_04_05"))
	return filepath.Join(p.LogsDir, name)
}
