package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_RecordAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	logger, err := Open(path)
	require.NoError(t, err)

	logger.Record("AB12CDE", "valuation failed for 2024-05-01: server returned status 500")
	logger.Recordf("CD34EFG", "vrm lookup failed: %v", "no data")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 3)
	assert.Equal(t, "AB12CDE", fields[1])
	assert.Contains(t, fields[2], "status 500")
	assert.Contains(t, lines[1], "CD34EFG")
	assert.Equal(t, 2, logger.Count())
}

func TestLogger_ConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	logger, err := Open(path)
	require.NoError(t, err)

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				logger.Recordf(fmt.Sprintf("REG%d", w), "failure %d", i)
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Len(t, lines, writers*perWriter)
	assert.Equal(t, writers*perWriter, logger.Count())

	// every line stays intact under concurrency
	for _, line := range lines {
		assert.Len(t, strings.Split(line, "\t"), 3)
	}
}

func TestLogger_CloseRacingRecorders(t *testing.T) {
	// Close while writers are still recording: late entries become no-ops,
	// and every counted entry reaches the file.
	path := filepath.Join(t.TempDir(), "errors.log")
	logger, err := Open(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				logger.Recordf(fmt.Sprintf("REG%d", w), "failure %d", i)
			}
		}(w)
	}
	require.NoError(t, logger.Close())
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Count(string(data), "\n")
	assert.Equal(t, logger.Count(), lines)
}

func TestLogger_RecordAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "errors.log")
	logger, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	logger.Record("AB12CDE", "late entry")
	assert.Equal(t, 0, logger.Count())

	// double close is safe
	assert.NoError(t, logger.Close())
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "errors.log")
	logger, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
