package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBackups(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, n), 0o755))
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPruneBackups(t *testing.T) {
	dir := t.TempDir()
	makeBackups(t, dir,
		"backup_20250101_000000",
		"backup_20250102_000000",
		"backup_20250103_000000",
		"unrelated",
	)

	require.NoError(t, PruneBackups(dir, 2, nil))
	assert.Equal(t, []string{"backup_20250102_000000", "backup_20250103_000000", "unrelated"}, listDir(t, dir))

	require.NoError(t, PruneBackups(filepath.Join(dir, "missing"), 2, nil))
}

func TestScheduleBackupRetention(t *testing.T) {
	dir := t.TempDir()
	makeBackups(t, dir, "backup_20250101_000000", "backup_20250102_000000")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := ScheduleBackupRetention(ctx, "@every 1s", dir, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(dir)
		return err == nil && len(entries) == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	_, err := ScheduleBackupRetention(context.Background(), "not a schedule", t.TempDir(), 1, nil)
	assert.Error(t, err)
}
