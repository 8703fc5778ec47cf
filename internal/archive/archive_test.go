package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runStart = time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)

func TestEntryName(t *testing.T) {
	assert.Equal(t, "orders_20240314_092653.sql", EntryName("Tables/orders.sql", runStart))
	assert.Equal(t, "Load_20240314_092653.sql", EntryName("Tasks/Load.SQL", runStart))
	assert.Equal(t, "notes.txt_20240314_092653.sql", EntryName("notes.txt", runStart))
}

func TestArchive_WritesSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	a := New(dir, WithClock(func() time.Time { return runStart }))

	entry, err := a.Archive("Tables/orders.sql", "CREATE TABLE orders (id INT);")
	require.NoError(t, err)

	assert.Equal(t, "Tables/orders.sql", entry.Artifact)
	assert.Equal(t, filepath.Join(dir, "orders_20240314_092653.sql"), entry.Path)
	assert.False(t, entry.CreatedAt.Before(runStart))

	data, err := os.ReadFile(entry.Path)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE orders (id INT);", string(data))
}

func TestArchive_CollisionNeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, WithClock(func() time.Time { return runStart }))

	first, err := a.Archive("Tables/orders.sql", "v1")
	require.NoError(t, err)
	second, err := a.Archive("Tables/orders.sql", "v2")
	require.NoError(t, err)
	third, err := a.Archive("Tables/orders.sql", "v3")
	require.NoError(t, err)

	assert.Equal(t, "orders_20240314_092653.sql", filepath.Base(first.Path))
	assert.Equal(t, "orders_20240314_092653_1.sql", filepath.Base(second.Path))
	assert.Equal(t, "orders_20240314_092653_2.sql", filepath.Base(third.Path))

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestArchive_EmptyPreviousRejected(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	a := New(dir)

	_, err := a.Archive("Tables/new.sql", "")
	assert.ErrorIs(t, err, ErrNothingToArchive)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "directory must not be created for a rejected entry")
}

func TestSweep_RetentionBoundaryIsExclusive(t *testing.T) {
	dir := t.TempDir()
	now := runStart
	a := New(dir, WithClock(func() time.Time { return now }))

	for name, age := range map[string]time.Duration{
		"six.sql":   6 * 24 * time.Hour,
		"seven.sql": 7 * 24 * time.Hour,
		"eight.sql": 8 * 24 * time.Hour,
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		mtime := now.Add(-age)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}

	removed, err := a.Sweep(7)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, filepath.Join(dir, "eight.sql"))
	assert.FileExists(t, filepath.Join(dir, "seven.sql"))
	assert.FileExists(t, filepath.Join(dir, "six.sql"))

	removed, err = a.Sweep(7)
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "sweep is idempotent")
}

func TestSweep_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "keep")
	require.NoError(t, os.Mkdir(sub, 0o755))
	old := runStart.Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(sub, old, old))

	removed, err := New(dir, WithClock(func() time.Time { return runStart })).Sweep(7)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.DirExists(t, sub)
}

func TestSweep_MissingDirectory(t *testing.T) {
	removed, err := New(filepath.Join(t.TempDir(), "absent")).Sweep(7)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestSweep_NegativeRetention(t *testing.T) {
	_, err := New(t.TempDir()).Sweep(-1)
	require.Error(t, err)
}
