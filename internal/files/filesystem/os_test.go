package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
}

func TestOSFileSystem_Walk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.sql"), "b")
	writeFile(t, filepath.Join(dir, "a.sql"), "a")
	writeFile(t, filepath.Join(dir, "sub", "c.sql"), "c")

	var seen []string
	err := NewOSFileSystem().Walk(dir, func(rel string, info FileInfo) error {
		seen = append(seen, rel)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.sql", "b.sql", "sub/c.sql"}, seen)
}

func TestOSFileSystem_WalkMissingDirectory(t *testing.T) {
	err := NewOSFileSystem().Walk(filepath.Join(t.TempDir(), "nope"), func(string, FileInfo) error { return nil })
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestOSFileSystem_WalkFileNotDirectory(t *testing.T) {
	name := filepath.Join(t.TempDir(), "file.sql")
	writeFile(t, name, "x")

	err := NewOSFileSystem().Walk(name, func(string, FileInfo) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestOSFileSystem_ReadFileAndStat(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.sql")
	writeFile(t, name, "SELECT 1;")
	p := NewOSFileSystem()

	data, err := p.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", string(data))

	info, err := p.Stat(name)
	require.NoError(t, err)
	assert.Equal(t, "test.sql", info.Name())

	_, err = p.ReadFile(name + ".missing")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
