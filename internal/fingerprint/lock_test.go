package fingerprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/sfdeploy/pkg/sfdeploy"
)

func TestAcquire_Exclusive(t *testing.T) {
	store := filepath.Join(t.TempDir(), ".sfdeploy", "fingerprints.yaml")

	first, err := Acquire(store, "run-a")
	require.NoError(t, err)

	data, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Equal(t, "run-a\n", string(data))

	_, err = Acquire(store, "run-b")
	require.Error(t, err)
	assert.ErrorIs(t, err, sfdeploy.ErrInvalidConfig)
	assert.Contains(t, err.Error(), `"run-a"`)
	assert.Contains(t, err.Error(), LockPath(store))

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	second, err := Acquire(store, "run-b")
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
