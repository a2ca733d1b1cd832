package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWorkspaceCreateAndRemove(t *testing.T) {
	root := t.TempDir()
	ws, err := NewLocalWorkspace(root)
	require.NoError(t, err)

	dir, err := ws.Create("attempt-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dir), "attempt-1-"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "track.m4a"), []byte("data"), 0644))

	require.NoError(t, ws.Remove(dir))
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine
	assert.NoError(t, ws.Remove(dir))
}

func TestLocalWorkspaceDirectoriesAreUnique(t *testing.T) {
	ws, err := NewLocalWorkspace(t.TempDir())
	require.NoError(t, err)

	a, err := ws.Create("same")
	require.NoError(t, err)
	b, err := ws.Create("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocalWorkspaceRefusesPathsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	ws, err := NewLocalWorkspace(filepath.Join(root, "ws"))
	require.NoError(t, err)

	outside := filepath.Join(root, "other")
	require.NoError(t, os.MkdirAll(outside, 0755))

	err = ws.Remove(outside)
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)

	assert.ErrorIs(t, ws.Remove(ws.Root()), ErrOutsideRoot)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeName("a/b:c"))
	assert.Equal(t, "attempt", sanitizeName(""))
}

func TestSweepRemovesStaleDirectories(t *testing.T) {
	ws, err := NewLocalWorkspace(t.TempDir())
	require.NoError(t, err)

	stale, err := ws.Create("stale")
	require.NoError(t, err)
	fresh, err := ws.Create("fresh")
	require.NoError(t, err)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := ws.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
