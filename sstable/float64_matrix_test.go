package sstable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSaveLoadMatrixRoundTrip(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{0.1, 0.2, 0.7, 0.5, 0.25, 0.25})
	path := filepath.Join(t.TempDir(), "doctopic.npy")

	require.NoError(t, SaveMatrix(path, m, false))

	got, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got), "round trip must be exact")
}

func TestSaveLoadMatrixGzip(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	path := filepath.Join(t.TempDir(), "wordtopic.npy.gz")

	require.NoError(t, SaveMatrix(path, m, false))

	got, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestSaveMatrixRefusesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctopic.npy")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0o644))

	err := SaveMatrix(path, mat.NewDense(1, 1, []float64{1}), false)
	assert.ErrorIs(t, err, ErrExists)

	content, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(content), "refused save must not touch the file")
}

func TestSaveMatrixForceOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doctopic.npy")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	m := mat.NewDense(1, 2, []float64{0.5, 0.5})

	require.NoError(t, SaveMatrix(path, m, true))

	got, err := LoadMatrix(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, got))
}

func TestEnsureWritable(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, EnsureWritable(filepath.Join(dir, "new.npy"), false))

	path := filepath.Join(dir, "existing.npy")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	assert.ErrorIs(t, EnsureWritable(path, false), ErrExists)

	require.NoError(t, EnsureWritable(path, true))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "force must remove the destination")
}

func TestSaveMatrixFailureLeavesNoPartialArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing-subdir", "doctopic.npy")

	err := SaveMatrix(path, mat.NewDense(1, 1, []float64{1}), false)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no artifact may exist after a failed save")
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "a failed save must not leave scratch files")
}

func TestSaveMatrixLeavesNoScratchFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doctopic.npy")

	require.NoError(t, SaveMatrix(path, mat.NewDense(1, 2, []float64{0.5, 0.5}), false))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doctopic.npy", entries[0].Name())
}

func TestLoadMatrixMissingFile(t *testing.T) {
	_, err := LoadMatrix(filepath.Join(t.TempDir(), "nope.npy"))

	assert.Error(t, err)
}
