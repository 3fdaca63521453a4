package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\ndog\nfish\n"), 0o644))

	vocab, err := LoadVocab(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog", "fish"}, vocab)
}

func TestLoadVocabCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, []byte("cat\r\ndog\r\n"), 0o644))

	vocab, err := LoadVocab(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "dog"}, vocab)
}

func TestLoadVocabEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := LoadVocab(path)

	var mve *MalformedVocabError
	assert.ErrorAs(t, err, &mve)
}
