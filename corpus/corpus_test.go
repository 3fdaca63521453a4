package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docword.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCorpus(t *testing.T) {
	path := writeCorpusFile(t, "2\n3\n3\n1 1 2\n1 2 1\n2 3 3\n")

	c, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.Equal(t, 2, c.DocNum())
	assert.Equal(t, 3, c.VocabSize)
	assert.Equal(t, 3, c.PairCount)
	assert.Equal(t, Document{{WordID: 0, Count: 2}, {WordID: 1, Count: 1}}, c.Docs[0])
	assert.Equal(t, Document{{WordID: 2, Count: 3}}, c.Docs[1])
	assert.Equal(t, 3, c.Docs[0].Total())
	assert.Equal(t, 3, c.Docs[1].Total())
}

func TestLoadCorpusTrailingBlankLines(t *testing.T) {
	path := writeCorpusFile(t, "1\n2\n1\n1 2 4\n\n\n")

	c, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.Equal(t, 1, c.PairCount)
	assert.Equal(t, Document{{WordID: 1, Count: 4}}, c.Docs[0])
}

func TestLoadCorpusMergesDuplicatePairs(t *testing.T) {
	path := writeCorpusFile(t, "1\n2\n3\n1 1 2\n1 2 1\n1 1 3\n")

	c, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.Equal(t, 3, c.PairCount)
	assert.Equal(t, Document{{WordID: 0, Count: 5}, {WordID: 1, Count: 1}}, c.Docs[0])
}

func TestLoadCorpusMalformed(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"doc id zero", "2\n3\n1\n0 1 2\n"},
		{"doc id too large", "2\n3\n1\n3 1 2\n"},
		{"word id zero", "2\n3\n1\n1 0 2\n"},
		{"word id too large", "2\n3\n1\n1 4 2\n"},
		{"zero count", "2\n3\n1\n1 1 0\n"},
		{"negative count", "2\n3\n1\n1 1 -2\n"},
		{"two fields", "2\n3\n1\n1 1\n"},
		{"four fields", "2\n3\n1\n1 1 2 7\n"},
		{"non-integer field", "2\n3\n1\n1 x 2\n"},
		{"non-integer header", "two\n3\n1\n1 1 2\n"},
		{"missing headers", "2\n"},
		{"fewer pairs than declared", "2\n3\n2\n1 1 2\n"},
		{"more pairs than declared", "2\n3\n1\n1 1 2\n2 1 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCorpusFile(t, tc.content)

			_, err := LoadCorpus(path)

			var mce *MalformedCorpusError
			assert.ErrorAs(t, err, &mce)
		})
	}
}

func TestLoadCorpusMissingFile(t *testing.T) {
	_, err := LoadCorpus(filepath.Join(t.TempDir(), "nope.txt"))

	assert.Error(t, err)
}

func TestCheckVocab(t *testing.T) {
	path := writeCorpusFile(t, "1\n3\n1\n1 1 1\n")
	c, err := LoadCorpus(path)
	require.NoError(t, err)

	assert.NoError(t, c.CheckVocab([]string{"cat", "dog", "fish"}))

	var mve *MalformedVocabError
	assert.ErrorAs(t, c.CheckVocab([]string{"cat", "dog"}), &mve)
}
