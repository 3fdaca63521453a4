package corpus

import (
	"bufio"
	"os"
	"strings"
)

// LoadVocab reads a one-token-per-line vocabulary file into a slice
// indexed by 0-based word id.
func LoadVocab(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vocab []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		vocab = append(vocab, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(vocab) == 0 {
		return nil, &MalformedVocabError{Path: path, Msg: "empty vocabulary file"}
	}
	return vocab, nil
}
