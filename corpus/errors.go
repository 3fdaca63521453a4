package corpus

import "fmt"

// MalformedCorpusError reports an unusable document-word file.
type MalformedCorpusError struct {
	Path string
	Line int
	Msg  string
}

func (e *MalformedCorpusError) Error() string {
	return fmt.Sprintf("corpus: %s:%d: %s", e.Path, e.Line, e.Msg)
}

// MalformedVocabError reports an unusable vocabulary file or a
// vocabulary that does not cover the corpus.
type MalformedVocabError struct {
	Path string
	Msg  string
}

func (e *MalformedVocabError) Error() string {
	if e.Path == "" {
		return "vocab: " + e.Msg
	}
	return fmt.Sprintf("vocab: %s: %s", e.Path, e.Msg)
}
