package corpus

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// WordCount is one sparse entry of a document: a 0-based word id and
// how many times it occurs.
type WordCount struct {
	WordID int
	Count  int
}

// Document is the sparse bag-of-words representation of a single document.
type Document []WordCount

// Total returns the summed word count of the document.
func (d Document) Total() int {
	total := 0
	for _, wc := range d {
		total += wc.Count
	}
	return total
}

// Corpus is an ordered collection of sparse documents over a fixed
// vocabulary. It is read-only once loaded.
type Corpus struct {
	VocabSize int
	PairCount int
	Docs      []Document
}

// DocNum returns the number of documents.
func (c *Corpus) DocNum() int { return len(c.Docs) }

// CheckVocab verifies that the vocabulary covers this corpus.
func (c *Corpus) CheckVocab(vocab []string) error {
	if len(vocab) != c.VocabSize {
		return &MalformedVocabError{
			Msg: fmt.Sprintf("vocabulary has %d tokens, corpus declares %d words",
				len(vocab), c.VocabSize),
		}
	}
	return nil
}

// LoadCorpus reads a document-word file:
//
//	line 1: number of documents D
//	line 2: vocabulary size V
//	line 3: number of pairs N
//	N lines of "doc_id word_id count" with 1-based doc and word ids
//
// Ids are converted to 0-based. Repeated (doc_id, word_id) pairs are
// merged by summing their counts. Blank lines are tolerated and do not
// count towards N.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0

	header := func(name string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, err
			}
			return 0, &MalformedCorpusError{Path: path, Line: line + 1,
				Msg: "missing " + name + " header"}
		}
		line++
		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || n < 0 {
			return 0, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("%s header is not a non-negative integer: %q", name, sc.Text())}
		}
		return n, nil
	}

	docNum, err := header("document count")
	if err != nil {
		return nil, err
	}
	vocabSize, err := header("vocabulary size")
	if err != nil {
		return nil, err
	}
	pairNum, err := header("pair count")
	if err != nil {
		return nil, err
	}

	c := &Corpus{VocabSize: vocabSize, Docs: make([]Document, docNum)}
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" {
			continue
		}
		fields := strings.Fields(txt)
		if len(fields) != 3 {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("expected 3 fields, got %d", len(fields))}
		}
		docID, err1 := strconv.Atoi(fields[0])
		wordID, err2 := strconv.Atoi(fields[1])
		count, err3 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: "non-integer field in " + strconv.Quote(txt)}
		}
		if docID < 1 || docID > docNum {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("doc id %d outside [1, %d]", docID, docNum)}
		}
		if wordID < 1 || wordID > vocabSize {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("word id %d outside [1, %d]", wordID, vocabSize)}
		}
		if count <= 0 {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("non-positive count %d", count)}
		}
		if c.PairCount == pairNum {
			return nil, &MalformedCorpusError{Path: path, Line: line,
				Msg: fmt.Sprintf("more than the declared %d pairs", pairNum)}
		}
		c.Docs[docID-1] = append(c.Docs[docID-1], WordCount{WordID: wordID - 1, Count: count})
		c.PairCount++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if c.PairCount != pairNum {
		return nil, &MalformedCorpusError{Path: path, Line: line,
			Msg: fmt.Sprintf("declared %d pairs, found %d", pairNum, c.PairCount)}
	}
	for i := range c.Docs {
		c.Docs[i] = mergeDuplicates(c.Docs[i])
	}
	return c, nil
}

// mergeDuplicates sums the counts of repeated word ids within one
// document and leaves the entries sorted by word id.
func mergeDuplicates(d Document) Document {
	if len(d) < 2 {
		return d
	}
	sort.Slice(d, func(i, j int) bool { return d[i].WordID < d[j].WordID })
	out := d[:1]
	for _, wc := range d[1:] {
		if wc.WordID == out[len(out)-1].WordID {
			out[len(out)-1].Count += wc.Count
		} else {
			out = append(out, wc)
		}
	}
	return out
}
