package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/isabella232/tm-experiments/corpus"
)

var constructors = make(map[string]Ctor)

// Model is the common interface topic model trainers follow.
type Model interface {
	// fit the global parameters with a single pass over the training corpus
	Train(c *corpus.Corpus) error
	// compute per-document topic proportions for an arbitrary corpus
	InferCorpus(c *corpus.Corpus) (*mat.Dense, error)
	// topic-word distribution derived from the fitted parameters,
	// one probability distribution over the vocabulary per row
	WordTopic() (*mat.Dense, error)
}

// Ctor builds a model for a vocabulary of the given size.
type Ctor func(vocabSize int, cfg Config) (Model, error)

// Register makes a model constructor available under name.
func Register(name string, ctor Ctor) {
	constructors[name] = ctor
}

// New instantiates a registered model.
func New(name string, vocabSize int, cfg Config) (Model, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("model %s not registered", name)
	}
	return ctor(vocabSize, cfg)
}
