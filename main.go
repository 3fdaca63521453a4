package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/golang/glog"

	"github.com/isabella232/tm-experiments/corpus"
	"github.com/isabella232/tm-experiments/model"
	"github.com/isabella232/tm-experiments/sstable"
)

var (
	docword       = flag.String("docword", "", "input document-word file")
	vocabFile     = flag.String("vocab", "", "input vocabulary file, one token per line")
	docwordConcat = flag.String("docword-concat", "", "consolidated document-word file used for training")
	consolidate   = flag.Bool("consolidate", false, "train on the consolidated corpus instead of the full one")
	doctopicOut   = flag.String("doctopic-out", "doctopic.npy", "output path of the document-topic matrix")
	wordtopicOut  = flag.String("wordtopic-out", "wordtopic.npy", "output path of the topic-word matrix")
	force         = flag.Bool("force", false, "overwrite existing output files")
	modelType     = flag.String("model", "hdp", "model type")
	seed          = flag.Uint64("seed", 0, "random seed of the model initialization, 0 picks one")

	chunkSize   = flag.Int("chunk-size", 256, "number of documents in one chunk")
	kappa       = flag.Float64("kappa", 1.0, "exponential decay factor of the learning rate")
	tau         = flag.Float64("tau", 64.0, "learning rate offset down-weighting early chunks")
	truncK      = flag.Int("k", 15, "document level truncation")
	truncT      = flag.Int("t", 150, "topic level truncation")
	alpha       = flag.Float64("alpha", 1.0, "document level concentration")
	gamma       = flag.Float64("gamma", 1.0, "topic level concentration")
	eta         = flag.Float64("eta", 0.01, "topic Dirichlet prior")
	scale       = flag.Float64("scale", 1.0, "weight of each chunk in the learning rate")
	varConverge = flag.Float64("var-converge", 1e-4, "convergence threshold of local inference")
)

// runOptions carries everything one training run needs. The loader
// hooks default to the corpus package and exist so tests can observe
// when the input files are actually read.
type runOptions struct {
	docword       string
	vocab         string
	docwordConcat string
	consolidate   bool
	doctopicOut   string
	wordtopicOut  string
	force         bool
	modelType     string
	cfg           model.Config

	loadVocab  func(path string) ([]string, error)
	loadCorpus func(path string) (*corpus.Corpus, error)
}

func optionsFromFlags() runOptions {
	return runOptions{
		docword:       *docword,
		vocab:         *vocabFile,
		docwordConcat: *docwordConcat,
		consolidate:   *consolidate,
		doctopicOut:   *doctopicOut,
		wordtopicOut:  *wordtopicOut,
		force:         *force,
		modelType:     *modelType,
		cfg: model.Config{
			ChunkSize:   *chunkSize,
			Kappa:       *kappa,
			Tau:         *tau,
			K:           *truncK,
			T:           *truncT,
			Alpha:       *alpha,
			Gamma:       *gamma,
			Eta:         *eta,
			Scale:       *scale,
			VarConverge: *varConverge,
			Seed:        *seed,
		},
	}
}

func main() {
	flag.Parse()
	defer log.Flush()

	if err := run(optionsFromFlags()); err != nil {
		log.Error(err)
		log.Flush()
		os.Exit(1)
	}
}

func run(opts runOptions) error {
	if opts.loadVocab == nil {
		opts.loadVocab = corpus.LoadVocab
	}
	if opts.loadCorpus == nil {
		opts.loadCorpus = corpus.LoadCorpus
	}

	if err := opts.cfg.Validate(); err != nil {
		return err
	}
	if opts.docword == "" || opts.vocab == "" {
		return fmt.Errorf("both -docword and -vocab are required")
	}
	if opts.consolidate && opts.docwordConcat == "" {
		return fmt.Errorf("-consolidate requires -docword-concat")
	}

	// fail on path problems before any expensive work
	inputs := []string{opts.vocab, opts.docword}
	if opts.consolidate {
		inputs = append(inputs, opts.docwordConcat)
	}
	for _, p := range inputs {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("input %s: %w", p, err)
		}
	}
	for _, p := range []string{opts.doctopicOut, opts.wordtopicOut} {
		if err := sstable.EnsureWritable(p, opts.force); err != nil {
			return err
		}
	}

	log.Info("loading vocabulary ...")
	vocab, err := opts.loadVocab(opts.vocab)
	if err != nil {
		return err
	}
	log.Infof("loaded %d tokens", len(vocab))

	log.Info("loading corpus ...")
	full, err := opts.loadCorpus(opts.docword)
	if err != nil {
		return err
	}
	log.Infof("loaded corpus: %d documents, %d words, %d pairs",
		full.DocNum(), full.VocabSize, full.PairCount)
	if err := full.CheckVocab(vocab); err != nil {
		return err
	}

	training := full
	if opts.consolidate {
		log.Info("loading consolidated training corpus ...")
		training, err = opts.loadCorpus(opts.docwordConcat)
		if err != nil {
			return err
		}
		log.Infof("loaded training corpus: %d documents, %d words, %d pairs",
			training.DocNum(), training.VocabSize, training.PairCount)
		if err := training.CheckVocab(vocab); err != nil {
			return err
		}
	}

	m, err := model.New(opts.modelType, len(vocab), opts.cfg)
	if err != nil {
		return err
	}

	log.Infof("training %s model ...", opts.modelType)
	if err := m.Train(training); err != nil {
		return err
	}
	log.Info("trained the model")

	log.Info("inferring topics per document ...")
	docTopic, err := m.InferCorpus(full)
	if err != nil {
		return err
	}
	log.Info("inferred topics per document")

	if err := sstable.SaveMatrix(opts.doctopicOut, docTopic, opts.force); err != nil {
		return err
	}
	log.Infof("saved document-topic matrix in %q", opts.doctopicOut)

	wordTopic, err := m.WordTopic()
	if err != nil {
		return err
	}
	if err := sstable.SaveMatrix(opts.wordtopicOut, wordTopic, opts.force); err != nil {
		return err
	}
	log.Infof("saved topic-word matrix in %q", opts.wordtopicOut)
	return nil
}
