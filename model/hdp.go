package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"

	"github.com/isabella232/tm-experiments/corpus"
	"github.com/isabella232/tm-experiments/util"
)

func init() {
	Register("hdp", NewOnlineHDP)
}

var (
	// ErrNumericalInstability marks NaN or Inf in the global parameters.
	ErrNumericalInstability = errors.New("model: numerical instability in global parameters")
	// ErrEmptyDocument marks a document with zero total word count.
	ErrEmptyDocument = errors.New("model: cannot infer topics for an empty document")
	// ErrNotTrained marks use of a model before Train has completed.
	ErrNotTrained = errors.New("model: model has not been trained")
)

// OnlineHDP fits a hierarchical Dirichlet process topic model with
// stochastic variational inference, truncated to T corpus-level topics
// and K document-level sticks. The global state is owned by the trainer
// and mutated only between the per-chunk aggregation barriers.
type OnlineHDP struct {
	cfg       Config
	vocabSize int

	lambda    *mat.Dense // T x V topic-word pseudo-counts, eta included
	lambdaSum []float64  // per-topic row sums of lambda
	stickU    []float64  // T-1 corpus-level Beta parameters
	stickV    []float64
	varphiSS  []float64 // T, decayed topic usage statistic
	docNum    int       // training corpus size D
	updatect  int       // chunks consumed so far
	trained   bool
}

// NewOnlineHDP creates an untrained online HDP model.
func NewOnlineHDP(vocabSize int, cfg Config) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if vocabSize <= 0 {
		return nil, fmt.Errorf("model: vocabulary size must be positive, got %d", vocabSize)
	}
	return &OnlineHDP{cfg: cfg, vocabSize: vocabSize}, nil
}

// Train runs a single pass over the training corpus in contiguous
// chunks of at most ChunkSize documents, applying one natural-gradient
// update of the global parameters per chunk. Chunks are strictly
// sequential; documents within a chunk are processed concurrently.
func (h *OnlineHDP) Train(c *corpus.Corpus) error {
	if c.DocNum() == 0 {
		return fmt.Errorf("model: training corpus is empty")
	}
	h.initState(c.DocNum())
	chunks := (c.DocNum() + h.cfg.ChunkSize - 1) / h.cfg.ChunkSize
	log.Infof("training online HDP: %d documents, %d chunks of size <= %d",
		c.DocNum(), chunks, h.cfg.ChunkSize)
	for start := 0; start < c.DocNum(); start += h.cfg.ChunkSize {
		end := start + h.cfg.ChunkSize
		if end > c.DocNum() {
			end = c.DocNum()
		}
		if err := h.updateChunk(c.Docs[start:end]); err != nil {
			return fmt.Errorf("model: chunk %d: %w", h.updatect, err)
		}
	}
	h.trained = true
	return nil
}

// initState seeds lambda with Gamma(1, 1) draws scaled by D*100/(T*V)
// and sets the corpus-level sticks to their prior.
func (h *OnlineHDP) initState(docNum int) {
	seed := h.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewSource(int64(seed)))

	T, V := h.cfg.T, h.vocabSize
	h.docNum = docNum
	h.updatect = 0
	h.trained = false
	h.lambda = mat.NewDense(T, V, nil)
	h.lambdaSum = make([]float64, T)
	scale := float64(docNum) * 100.0 / float64(T*V)
	for t := 0; t < T; t++ {
		row := h.lambda.RawRowView(t)
		for w := range row {
			row[w] = rng.ExpFloat64() * scale
		}
		h.lambdaSum[t] = floats.Sum(row)
	}
	h.stickU = make([]float64, T-1)
	h.stickV = make([]float64, T-1)
	for i := range h.stickU {
		h.stickU[i] = 1.0
		h.stickV[i] = float64(T - 1 - i)
	}
	h.varphiSS = make([]float64, T)
}

// chunkStats accumulates one chunk's sufficient statistics behind a
// single lock, the only synchronization point of a chunk.
type chunkStats struct {
	mu       sync.Mutex
	beta     *mat.Dense // T x Wt topic-word statistic over the chunk's words
	sticks   []float64  // T topic usage statistic
	docCount int        // non-empty documents processed
}

func (h *OnlineHDP) updateChunk(docs []corpus.Document) error {
	words := roaring.New()
	for _, doc := range docs {
		for _, wc := range doc {
			words.Add(uint32(wc.WordID))
		}
	}
	if words.IsEmpty() {
		return fmt.Errorf("%w: chunk carries no words", ErrNumericalInstability)
	}
	wordIDs := words.ToArray()
	col := make(map[int]int, len(wordIDs))
	for i, w := range wordIDs {
		col[int(w)] = i
	}

	elogBeta := h.elogBetaColumns(wordIDs)
	elogSticks1st := util.ExpectLogSticks(h.stickU, h.stickV)

	st := &chunkStats{
		beta:   mat.NewDense(h.cfg.T, len(wordIDs), nil),
		sticks: make([]float64, h.cfg.T),
	}

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, doc := range docs {
		if len(doc) == 0 {
			continue
		}
		doc := doc
		g.Go(func() error {
			docElog := extractColumns(elogBeta, doc, col)
			ls, err := h.docEStep(doc, docElog, elogSticks1st)
			if err != nil {
				return err
			}
			h.accumulate(st, doc, ls, col)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	h.applyUpdate(st, wordIDs)
	h.updatect++
	return h.checkFinite()
}

// accumulate folds one document's statistics into the chunk totals.
func (h *OnlineHDP) accumulate(st *chunkStats, doc corpus.Document, ls *localState, col map[int]int) {
	K, T := h.cfg.K, h.cfg.T

	// betaSS[t][i] = sum_k varPhi[k,t] * phi[i,k] * count_i
	betaSS := mat.NewDense(T, len(doc), nil)
	for t := 0; t < T; t++ {
		row := betaSS.RawRowView(t)
		for i, wc := range doc {
			s := 0.0
			for k := 0; k < K; k++ {
				s += ls.varPhi.At(k, t) * ls.phi.At(i, k)
			}
			row[i] = s * float64(wc.Count)
		}
	}
	stickSS := make([]float64, T)
	for k := 0; k < K; k++ {
		for t := 0; t < T; t++ {
			stickSS[t] += ls.varPhi.At(k, t)
		}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for t := 0; t < T; t++ {
		src := betaSS.RawRowView(t)
		dst := st.beta.RawRowView(t)
		for i, wc := range doc {
			dst[col[wc.WordID]] += src[i]
		}
	}
	floats.Add(st.sticks, stickSS)
	st.docCount++
}

// applyUpdate performs the natural-gradient step for one chunk:
//
//	lambda <- (1-rho)*lambda + rho*(eta + D/S * chunk statistic)
//
// and the analogous decayed update of the corpus-level sticks.
func (h *OnlineHDP) applyUpdate(st *chunkStats, wordIDs []uint32) {
	rhot := h.cfg.Scale * math.Pow(h.cfg.Tau+float64(h.updatect), -h.cfg.Kappa)
	if rhot > 1.0 {
		rhot = 1.0
	}
	scale := float64(h.docNum) / float64(st.docCount)
	log.V(1).Infof("chunk %d: rho=%.5f, %d documents carried weight",
		h.updatect, rhot, st.docCount)

	T := h.cfg.T
	for t := 0; t < T; t++ {
		row := h.lambda.RawRowView(t)
		for w := range row {
			row[w] = (1.0-rhot)*row[w] + rhot*h.cfg.Eta
		}
		src := st.beta.RawRowView(t)
		for i, w := range wordIDs {
			row[w] += rhot * scale * src[i]
		}
		h.lambdaSum[t] = floats.Sum(row)
	}

	for t := 0; t < T; t++ {
		h.varphiSS[t] = (1.0-rhot)*h.varphiSS[t] + rhot*scale*st.sticks[t]
	}
	for j := 0; j < T-1; j++ {
		h.stickU[j] = h.varphiSS[j] + 1.0
	}
	cum := 0.0
	for j := T - 2; j >= 0; j-- {
		cum += h.varphiSS[j+1]
		h.stickV[j] = h.cfg.Gamma + cum
	}
}

// checkFinite turns NaN or Inf in the global parameters into a fatal
// error instead of letting it leak into the artifacts.
func (h *OnlineHDP) checkFinite() error {
	T := h.cfg.T
	for t := 0; t < T; t++ {
		row := h.lambda.RawRowView(t)
		for w, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: lambda[%d,%d]=%v", ErrNumericalInstability, t, w, x)
			}
		}
	}
	for j := range h.stickU {
		if math.IsNaN(h.stickU[j]) || math.IsInf(h.stickU[j], 0) ||
			math.IsNaN(h.stickV[j]) || math.IsInf(h.stickV[j], 0) {
			return fmt.Errorf("%w: corpus stick %d", ErrNumericalInstability, j)
		}
	}
	return nil
}

// elogBetaColumns computes E[log beta] for the given word ids only,
// psi(lambda_tw) - psi(sum_w lambda_tw).
func (h *OnlineHDP) elogBetaColumns(wordIDs []uint32) *mat.Dense {
	T := h.cfg.T
	e := mat.NewDense(T, len(wordIDs), nil)
	for t := 0; t < T; t++ {
		psiSum := mathext.Digamma(h.lambdaSum[t])
		row := e.RawRowView(t)
		lrow := h.lambda.RawRowView(t)
		for i, w := range wordIDs {
			row[i] = mathext.Digamma(lrow[w]) - psiSum
		}
	}
	return e
}

// extractColumns copies the chunk-level E[log beta] columns of one
// document, aligned with the document's entry order.
func extractColumns(elogBeta *mat.Dense, doc corpus.Document, col map[int]int) *mat.Dense {
	T, _ := elogBeta.Dims()
	out := mat.NewDense(T, len(doc), nil)
	for t := 0; t < T; t++ {
		src := elogBeta.RawRowView(t)
		dst := out.RawRowView(t)
		for i, wc := range doc {
			dst[i] = src[col[wc.WordID]]
		}
	}
	return out
}

// WordTopic returns the topic-word distribution, every row of lambda
// renormalized to a probability distribution over the vocabulary.
func (h *OnlineHDP) WordTopic() (*mat.Dense, error) {
	if !h.trained {
		return nil, ErrNotTrained
	}
	T, V := h.cfg.T, h.vocabSize
	out := mat.NewDense(T, V, nil)
	for t := 0; t < T; t++ {
		src := h.lambda.RawRowView(t)
		dst := out.RawRowView(t)
		sum := h.lambdaSum[t]
		for w := range src {
			dst[w] = src[w] / sum
		}
	}
	return out, nil
}
