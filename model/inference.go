package model

import (
	"fmt"
	"math"
	"runtime"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"

	"github.com/isabella232/tm-experiments/corpus"
	"github.com/isabella232/tm-experiments/util"
)

const (
	// maxLocalIters caps the local variational E-step per document.
	maxLocalIters = 100
	// coldStartIters is the number of initial iterations that leave the
	// stick priors out of the responsibilities, so that the randomly
	// initialized topics get a chance to differentiate first.
	coldStartIters = 3
)

// localState holds the transient per-document variational quantities.
// It is recomputed for every inference call and never persisted.
type localState struct {
	varPhi *mat.Dense // K x T document-stick to topic responsibilities
	phi    *mat.Dense // n x K word to document-stick responsibilities
	stickA []float64  // K-1 document-level Beta parameters
	stickB []float64
}

// docEStep runs the local variational E-step for one document against
// the current global parameters. elogBetaDoc holds E[log beta] columns
// aligned with the document's entries; elogSticks1st the expected log
// corpus-level stick weights. Iteration stops when the relative ELBO
// improvement drops below VarConverge or after maxLocalIters rounds.
func (h *OnlineHDP) docEStep(doc corpus.Document, elogBetaDoc *mat.Dense, elogSticks1st []float64) (*localState, error) {
	if doc.Total() == 0 {
		return nil, ErrEmptyDocument
	}
	n := len(doc)
	K, T := h.cfg.K, h.cfg.T
	counts := make([]float64, n)
	for i, wc := range doc {
		counts[i] = float64(wc.Count)
	}

	ls := &localState{
		varPhi: mat.NewDense(K, T, nil),
		phi:    mat.NewDense(n, K, nil),
		stickA: make([]float64, K-1),
		stickB: make([]float64, K-1),
	}
	for i := 0; i < n; i++ {
		row := ls.phi.RawRowView(i)
		for k := range row {
			row[k] = 1.0 / float64(K)
		}
	}
	for j := range ls.stickA {
		ls.stickA[j] = 1.0
		ls.stickB[j] = h.cfg.Alpha
	}
	elogSticks2nd := util.ExpectLogSticks(ls.stickA, ls.stickB)

	likelihood := math.Inf(-1)
	for iter := 0; iter < maxLocalIters; iter++ {
		// responsibilities of document sticks over topics
		for k := 0; k < K; k++ {
			row := ls.varPhi.RawRowView(k)
			for t := 0; t < T; t++ {
				s := 0.0
				for i := 0; i < n; i++ {
					s += ls.phi.At(i, k) * counts[i] * elogBetaDoc.At(t, i)
				}
				if iter >= coldStartIters {
					s += elogSticks1st[t]
				}
				row[t] = s
			}
			util.LogNormalize(row)
		}

		// responsibilities of words over document sticks
		for i := 0; i < n; i++ {
			row := ls.phi.RawRowView(i)
			for k := 0; k < K; k++ {
				s := 0.0
				for t := 0; t < T; t++ {
					s += ls.varPhi.At(k, t) * elogBetaDoc.At(t, i)
				}
				if iter >= coldStartIters {
					s += elogSticks2nd[k]
				}
				row[k] = s
			}
			util.LogNormalize(row)
		}

		// document sticks from count-weighted responsibilities
		colSums := make([]float64, K)
		for i := 0; i < n; i++ {
			row := ls.phi.RawRowView(i)
			for k := 0; k < K; k++ {
				colSums[k] += counts[i] * row[k]
			}
		}
		cum := 0.0
		for j := K - 2; j >= 0; j-- {
			cum += colSums[j+1]
			ls.stickA[j] = 1.0 + colSums[j]
			ls.stickB[j] = h.cfg.Alpha + cum
		}
		elogSticks2nd = util.ExpectLogSticks(ls.stickA, ls.stickB)

		prev := likelihood
		likelihood = h.localELBO(ls, counts, elogBetaDoc, elogSticks1st, elogSticks2nd)
		if !math.IsInf(prev, -1) {
			converge := (likelihood - prev) / math.Abs(prev)
			if converge >= 0 && converge < h.cfg.VarConverge {
				break
			}
		}
	}
	return ls, nil
}

// localELBO evaluates the per-document evidence lower bound
// contribution under the current local state.
func (h *OnlineHDP) localELBO(ls *localState, counts []float64, elogBetaDoc *mat.Dense, elog1st, elog2nd []float64) float64 {
	K, T := h.cfg.K, h.cfg.T
	n := len(counts)
	lik := 0.0

	// stick-to-topic assignment prior and entropy
	for k := 0; k < K; k++ {
		row := ls.varPhi.RawRowView(k)
		for t := 0; t < T; t++ {
			if p := row[t]; p > 0 {
				lik += p * (elog1st[t] - math.Log(p))
			}
		}
	}

	// Beta(1, alpha) prior and entropy of the document sticks
	lik += float64(K-1) * math.Log(h.cfg.Alpha)
	for j := range ls.stickA {
		a, b := ls.stickA[j], ls.stickB[j]
		psiSum := mathext.Digamma(a + b)
		lik += (1.0-a)*(mathext.Digamma(a)-psiSum) + (h.cfg.Alpha-b)*(mathext.Digamma(b)-psiSum)
		lgAB, _ := math.Lgamma(a + b)
		lgA, _ := math.Lgamma(a)
		lgB, _ := math.Lgamma(b)
		lik += lgA + lgB - lgAB
	}

	// word-to-stick assignment prior and entropy
	for i := 0; i < n; i++ {
		row := ls.phi.RawRowView(i)
		for k := 0; k < K; k++ {
			if p := row[k]; p > 0 {
				lik += p * (elog2nd[k] - math.Log(p))
			}
		}
	}

	// expected log likelihood of the observed words
	for k := 0; k < K; k++ {
		vrow := ls.varPhi.RawRowView(k)
		for t := 0; t < T; t++ {
			if vrow[t] == 0 {
				continue
			}
			s := 0.0
			for i := 0; i < n; i++ {
				s += counts[i] * ls.phi.At(i, k) * elogBetaDoc.At(t, i)
			}
			lik += vrow[t] * s
		}
	}
	return lik
}

// InferDoc computes the expected topic proportions of a single document
// against the fitted global parameters. The result has length T and
// sums to one.
func (h *OnlineHDP) InferDoc(doc corpus.Document) ([]float64, error) {
	if !h.trained {
		return nil, ErrNotTrained
	}
	return h.inferDoc(doc, util.ExpectLogSticks(h.stickU, h.stickV))
}

func (h *OnlineHDP) inferDoc(doc corpus.Document, elogSticks1st []float64) ([]float64, error) {
	if doc.Total() == 0 {
		return nil, ErrEmptyDocument
	}
	// a merged document has unique word ids, so the columns of
	// elogBetaColumns align with the entries directly
	wordIDs := make([]uint32, len(doc))
	for i, wc := range doc {
		wordIDs[i] = uint32(wc.WordID)
	}
	ls, err := h.docEStep(doc, h.elogBetaColumns(wordIDs), elogSticks1st)
	if err != nil {
		return nil, err
	}

	// expected document-level stick weights
	K, T := h.cfg.K, h.cfg.T
	pi := make([]float64, K)
	left := 1.0
	for j := 0; j < K-1; j++ {
		frac := ls.stickA[j] / (ls.stickA[j] + ls.stickB[j])
		pi[j] = frac * left
		left *= 1.0 - frac
	}
	pi[K-1] = left

	// map through the stick-to-topic assignment
	theta := make([]float64, T)
	for k := 0; k < K; k++ {
		row := ls.varPhi.RawRowView(k)
		for t := 0; t < T; t++ {
			theta[t] += pi[k] * row[t]
		}
	}
	sum := floats.Sum(theta)
	if sum <= 0 || math.IsNaN(sum) {
		return nil, fmt.Errorf("%w: degenerate topic proportions", ErrNumericalInstability)
	}
	floats.Scale(1.0/sum, theta)
	return theta, nil
}

// InferCorpus computes the document-topic matrix of an arbitrary corpus
// against the fitted global parameters, one normalized row per
// document. Documents are independent and processed concurrently.
func (h *OnlineHDP) InferCorpus(c *corpus.Corpus) (*mat.Dense, error) {
	if !h.trained {
		return nil, ErrNotTrained
	}
	log.Infof("inferring topic proportions for %d documents", c.DocNum())
	elogSticks1st := util.ExpectLogSticks(h.stickU, h.stickV)
	out := mat.NewDense(c.DocNum(), h.cfg.T, nil)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for d := range c.Docs {
		d := d
		g.Go(func() error {
			theta, err := h.inferDoc(c.Docs[d], elogSticks1st)
			if err != nil {
				return fmt.Errorf("model: document %d: %w", d, err)
			}
			out.SetRow(d, theta)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
