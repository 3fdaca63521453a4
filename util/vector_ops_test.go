package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirichletExpectationSymmetric(t *testing.T) {
	// psi(1) - psi(2) = -1 for both components of Dirichlet(1, 1)
	dst := make([]float64, 2)
	DirichletExpectation([]float64{1.0, 1.0}, dst)

	assert.InDelta(t, -1.0, dst[0], 1e-12)
	assert.InDelta(t, -1.0, dst[1], 1e-12)
}

func TestExpectLogSticksTwoAtoms(t *testing.T) {
	// a single Beta(1, 1) break: E[log w] = E[log(1-w)] = psi(1) - psi(2)
	elog := ExpectLogSticks([]float64{1.0}, []float64{1.0})

	assert.Len(t, elog, 2)
	assert.InDelta(t, -1.0, elog[0], 1e-12)
	assert.InDelta(t, -1.0, elog[1], 1e-12)
}

func TestExpectLogSticksNoBreaks(t *testing.T) {
	// truncation at one atom leaves no Beta draws and a certain stick
	elog := ExpectLogSticks(nil, nil)

	assert.Equal(t, []float64{0.0}, elog)
}

func TestLogNormalize(t *testing.T) {
	v := []float64{math.Log(1.0), math.Log(3.0)}

	logNorm := LogNormalize(v)

	assert.InDelta(t, math.Log(4.0), logNorm, 1e-12)
	assert.InDelta(t, 0.25, v[0], 1e-12)
	assert.InDelta(t, 0.75, v[1], 1e-12)
}

func TestLogNormalizeLargeMagnitudes(t *testing.T) {
	// would overflow exp without the max shift
	v := []float64{1000.0, 1000.0}

	LogNormalize(v)

	assert.InDelta(t, 0.5, v[0], 1e-12)
	assert.InDelta(t, 0.5, v[1], 1e-12)
}
