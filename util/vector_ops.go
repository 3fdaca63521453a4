package util

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// DirichletExpectation writes E[log theta] for theta ~ Dirichlet(row)
// into dst: psi(row_i) - psi(sum(row)).
func DirichletExpectation(row, dst []float64) {
	sum := 0.0
	for _, x := range row {
		sum += x
	}
	psiSum := mathext.Digamma(sum)
	for i, x := range row {
		dst[i] = mathext.Digamma(x) - psiSum
	}
}

// ExpectLogSticks returns the expected log weights of a truncated
// stick-breaking construction with breaks Beta(u_i, v_i). The result
// has len(u)+1 entries, the last one being the leftover stick.
func ExpectLogSticks(u, v []float64) []float64 {
	elog := make([]float64, len(u)+1)
	cum := 0.0
	for i := range u {
		psiSum := mathext.Digamma(u[i] + v[i])
		elog[i] = cum + mathext.Digamma(u[i]) - psiSum
		cum += mathext.Digamma(v[i]) - psiSum
	}
	elog[len(u)] = cum
	return elog
}

// LogNormalize turns a vector of log weights into a normalized
// probability vector in place and returns the log normalizer.
func LogNormalize(v []float64) float64 {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	sum := 0.0
	for _, x := range v {
		sum += math.Exp(x - max)
	}
	logNorm := math.Log(sum) + max
	for i := range v {
		v[i] = math.Exp(v[i] - logNorm)
	}
	return logNorm
}
