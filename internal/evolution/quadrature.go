package evolution

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// gaussNodes returns Gauss-Legendre nodes and weights on [a, b].
func gaussNodes(a, b float64, n int) (x, w []float64) {
	x = make([]float64, n)
	w = make([]float64, n)
	quad.Legendre{}.FixedLocations(x, w, a, b)
	return x, w
}

// nodesForTolerance maps an absolute/relative quadrature tolerance pair to a
// Gauss-Legendre node count. The mapping is a heuristic: Gauss quadrature
// converges spectrally on smooth integrands, so a handful of nodes per decade
// of requested accuracy suffices. Independent of the outer ODE tolerance.
func nodesForTolerance(absTol, relTol float64) int {
	tol := math.Min(absTol, relTol)
	if tol <= 0 || tol >= 1 {
		return 16
	}
	n := 8 + 4*int(math.Ceil(-math.Log10(tol)))
	if n > 64 {
		n = 64
	}
	return n
}
