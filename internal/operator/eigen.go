package operator

import (
	"errors"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

var errEigenFailed = errors.New("operator: eigendecomposition failed to converge")

// EigHermitian diagonalizes a Hermitian matrix, returning eigenvalues in
// ascending order with matching normalized eigenvectors.
//
// A Hermitian H = A + iB is embedded as the 2n×2n real symmetric matrix
// [[A, -B], [B, A]], whose spectrum is that of H with every eigenvalue
// doubled. The n complex eigenvectors are recovered from the real ones,
// discarding duplicates by Gram-Schmidt within each degenerate block.
func EigHermitian(m Matrix) ([]float64, []Vector, error) {
	n := m.n
	big := 2 * n
	data := make([]float64, big*big)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			re := real(m.data[i*n+j])
			im := imag(m.data[i*n+j])
			data[i*big+j] = re
			data[(n+i)*big+n+j] = re
			data[i*big+n+j] = -im
			data[(n+i)*big+j] = im
		}
	}
	sym := mat.NewSymDense(big, data)

	var es mat.EigenSym
	if !es.Factorize(sym, true) {
		return nil, nil, errEigenFailed
	}
	vals := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	evals := make([]float64, 0, n)
	evecs := make([]Vector, 0, n)
	for col := 0; col < big && len(evals) < n; col++ {
		v := make(Vector, n)
		for i := 0; i < n; i++ {
			v[i] = complex(ev.At(i, col), ev.At(n+i, col))
		}
		// Drop components along already-accepted eigenvectors of the same
		// eigenvalue; a real pair that maps to i times a kept vector
		// vanishes here.
		for k := len(evals) - 1; k >= 0 && math.Abs(evals[k]-vals[col]) < 1e-9*(1+math.Abs(vals[col])); k-- {
			ov := evecs[k].Dot(v)
			for i := range v {
				v[i] -= ov * evecs[k][i]
			}
		}
		norm := v.Norm()
		if norm < 1e-8 {
			continue
		}
		for i := range v {
			v[i] /= complex(norm, 0)
		}
		evals = append(evals, vals[col])
		evecs = append(evecs, v)
	}
	if len(evals) != n {
		return nil, nil, errEigenFailed
	}
	return evals, evecs, nil
}

// MinEigenvalue returns the smallest eigenvalue of the Hermitian part of m.
func MinEigenvalue(m Matrix) (float64, error) {
	vals, _, err := EigHermitian(m.HermitianPart())
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

// Phase strips a global phase so that the largest component is real positive.
// Used to compare state vectors that differ only by a physically
// irrelevant phase.
func Phase(v Vector) Vector {
	maxAbs, arg := 0.0, 0.0
	for _, z := range v {
		if a := cmplx.Abs(z); a > maxAbs {
			maxAbs = a
			arg = cmplx.Phase(z)
		}
	}
	return v.Scale(cmplx.Exp(complex(0, -arg)))
}
