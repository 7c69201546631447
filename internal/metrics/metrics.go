package metrics

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
)

// Purity returns Tr ρ², 1 for pure states down to 1/d for the maximally
// mixed state.
func Purity(rho operator.Matrix) float64 {
	return real(operator.TraceProduct(rho, rho))
}

// VonNeumannEntropy returns -Tr ρ ln ρ. Eigenvalues below a small floor are
// treated as zero, so slightly negative values from a truncated positivity
// violation do not produce NaN.
func VonNeumannEntropy(rho operator.Matrix) (float64, error) {
	evals, _, err := operator.EigHermitian(rho.HermitianPart())
	if err != nil {
		return 0, err
	}
	var s float64
	for _, lam := range evals {
		if lam > 1e-12 {
			s -= lam * math.Log(lam)
		}
	}
	return s, nil
}

// TraceDistance returns ½ Tr |ρ - σ|.
func TraceDistance(rho, sigma operator.Matrix) (float64, error) {
	evals, _, err := operator.EigHermitian(rho.Sub(sigma).HermitianPart())
	if err != nil {
		return 0, err
	}
	var d float64
	for _, lam := range evals {
		d += math.Abs(lam)
	}
	return d / 2, nil
}

// Fidelity returns ⟨ψ|ρ|ψ⟩, the overlap of a mixed state with a pure target.
func Fidelity(rho operator.Matrix, psi operator.Vector) float64 {
	return real(psi.Dot(rho.MulVec(psi)))
}

// Gibbs builds e^{-βH(s)}/Z for the Hamiltonian frozen at schedule point s.
func Gibbs(h *hamiltonian.Hamiltonian, beta, s float64) (operator.Matrix, error) {
	evals, evecs, err := operator.EigHermitian(h.Evaluate(s))
	if err != nil {
		return operator.Matrix{}, err
	}

	// Shift by the ground energy before exponentiating.
	e0 := evals[0]
	var z float64
	weights := make([]float64, len(evals))
	for i, e := range evals {
		weights[i] = math.Exp(-beta * (e - e0))
		z += weights[i]
	}

	d := h.Dim()
	rho := operator.New(d)
	for i, v := range evecs {
		w := complex(weights[i]/z, 0)
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				rho.Set(a, b, rho.At(a, b)+w*v[a]*cmplx.Conj(v[b]))
			}
		}
	}
	return rho, nil
}
