// Package hamiltonian represents time-dependent Hamiltonians as weighted sums
// of constant operators with scalar time-dependent coefficients.
package hamiltonian

import (
	"errors"
	"fmt"

	"github.com/san-kum/qudyn/internal/operator"
)

var ErrDimensionMismatch = errors.New("hamiltonian: operators must share one dimension")

// Coefficient is a scalar schedule evaluated at the dimensionless time
// s ∈ [0,1]. Implementations must be side-effect free and total: callers may
// probe slightly outside [0,1] and expect a finite value.
type Coefficient func(s float64) float64

type Term struct {
	Coeff Coefficient
	Op    operator.Matrix
}

// Hamiltonian is H(s) = units · Σ_k c_k(s) A_k. Immutable after construction.
type Hamiltonian struct {
	terms []Term
	dim   int
	units float64
}

// New builds a Hamiltonian from one or more terms. units is the energy-unit
// convention scalar (1 for ħ=1 natural units, 2π for frequencies in Hz).
func New(units float64, terms ...Term) (*Hamiltonian, error) {
	if len(terms) == 0 {
		return nil, errors.New("hamiltonian: at least one term required")
	}
	dim := terms[0].Op.Dim()
	for i, tm := range terms {
		if tm.Op.Dim() != dim {
			return nil, fmt.Errorf("%w: term %d has dim %d, expected %d", ErrDimensionMismatch, i, tm.Op.Dim(), dim)
		}
		if tm.Coeff == nil {
			return nil, fmt.Errorf("hamiltonian: term %d has nil coefficient", i)
		}
	}
	out := &Hamiltonian{terms: make([]Term, len(terms)), dim: dim, units: units}
	copy(out.terms, terms)
	return out, nil
}

// Constant wraps a single time-independent operator.
func Constant(op operator.Matrix) *Hamiltonian {
	h, _ := New(1, Term{Coeff: func(float64) float64 { return 1 }, Op: op})
	return h
}

func (h *Hamiltonian) Dim() int       { return h.dim }
func (h *Hamiltonian) Units() float64 { return h.units }

// Evaluate returns H(s). Cheap enough to call at every integrator step.
func (h *Hamiltonian) Evaluate(s float64) operator.Matrix {
	out := operator.New(h.dim)
	for _, tm := range h.terms {
		c := complex(h.units*tm.Coeff(s), 0)
		if c == 0 {
			continue
		}
		for i := 0; i < h.dim; i++ {
			for j := 0; j < h.dim; j++ {
				out.Set(i, j, out.At(i, j)+c*tm.Op.At(i, j))
			}
		}
	}
	return out
}

// With returns a new Hamiltonian extended by extra terms; the receiver is
// unchanged. Used by stochastic samplers to attach per-realization noise
// terms without sharing mutable state across trajectories.
func (h *Hamiltonian) With(terms ...Term) (*Hamiltonian, error) {
	all := make([]Term, 0, len(h.terms)+len(terms))
	all = append(all, h.terms...)
	all = append(all, terms...)
	return New(h.units, all...)
}
