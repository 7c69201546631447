package evolution

import (
	"math"

	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// Kind distinguishes amplitude-vector trajectories from flattened
// density-matrix (or propagator) trajectories.
type Kind int

const (
	KindVector Kind = iota
	KindMatrix
)

// Trajectory is a continuous, densely-interpolated solution over
// [0, Horizon], independent of the Problem that produced it.
type Trajectory struct {
	sol     *solver.Solution
	dim     int
	kind    Kind
	horizon float64
}

func newTrajectory(sol *solver.Solution, dim int, kind Kind, horizon float64) *Trajectory {
	return &Trajectory{sol: sol, dim: dim, kind: kind, horizon: horizon}
}

func (tr *Trajectory) Dim() int         { return tr.dim }
func (tr *Trajectory) Kind() Kind       { return tr.kind }
func (tr *Trajectory) Horizon() float64 { return tr.horizon }

// Times returns the discrete solver grid in absolute time.
func (tr *Trajectory) Times() []float64 {
	grid := tr.sol.Grid()
	out := make([]float64, len(grid))
	for i, s := range grid {
		out[i] = s * tr.horizon
	}
	return out
}

// State returns the raw state vector at absolute time t.
func (tr *Trajectory) State(t float64) solver.State {
	return tr.sol.At(t / tr.horizon)
}

// Vector returns the pure state at t. Only meaningful for KindVector.
func (tr *Trajectory) Vector(t float64) operator.Vector {
	return operator.Vector(tr.State(t))
}

// Density returns the density matrix at t, promoting a pure state to
// |ψ⟩⟨ψ| when the trajectory is vector-kind.
func (tr *Trajectory) Density(t float64) operator.Matrix {
	y := tr.State(t)
	if tr.kind == KindVector {
		v := operator.Vector(y)
		return operator.Outer(v, v)
	}
	return operator.Unflatten(tr.dim, y)
}

// Expect returns Re⟨A⟩ at absolute time t.
func (tr *Trajectory) Expect(t float64, a operator.Matrix) float64 {
	if tr.kind == KindVector {
		return real(operator.Expectation(a, tr.Vector(t)))
	}
	return real(operator.TraceProduct(a, tr.Density(t)))
}

// Truncated reports early termination by the positivity monitor (or another
// step monitor): whether it happened, the absolute time, and the reason.
func (tr *Trajectory) Truncated() (bool, float64, error) {
	if !tr.sol.Halted {
		return false, 0, nil
	}
	return true, tr.sol.HaltTime * tr.horizon, tr.sol.HaltErr
}

// End returns the last time the trajectory covers: the horizon, or the
// truncation time for halted runs.
func (tr *Trajectory) End() float64 {
	s, _ := tr.sol.Last()
	return s * tr.horizon
}

// Norm returns the state 2-norm at t; for closed pure-state evolution this
// is conserved and serves as a correctness invariant.
func (tr *Trajectory) Norm(t float64) float64 {
	sum := 0.0
	for _, z := range tr.State(t) {
		sum += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(sum)
}
