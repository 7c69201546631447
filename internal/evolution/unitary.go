package evolution

import (
	"context"

	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// UnitaryCache is a densely-interpolated trajectory of unitary propagators
// U(s) with U(0) = I. Produced once and shared read-only by the Redfield,
// CGME and ULE generators, which would otherwise recompute nested double-time
// integrals from scratch.
type UnitaryCache struct {
	dim     int
	horizon float64
	sol     *solver.Solution
}

// Propagator solves dU/ds = -i·tf·H(s)·U and caches the result.
func Propagator(ctx context.Context, h *hamiltonian.Hamiltonian, horizon float64, opts Options) (*UnitaryCache, error) {
	if horizon <= 0 {
		return nil, ErrHorizon
	}
	d := h.Dim()
	c := complex(0, -horizon)
	f := func(s float64, y solver.State) solver.State {
		u := operator.Unflatten(d, y)
		return h.Evaluate(s).Mul(u).Scale(c).Flatten()
	}

	cfg := opts.Solver
	if cfg.Algorithm == "" && cfg.AbsTol == 0 {
		cfg = solver.DefaultConfig()
	}
	sol, err := solver.Solve(ctx, f, operator.Identity(d).Flatten(), 1, cfg)
	if err != nil {
		return nil, wrapSolverErr(err, sol, horizon)
	}
	return &UnitaryCache{dim: d, horizon: horizon, sol: sol}, nil
}

func (c *UnitaryCache) Dim() int         { return c.dim }
func (c *UnitaryCache) Horizon() float64 { return c.horizon }

// At returns U(s) for dimensionless s, clamped to [0, 1]. Dense interpolation
// makes it cheap enough to call per quadrature node.
func (c *UnitaryCache) At(s float64) operator.Matrix {
	return operator.Unflatten(c.dim, c.sol.At(s))
}

// Trajectory exposes the cache as an ordinary propagator trajectory.
func (c *UnitaryCache) Trajectory() *Trajectory {
	return newTrajectory(c.sol, c.dim, KindMatrix, c.horizon)
}
