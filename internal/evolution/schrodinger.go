package evolution

import (
	"context"
	"fmt"

	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// Schrodinger evolves a pure state under dψ/ds = -i·tf·H(s)ψ.
func Schrodinger(ctx context.Context, p *Problem, opts Options) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.State == nil {
		return nil, fmt.Errorf("%w: Schrodinger needs a pure state vector", ErrInitialState)
	}

	tf := p.Horizon
	h := p.Hamiltonian
	c := complex(0, -tf)
	f := func(s float64, y solver.State) solver.State {
		dy := h.Evaluate(s).MulVec(operator.Vector(y))
		out := make(solver.State, len(dy))
		for i := range dy {
			out[i] = c * dy[i]
		}
		return out
	}

	sol, err := solver.Solve(ctx, f, solver.State(p.State), 1, p.solverConfig(opts, KindVector))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, h.Dim(), KindVector, tf), nil
}

// VonNeumann evolves a density matrix under dρ/ds = -i·tf·[H(s), ρ].
// The matrix is carried flattened row-major; flatten and reconstruction are
// exact inverses.
func VonNeumann(ctx context.Context, p *Problem, opts Options) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	tf := p.Horizon
	h := p.Hamiltonian
	d := h.Dim()
	c := complex(0, -tf)
	f := func(s float64, y solver.State) solver.State {
		rho := operator.Unflatten(d, y)
		return h.Evaluate(s).Commutator(rho).Scale(c).Flatten()
	}

	sol, err := solver.Solve(ctx, f, p.initialDensity().Flatten(), 1, p.solverConfig(opts, KindMatrix))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, d, KindMatrix, tf), nil
}
