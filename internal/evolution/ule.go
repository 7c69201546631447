package evolution

import (
	"context"
	"fmt"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// ULEOptions tunes the universal Lindblad equation.
type ULEOptions struct {
	Options

	// QuadNodes is the node count for the jump-operator integral over the
	// correlator window; zero picks a default.
	QuadNodes int
}

// ULE integrates the universal Lindblad equation. Each interaction
// contributes a single jump operator
//
//	L_α(s) = ∫ dτ g_α(τ) U(s, s-τ/tf) A_α U(s, s-τ/tf)†
//
// built from the bath's jump correlator g rather than from C, so the
// generator is of Lindblad form and completely positive by construction.
// Requires a bath exposing a jump correlator.
func ULE(ctx context.Context, p *Problem, cache *UnitaryCache, opts ULEOptions) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.requireInteractions(); err != nil {
		return nil, err
	}
	if cache == nil || cache.Dim() != p.Hamiltonian.Dim() {
		return nil, fmt.Errorf("%w: unitary cache dimension", ErrDimensionMismatch)
	}

	jumps := make([]bath.JumpCorrelator, len(p.Interactions))
	for i, in := range p.Interactions {
		j, ok := in.Bath.(bath.JumpCorrelator)
		if !ok {
			return nil, fmt.Errorf("%w: ULE needs a jump correlator, bath %q", ErrBathCapability, in.Bath.Label())
		}
		jumps[i] = j
	}

	nodes := opts.QuadNodes
	if nodes <= 0 {
		nodes = 32
	}
	tf := p.Horizon
	d := p.Hamiltonian.Dim()
	h := p.Hamiltonian
	uAt := cache.At

	f := func(s float64, y solver.State) solver.State {
		rho := operator.Unflatten(d, y)
		drho := h.Evaluate(s).Commutator(rho).Scale(complex(0, -tf))

		us := uAt(s)
		usd := us.Dagger()

		for ai, in := range p.Interactions {
			win := jumps[ai].Window()
			taus, ws := gaussNodes(-win, win, nodes)

			l := operator.New(d)
			for i, tau := range taus {
				si := s - tau/tf
				ui := uAt(si)
				m := us.Mul(ui.Dagger()).Mul(in.Coupling).Mul(ui).Mul(usd)
				l = l.Add(m.Scale(complex(ws[i], 0) * jumps[ai].JumpCorrelator(tau)))
			}

			ld := l.Dagger()
			diss := l.Mul(rho).Mul(ld).Sub(ld.Mul(l).Anticommutator(rho).Scale(0.5))
			drho = drho.Add(diss.Scale(complex(tf, 0)))
		}
		return drho.Flatten()
	}

	sol, err := solver.Solve(ctx, f, p.initialDensity().Flatten(), 1, p.solverConfig(opts.Options, KindMatrix))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, d, KindMatrix, tf), nil
}
