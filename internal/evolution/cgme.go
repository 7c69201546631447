package evolution

import (
	"context"
	"fmt"
	"math/cmplx"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// CGMEOptions tunes the coarse-grained master equation. The internal
// quadrature tolerances are deliberately decoupled from the outer ODE
// tolerance in Options.Solver: tightening one does not imply tightening the
// other, and the trade-off between the averaging window and either tolerance
// is the caller's to make.
type CGMEOptions struct {
	Options

	// Averaging is the coarse-graining window Ta in absolute time. Required.
	Averaging float64

	// QuadAbsTol and QuadRelTol size the internal quadrature; QuadNodes
	// overrides them with an explicit node count.
	QuadAbsTol float64
	QuadRelTol float64
	QuadNodes  int
}

// CGME integrates the coarse-grained master equation: the Redfield double
// integral additionally time-averaged over a window Ta, which trades a
// discretization bias for a completely positive generator. The discrete
// kernel w_i w_j C(τ_i-τ_j) is positive semidefinite because C is the
// Fourier transform of a non-negative spectrum, so each right-hand side is
// of Lindblad form.
func CGME(ctx context.Context, p *Problem, cache *UnitaryCache, opts CGMEOptions) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.requireInteractions(); err != nil {
		return nil, err
	}
	if opts.Averaging <= 0 {
		return nil, fmt.Errorf("%w: CGME requires a positive averaging window", solver.ErrConfig)
	}
	if cache == nil || cache.Dim() != p.Hamiltonian.Dim() {
		return nil, fmt.Errorf("%w: unitary cache dimension", ErrDimensionMismatch)
	}

	correlators := make([]bath.Correlator, len(p.Interactions))
	for i, in := range p.Interactions {
		c, ok := in.Bath.(bath.Correlator)
		if !ok {
			return nil, fmt.Errorf("%w: CGME needs a correlation function, bath %q", ErrBathCapability, in.Bath.Label())
		}
		correlators[i] = c

		if m, ok := in.Bath.(interface{ MemoryTime() float64 }); ok {
			if mem := m.MemoryTime(); mem > 0 && opts.Averaging < mem {
				opts.Log.Warn().
					Str("component", "cgme").
					Float64("averaging", opts.Averaging).
					Float64("bath_memory", mem).
					Msg("coarse-graining window shorter than bath memory time")
			}
		}
	}

	nodes := opts.QuadNodes
	if nodes <= 0 {
		nodes = nodesForTolerance(opts.QuadAbsTol, opts.QuadRelTol)
	}
	ta := opts.Averaging
	tf := p.Horizon
	d := p.Hamiltonian.Dim()
	h := p.Hamiltonian
	uAt := cache.At
	taus, ws := gaussNodes(-ta/2, ta/2, nodes)

	f := func(s float64, y solver.State) solver.State {
		rho := operator.Unflatten(d, y)
		drho := h.Evaluate(s).Commutator(rho).Scale(complex(0, -tf))

		us := uAt(s)
		usd := us.Dagger()

		for ai, in := range p.Interactions {
			// Dressed couplings at each window node, clamped to the cached
			// propagator's domain.
			dressed := make([]operator.Matrix, nodes)
			for i, tau := range taus {
				si := s + tau/tf
				ui := uAt(si)
				dressed[i] = us.Mul(ui.Dagger()).Mul(in.Coupling).Mul(ui).Mul(usd)
			}

			diss := operator.New(d)
			for i := 0; i < nodes; i++ {
				for j := 0; j < nodes; j++ {
					k := complex(ws[i]*ws[j], 0) * correlators[ai].Correlation(taus[i]-taus[j])
					if cmplx.Abs(k) == 0 {
						continue
					}
					ajr := dressed[j].Mul(rho).Mul(dressed[i])
					anti := dressed[i].Mul(dressed[j]).Anticommutator(rho).Scale(0.5)
					diss = diss.Add(ajr.Sub(anti).Scale(k))
				}
			}
			drho = drho.Add(diss.Scale(complex(tf/ta, 0)))
		}
		return drho.Flatten()
	}

	sol, err := solver.Solve(ctx, f, p.initialDensity().Flatten(), 1, p.solverConfig(opts.Options, KindMatrix))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, d, KindMatrix, tf), nil
}
