package evolution

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// RedfieldOptions tunes the time-convolutionless second-order generator.
type RedfieldOptions struct {
	Options

	// Memory limits the correlation integral to [s - Memory, s] in absolute
	// time. Zero integrates from the start of the evolution.
	Memory float64

	// QuadNodes is the Gauss-Legendre node count for the correlation
	// integral; zero picks a default.
	QuadNodes int
}

// Redfield integrates the second-order time-convolutionless master equation
//
//	dρ/ds = tf(-i[H(s),ρ] + Σ_α [Λ_α(s)ρ, A_α] + [A_α, ρΛ_α(s)†])
//
// with Λ_α(s) = tf ∫₀ˢ ds' C_α(tf(s-s')) U(s,s') A_α U(s,s')†, the
// interaction-picture coupling dressed by the cached propagator. The
// resulting map is not completely positive: it can and does drive density
// matrices to negative eigenvalues, which the positivity monitor reports
// as a PositivityError rather than treating as a defect.
func Redfield(ctx context.Context, p *Problem, cache *UnitaryCache, opts RedfieldOptions) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.requireInteractions(); err != nil {
		return nil, err
	}
	if cache == nil || cache.Dim() != p.Hamiltonian.Dim() {
		return nil, fmt.Errorf("%w: unitary cache dimension", ErrDimensionMismatch)
	}

	correlators := make([]bath.Correlator, len(p.Interactions))
	for i, in := range p.Interactions {
		c, ok := in.Bath.(bath.Correlator)
		if !ok {
			return nil, fmt.Errorf("%w: Redfield needs a correlation function, bath %q", ErrBathCapability, in.Bath.Label())
		}
		correlators[i] = c
	}

	nodes := opts.QuadNodes
	if nodes <= 0 {
		nodes = 24
	}
	tf := p.Horizon
	d := p.Hamiltonian.Dim()
	h := p.Hamiltonian
	uAt := cache.At

	f := func(s float64, y solver.State) solver.State {
		rho := operator.Unflatten(d, y)
		drho := h.Evaluate(s).Commutator(rho).Scale(complex(0, -tf))

		lo := 0.0
		if opts.Memory > 0 {
			lo = math.Max(0, s-opts.Memory/tf)
		}
		if s-lo > 1e-12 {
			us := uAt(s)
			usd := us.Dagger()
			xs, ws := gaussNodes(lo, s, nodes)

			for ai, in := range p.Interactions {
				lam := operator.New(d)
				for i := range xs {
					usp := uAt(xs[i])
					m := us.Mul(usp.Dagger()).Mul(in.Coupling).Mul(usp).Mul(usd)
					cw := complex(ws[i], 0) * correlators[ai].Correlation(tf*(s-xs[i]))
					lam = lam.Add(m.Scale(cw))
				}
				lam = lam.Scale(complex(tf, 0))

				a := in.Coupling
				lr := lam.Mul(rho)
				rl := rho.Mul(lam.Dagger())
				diss := lr.Mul(a).Sub(a.Mul(lr)).Add(a.Mul(rl)).Sub(rl.Mul(a))
				drho = drho.Add(diss.Scale(complex(tf, 0)))
			}
		}
		return drho.Flatten()
	}

	sol, err := solver.Solve(ctx, f, p.initialDensity().Flatten(), 1, p.solverConfig(opts.Options, KindMatrix))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, d, KindMatrix, tf), nil
}
