package evolution

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// AMEOptions tunes the adiabatic master equation.
type AMEOptions struct {
	Options

	// Levels restricts the generator to transitions among the lowest-energy
	// eigenstates; zero uses the full spectrum.
	Levels int

	// LambShift adds the coherent shift term when the bath provides the
	// principal-value integral.
	LambShift bool

	// FreqTol groups Bohr frequencies that differ by less than this absolute
	// tolerance into one jump operator; zero picks a default.
	FreqTol float64
}

// AME integrates the adiabatic master equation: at every evaluated time the
// instantaneous eigenbasis of H(s) is computed, couplings are projected into
// that frame, and a Davies-type generator applies one jump operator per
// distinct Bohr frequency with rate γ(ω). Requires baths exposing a spectral
// density; combining two baths on one channel is done ahead of time with
// bath.NewHybrid.
func AME(ctx context.Context, p *Problem, opts AMEOptions) (*Trajectory, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.requireInteractions(); err != nil {
		return nil, err
	}

	spectra := make([]bath.Spectral, len(p.Interactions))
	for i, in := range p.Interactions {
		sp, ok := in.Bath.(bath.Spectral)
		if !ok {
			return nil, fmt.Errorf("%w: AME needs a spectral density, bath %q", ErrBathCapability, in.Bath.Label())
		}
		spectra[i] = sp
	}

	freqTol := opts.FreqTol
	if freqTol <= 0 {
		freqTol = 1e-9
	}
	tf := p.Horizon
	d := p.Hamiltonian.Dim()
	h := p.Hamiltonian

	f := func(s float64, y solver.State) solver.State {
		rho := operator.Unflatten(d, y)
		hm := h.Evaluate(s)

		evals, evecs, err := operator.EigHermitian(hm)
		if err != nil {
			// A failed eigensolve leaves only the coherent part; the solver's
			// error control will reject the step if this matters.
			return hm.Commutator(rho).Scale(complex(0, -tf)).Flatten()
		}
		nlv := d
		if opts.Levels > 0 && opts.Levels < d {
			nlv = opts.Levels
		}

		heff := hm
		diss := operator.New(d)
		for ai, in := range p.Interactions {
			for _, grp := range bohrGroups(evals, nlv, freqTol) {
				aw := operator.New(d)
				for _, pr := range grp.pairs {
					amp := evecs[pr.a].Dot(in.Coupling.MulVec(evecs[pr.b]))
					if amp == 0 {
						continue
					}
					aw = aw.Add(operator.Outer(evecs[pr.a], evecs[pr.b]).Scale(amp))
				}
				awd := aw.Dagger()
				gamma := spectra[ai].SpectralDensity(grp.omega)
				diss = diss.Add(aw.Mul(rho).Mul(awd).Sub(awd.Mul(aw).Anticommutator(rho).Scale(0.5)).Scale(complex(gamma, 0)))

				if opts.LambShift {
					if ls, ok := p.Interactions[ai].Bath.(bath.LambShifter); ok {
						heff = heff.Add(awd.Mul(aw).Scale(complex(ls.LambShift(grp.omega), 0)))
					}
				}
			}
		}

		drho := heff.Commutator(rho).Scale(complex(0, -tf)).Add(diss.Scale(complex(tf, 0)))
		return drho.Flatten()
	}

	sol, err := solver.Solve(ctx, f, p.initialDensity().Flatten(), 1, p.solverConfig(opts.Options, KindMatrix))
	if err != nil {
		return nil, wrapSolverErr(err, sol, tf)
	}
	return newTrajectory(sol, d, KindMatrix, tf), nil
}

type bohrPair struct{ a, b int }

type bohrGroup struct {
	omega float64
	pairs []bohrPair
}

// bohrGroups collects level pairs by transition frequency ω_ba = e_b - e_a,
// merging frequencies closer than tol.
func bohrGroups(evals []float64, nlv int, tol float64) []bohrGroup {
	type entry struct {
		omega float64
		pair  bohrPair
	}
	entries := make([]entry, 0, nlv*nlv)
	for a := 0; a < nlv; a++ {
		for b := 0; b < nlv; b++ {
			entries = append(entries, entry{omega: evals[b] - evals[a], pair: bohrPair{a, b}})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].omega < entries[j].omega })

	groups := make([]bohrGroup, 0, len(entries))
	for _, e := range entries {
		if n := len(groups); n > 0 && math.Abs(e.omega-groups[n-1].omega) <= tol {
			groups[n-1].pairs = append(groups[n-1].pairs, e.pair)
			continue
		}
		groups = append(groups, bohrGroup{omega: e.omega, pairs: []bohrPair{e.pair}})
	}
	return groups
}
