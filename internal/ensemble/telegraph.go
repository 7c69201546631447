package ensemble

import (
	"math/rand"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
)

// TelegraphSampler builds a SampleFunc that, per trajectory, draws one
// telegraph noise realization n(t) and attaches the classical stochastic
// term n(t)·coupling to the template Hamiltonian. The template itself is
// never mutated; each realization owns its sampled step function.
func TelegraphSampler(coupling operator.Matrix, b bath.Sampler) SampleFunc {
	return func(rng *rand.Rand, base *evolution.Problem) (*evolution.Problem, error) {
		noise := b.SampleRealization(rng, base.Horizon)
		tf := base.Horizon
		h, err := base.Hamiltonian.With(hamiltonian.Term{
			Coeff: func(s float64) float64 { return noise(s * tf) },
			Op:    coupling,
		})
		if err != nil {
			return nil, err
		}
		p := *base
		p.Hamiltonian = h
		return &p, nil
	}
}
