package bath

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/integrate/quad"
)

// Ohmic is a stationary bosonic bath with an Ohmic spectral density and
// exponential cutoff at finite temperature:
//
//	γ(ω) = 2πη ω e^{-|ω|/ωc} / (1 - e^{-βω}),  γ(0) = 2πη/β.
//
// The correlation function C(t), the Fourier partner of γ, is tabulated once
// at construction. Parameters are immutable after NewOhmic.
type Ohmic struct {
	coupling float64 // η
	cutoff   float64 // ωc
	beta     float64 // 1/T

	corr     *tabulated
	omegaMax float64
}

// OhmicOptions tunes the correlation-function tabulation. Zero values pick
// defaults wide enough for the default cutoff/temperature regime.
type OhmicOptions struct {
	OmegaMax float64 // frequency window half-width; default 20·max(ωc, 1/β)
	Samples  int     // FFT sample count, multiple of 4; default 4096
}

func NewOhmic(coupling, cutoff, beta float64, opts OhmicOptions) *Ohmic {
	b := &Ohmic{coupling: coupling, cutoff: cutoff, beta: beta}
	b.omegaMax = opts.OmegaMax
	if b.omegaMax <= 0 {
		b.omegaMax = 20 * math.Max(cutoff, 1/beta)
	}
	n := opts.Samples
	if n <= 0 {
		n = 4096
	}
	ts, gs := inverseFourier(func(w float64) complex128 {
		return complex(b.SpectralDensity(w), 0)
	}, b.omegaMax, n)
	tb, err := newTabulated(ts, gs)
	if err != nil {
		// Grids produced by inverseFourier are strictly increasing; a fit
		// failure means a programming error, not bad input.
		panic(err)
	}
	b.corr = tb
	return b
}

func (b *Ohmic) Label() string { return "ohmic" }

func (b *Ohmic) SpectralDensity(omega float64) float64 {
	if omega == 0 {
		return 2 * math.Pi * b.coupling / b.beta
	}
	return 2 * math.Pi * b.coupling * omega * math.Exp(-math.Abs(omega)/b.cutoff) /
		(1 - math.Exp(-b.beta*omega))
}

// Correlation returns C(t) = (1/2π) ∫ γ(ω) e^{-iωt} dω. γ is real, so this is
// the conjugate of the tabulated e^{+iωt} transform.
func (b *Ohmic) Correlation(t float64) complex128 {
	return cmplx.Conj(b.corr.at(t))
}

// LambShift evaluates S(ω) = (1/2π) PV ∫ γ(ω')/(ω-ω') dω' by folding the
// principal value into ∫₀ [γ(ω-τ) - γ(ω+τ)]/τ dτ, which is regular at τ=0.
func (b *Ohmic) LambShift(omega float64) float64 {
	f := func(tau float64) float64 {
		return (b.SpectralDensity(omega-tau) - b.SpectralDensity(omega+tau)) / tau
	}
	return quad.Fixed(f, 1e-12, b.omegaMax, 200, nil, 0) / (2 * math.Pi)
}

// MemoryTime estimates the decay time of |C(t)|, used to size Redfield
// integration windows and to sanity-check coarse-graining times.
func (b *Ohmic) MemoryTime() float64 {
	c0 := cmplx.Abs(b.Correlation(0))
	if c0 == 0 {
		return 0
	}
	t, dt := 0.0, 1e-2/math.Max(b.cutoff, 1/b.beta)
	for t < b.corr.tmax {
		t += dt
		if cmplx.Abs(b.Correlation(t)) < 1e-3*c0 {
			return t
		}
	}
	return b.corr.tmax
}
