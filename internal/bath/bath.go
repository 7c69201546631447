// Package bath models the noise environments coupled to a quantum system.
//
// Baths are polymorphic over capabilities: a variant implements only the
// subset of {Correlator, Spectral, JumpCorrelator, Sampler} it supports, and
// each master-equation integrator asserts the capability it needs, failing
// fast when it is absent.
package bath

import "math/rand"

// Bath is the common handle for all variants.
type Bath interface {
	Label() string
}

// Correlator exposes the two-time correlation function C(t).
type Correlator interface {
	Bath
	Correlation(t float64) complex128
}

// Spectral exposes the noise spectral density γ(ω), non-negative everywhere.
type Spectral interface {
	Bath
	SpectralDensity(omega float64) float64
}

// JumpCorrelator exposes g(t) = (1/2π)∫√γ(ω) e^{iωt} dω, tabulated on
// [-Window, Window] with flat extrapolation outside.
type JumpCorrelator interface {
	Bath
	JumpCorrelator(t float64) complex128
	Window() float64
}

// Sampler draws one full-horizon classical noise realization. The returned
// function is owned by the caller and safe to use from a single trajectory.
type Sampler interface {
	Bath
	SampleRealization(rng *rand.Rand, horizon float64) func(t float64) float64
}

// LambShifter optionally provides the principal-value shift integral
// S(ω) = (1/2π) PV ∫ γ(ω')/(ω-ω') dω'.
type LambShifter interface {
	LambShift(omega float64) float64
}
