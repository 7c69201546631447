package bath

import (
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Hybrid combines two independently-parameterized spectral baths acting on
// the same coupling channel. The summed spectrum is tabulated once and
// interpolated so that costly closed-form integrals are not re-evaluated at
// every integrator step.
type Hybrid struct {
	omegaMax float64
	spline   interp.PiecewiseLinear
}

func NewHybrid(a, b Spectral, omegaMax float64, samples int) (*Hybrid, error) {
	if samples < 2 {
		return nil, fmt.Errorf("bath: hybrid tabulation needs at least 2 samples, got %d", samples)
	}
	xs := make([]float64, samples)
	ys := make([]float64, samples)
	for i := 0; i < samples; i++ {
		w := -omegaMax + 2*omegaMax*float64(i)/float64(samples-1)
		xs[i] = w
		ys[i] = a.SpectralDensity(w) + b.SpectralDensity(w)
	}
	h := &Hybrid{omegaMax: omegaMax}
	if err := h.spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("bath: hybrid tabulation fit: %w", err)
	}
	return h, nil
}

func (h *Hybrid) Label() string { return "hybrid" }

func (h *Hybrid) SpectralDensity(omega float64) float64 {
	if omega < -h.omegaMax {
		omega = -h.omegaMax
	} else if omega > h.omegaMax {
		omega = h.omegaMax
	}
	return h.spline.Predict(omega)
}
