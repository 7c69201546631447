package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/interp"
)

// Spectrum is the one-sided power spectrum of an observable trace.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// PowerSpectrum resamples the trace onto a uniform power-of-2 grid and
// returns its one-sided power spectrum. Times must be increasing; adaptive
// integrator output is accepted as-is.
func PowerSpectrum(times, values []float64) (*Spectrum, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("analysis: %d times for %d values", len(times), len(values))
	}
	if len(times) < 4 {
		return nil, fmt.Errorf("analysis: need at least 4 samples, got %d", len(times))
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return nil, fmt.Errorf("analysis: trace spans no time")
	}

	// Event handling duplicates grid times; keep the post-event sample.
	ts := make([]float64, 0, len(times))
	vs := make([]float64, 0, len(values))
	for i := range times {
		if len(ts) > 0 && times[i] == ts[len(ts)-1] {
			vs[len(vs)-1] = values[i]
			continue
		}
		ts = append(ts, times[i])
		vs = append(vs, values[i])
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, vs); err != nil {
		return nil, fmt.Errorf("analysis: resample: %w", err)
	}

	n := nextPow2(len(ts))
	uniform := make([]float64, n)
	for i := range uniform {
		uniform[i] = pl.Predict(times[0] + span*float64(i)/float64(n-1))
	}

	coeffs := fft.FFTReal(uniform)
	dt := span / float64(n-1)
	s := &Spectrum{
		Freqs: make([]float64, n/2),
		Power: make([]float64, n/2),
	}
	for k := 0; k < n/2; k++ {
		s.Freqs[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = cmplx.Abs(coeffs[k])
	}
	return s, nil
}

// Dominant returns the frequency of the strongest non-DC component.
func (s *Spectrum) Dominant() float64 {
	best, bestPow := 0.0, 0.0
	for k := 1; k < len(s.Freqs); k++ {
		if s.Power[k] > bestPow {
			best, bestPow = s.Freqs[k], s.Power[k]
		}
	}
	return best
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
