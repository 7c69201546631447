package bath

import (
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/interp"
)

// inverseFourier tabulates g(t) = (1/2π) ∫ F(ω) e^{iωt} dω on a centered grid
// by sampling F on [-omegaMax, omegaMax) with n points and applying an inverse
// FFT. n must be a multiple of 4 so the centered-grid phase factor is unity.
func inverseFourier(f func(omega float64) complex128, omegaMax float64, n int) (ts []float64, gs []complex128) {
	if n%4 != 0 {
		panic(fmt.Sprintf("bath: FFT sample count must be a multiple of 4, got %d", n))
	}
	dw := 2 * omegaMax / float64(n)
	samples := make([]complex128, n)
	for j := 0; j < n; j++ {
		w := (float64(j) - float64(n)/2) * dw
		v := f(w)
		if j%2 == 1 {
			v = -v
		}
		samples[j] = v
	}
	inv := fft.IFFT(samples)

	dt := 2 * math.Pi / (float64(n) * dw)
	scale := complex(dw*float64(n)/(2*math.Pi), 0)
	ts = make([]float64, n)
	gs = make([]complex128, n)
	for k := 0; k < n; k++ {
		ts[k] = (float64(k) - float64(n)/2) * dt
		v := scale * inv[k]
		if k%2 == 1 {
			v = -v
		}
		gs[k] = v
	}
	return ts, gs
}

// tabulated is a complex function of time interpolated piecewise-linearly
// inside [tmin, tmax] and extrapolated flat outside.
type tabulated struct {
	tmin, tmax float64
	re, im     interp.PiecewiseLinear
}

func newTabulated(ts []float64, gs []complex128) (*tabulated, error) {
	res := make([]float64, len(gs))
	ims := make([]float64, len(gs))
	for i, g := range gs {
		res[i] = real(g)
		ims[i] = imag(g)
	}
	tb := &tabulated{tmin: ts[0], tmax: ts[len(ts)-1]}
	if err := tb.re.Fit(ts, res); err != nil {
		return nil, fmt.Errorf("bath: tabulation fit: %w", err)
	}
	if err := tb.im.Fit(ts, ims); err != nil {
		return nil, fmt.Errorf("bath: tabulation fit: %w", err)
	}
	return tb, nil
}

func (tb *tabulated) at(t float64) complex128 {
	if t < tb.tmin {
		t = tb.tmin
	} else if t > tb.tmax {
		t = tb.tmax
	}
	return complex(tb.re.Predict(t), tb.im.Predict(t))
}

// window narrows the flat-extrapolation boundary to [-w, w].
func (tb *tabulated) window(w float64) {
	if -w > tb.tmin {
		tb.tmin = -w
	}
	if w < tb.tmax {
		tb.tmax = w
	}
}
