package bath

import (
	"math"
	"math/cmplx"

	"github.com/rs/zerolog"
)

// JumpBath tabulates the jump correlator g(t) = (1/2π)∫ √γ(ω) e^{iωt} dω of
// an underlying spectral bath. The transform is computed once at construction
// over a finite frequency window and interpolated inside [-Window, Window]
// with flat extrapolation outside. The window must cover the decay of g;
// a too-narrow window systematically biases the resulting master equation,
// so the edge magnitude is checked and logged as a warning, never an error.
type JumpBath struct {
	spectrum Spectral
	tab      *tabulated
	win      float64
}

type JumpOptions struct {
	OmegaMax float64 // frequency window half-width; default 40
	Samples  int     // FFT sample count, multiple of 4; default 4096
	Window   float64 // time window for flat extrapolation; default 4
	Log      zerolog.Logger
}

// NewJump returns a bath exposing the JumpCorrelator capability. When the
// wrapped spectrum also implements Correlator, the result forwards it, so a
// jump bath built from an Ohmic spectrum still serves the correlator-based
// master equations; a correlator-less spectrum yields a bath without that
// capability and the integrators needing it fail fast.
func NewJump(spectrum Spectral, opts JumpOptions) (JumpCorrelator, error) {
	omegaMax := opts.OmegaMax
	if omegaMax <= 0 {
		omegaMax = 40
	}
	n := opts.Samples
	if n <= 0 {
		n = 4096
	}
	win := opts.Window
	if win <= 0 {
		win = 4
	}

	ts, gs := inverseFourier(func(w float64) complex128 {
		return complex(math.Sqrt(spectrum.SpectralDensity(w)), 0)
	}, omegaMax, n)
	tab, err := newTabulated(ts, gs)
	if err != nil {
		return nil, err
	}
	tab.window(win)

	b := &JumpBath{spectrum: spectrum, tab: tab, win: win}

	g0 := cmplx.Abs(b.JumpCorrelator(0))
	edge := math.Max(cmplx.Abs(b.JumpCorrelator(win)), cmplx.Abs(b.JumpCorrelator(-win)))
	if g0 > 0 && edge > 1e-3*g0 {
		opts.Log.Warn().
			Str("component", "bath").
			Float64("window", win).
			Float64("edge_ratio", edge/g0).
			Msg("jump correlator window may be too narrow for the correlation decay")
	}
	if c, ok := spectrum.(Correlator); ok {
		return &correlatedJumpBath{JumpBath: b, corr: c}, nil
	}
	return b, nil
}

func (b *JumpBath) Label() string { return "jump:" + b.spectrum.Label() }

func (b *JumpBath) JumpCorrelator(t float64) complex128 { return b.tab.at(t) }

func (b *JumpBath) Window() float64 { return b.win }

func (b *JumpBath) SpectralDensity(omega float64) float64 {
	return b.spectrum.SpectralDensity(omega)
}

// correlatedJumpBath adds the Correlator capability on top of a JumpBath
// whose wrapped spectrum supports it.
type correlatedJumpBath struct {
	*JumpBath
	corr Correlator
}

func (b *correlatedJumpBath) Correlation(t float64) complex128 { return b.corr.Correlation(t) }
