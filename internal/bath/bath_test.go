package bath

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"
)

func TestOhmicSpectralDensityNonNegative(t *testing.T) {
	b := NewOhmic(0.1, 4, 2, OhmicOptions{})
	for w := -50.0; w <= 50.0; w += 0.37 {
		if g := b.SpectralDensity(w); g < 0 {
			t.Fatalf("γ(%g) = %g < 0", w, g)
		}
	}
}

func TestOhmicDetailedBalance(t *testing.T) {
	beta := 1.5
	b := NewOhmic(0.1, 4, beta, OhmicOptions{})
	for _, w := range []float64{0.5, 1, 2.5} {
		ratio := b.SpectralDensity(w) / b.SpectralDensity(-w)
		want := math.Exp(beta * w)
		if math.Abs(ratio-want) > 1e-9*want {
			t.Errorf("KMS ratio at ω=%g: got %g, want %g", w, ratio, want)
		}
	}
}

func TestOhmicCorrelationFinite(t *testing.T) {
	b := NewOhmic(0.1, 4, 2, OhmicOptions{})
	c0 := b.Correlation(0)
	if cmplx.IsNaN(c0) || cmplx.IsInf(c0) || cmplx.Abs(c0) == 0 {
		t.Fatalf("C(0) = %v", c0)
	}
	// C(t) must decay away from zero.
	if cmplx.Abs(b.Correlation(10)) > 0.1*cmplx.Abs(c0) {
		t.Errorf("correlation did not decay: |C(10)|/|C(0)| = %g",
			cmplx.Abs(b.Correlation(10))/cmplx.Abs(c0))
	}
}

// Correlation should match a direct Riemann sum of the defining transform.
func TestOhmicCorrelationAgainstRiemann(t *testing.T) {
	b := NewOhmic(0.2, 2, 1, OhmicOptions{})
	for _, tt := range []float64{0, 0.3, 1.1} {
		var sum complex128
		dw := 0.002
		for w := -60.0; w <= 60.0; w += dw {
			sum += complex(b.SpectralDensity(w)*dw/(2*math.Pi), 0) *
				cmplx.Exp(complex(0, -w*tt))
		}
		got := b.Correlation(tt)
		if cmplx.Abs(got-sum) > 1e-2*(1+cmplx.Abs(sum)) {
			t.Errorf("C(%g): tabulated %v vs direct %v", tt, got, sum)
		}
	}
}

func TestJumpCorrelatorAgainstRiemann(t *testing.T) {
	spec := NewOhmic(0.2, 2, 1, OhmicOptions{})
	jb, err := NewJump(spec, JumpOptions{OmegaMax: 60})
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []float64{0, 0.5, -0.5} {
		var sum complex128
		dw := 0.002
		for w := -60.0; w <= 60.0; w += dw {
			sum += complex(math.Sqrt(spec.SpectralDensity(w))*dw/(2*math.Pi), 0) *
				cmplx.Exp(complex(0, w*tt))
		}
		got := jb.JumpCorrelator(tt)
		if cmplx.Abs(got-sum) > 1e-2*(1+cmplx.Abs(sum)) {
			t.Errorf("g(%g): tabulated %v vs direct %v", tt, got, sum)
		}
	}
}

func TestJumpCorrelatorFlatExtrapolation(t *testing.T) {
	spec := NewOhmic(0.2, 2, 1, OhmicOptions{})
	jb, err := NewJump(spec, JumpOptions{Window: 3})
	if err != nil {
		t.Fatal(err)
	}
	if jb.Window() != 3 {
		t.Fatalf("window = %g", jb.Window())
	}
	edge := jb.JumpCorrelator(3)
	for _, tt := range []float64{3.5, 10, 1e6} {
		if jb.JumpCorrelator(tt) != edge {
			t.Errorf("g(%g) != g(window): extrapolation not flat", tt)
		}
	}
}

func TestJumpCapabilityFollowsSpectrum(t *testing.T) {
	ohmic := NewOhmic(0.2, 2, 1, OhmicOptions{})
	jb, err := NewJump(ohmic, JumpOptions{})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := jb.(Correlator)
	if !ok {
		t.Fatal("jump bath over an Ohmic spectrum should forward Correlation")
	}
	if got, want := c.Correlation(0.3), ohmic.Correlation(0.3); got != want {
		t.Errorf("forwarded C(0.3) = %v, want %v", got, want)
	}

	plain, err := NewJump(NewTelegraph1f(3, 1, 0.1, 10), JumpOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := plain.(Correlator); ok {
		t.Error("jump bath over a telegraph spectrum must not claim Correlation")
	}
}

func TestTelegraphSpectrum(t *testing.T) {
	b := &Telegraph{Fluctuators: []Fluctuator{{Amplitude: 2, Rate: 3}}}
	got := b.SpectralDensity(1)
	want := 4.0 * 3.0 / (9.0 + 1.0)
	if math.Abs(got-want) > 1e-15 {
		t.Errorf("S(1) = %g, want %g", got, want)
	}
}

func TestTelegraph1fRates(t *testing.T) {
	b := NewTelegraph1f(5, 1, 0.01, 100)
	if len(b.Fluctuators) != 5 {
		t.Fatalf("got %d fluctuators", len(b.Fluctuators))
	}
	if math.Abs(b.Fluctuators[0].Rate-0.01) > 1e-12 || math.Abs(b.Fluctuators[4].Rate-100) > 1e-9 {
		t.Errorf("rate endpoints: %g .. %g", b.Fluctuators[0].Rate, b.Fluctuators[4].Rate)
	}
}

func TestTelegraphRealization(t *testing.T) {
	b := NewTelegraph1f(4, 0.5, 0.1, 10)
	rng := rand.New(rand.NewSource(7))
	n := b.SampleRealization(rng, 20)

	// Values stay on the lattice of ± sums; in particular |n(t)| <= Σ|bᵢ|.
	bound := 4 * 0.5
	for tt := 0.0; tt <= 20; tt += 0.05 {
		v := n(tt)
		if math.Abs(v) > bound+1e-12 {
			t.Fatalf("|n(%g)| = %g exceeds bound %g", tt, v, bound)
		}
	}

	// Independent draws differ.
	n2 := b.SampleRealization(rng, 20)
	same := true
	for tt := 0.0; tt <= 20; tt += 0.5 {
		if n(tt) != n2(tt) {
			same = false
			break
		}
	}
	if same {
		t.Error("two realizations are identical")
	}
}

func TestHybridSpectrum(t *testing.T) {
	a := NewOhmic(0.1, 2, 1, OhmicOptions{})
	b := NewOhmic(0.05, 8, 1, OhmicOptions{})
	h, err := NewHybrid(a, b, 50, 2001)
	if err != nil {
		t.Fatal(err)
	}
	for _, w := range []float64{-3, 0, 1.7, 12} {
		want := a.SpectralDensity(w) + b.SpectralDensity(w)
		got := h.SpectralDensity(w)
		if math.Abs(got-want) > 1e-3*(1+want) {
			t.Errorf("hybrid γ(%g) = %g, want %g", w, got, want)
		}
	}
}

func TestLambShiftAntisymmetricSpectrum(t *testing.T) {
	// A spectrum symmetric about ω₀ has vanishing derivative contribution at
	// its center only in the PV sense of cancelling tails; check the integral
	// is finite and changes sign across the peak.
	b := NewOhmic(0.1, 4, 2, OhmicOptions{})
	s1 := b.LambShift(1)
	if math.IsNaN(s1) || math.IsInf(s1, 0) {
		t.Fatalf("LambShift(1) = %g", s1)
	}
}
