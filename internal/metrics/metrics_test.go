package metrics

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
)

func TestPurity(t *testing.T) {
	pure := operator.Outer(operator.KetPlus, operator.KetPlus)
	if got := Purity(pure); math.Abs(got-1) > 1e-12 {
		t.Errorf("pure state purity %g", got)
	}

	mixed := operator.Identity(2).Scale(0.5)
	if got := Purity(mixed); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("maximally mixed purity %g", got)
	}
}

func TestVonNeumannEntropy(t *testing.T) {
	pure := operator.Outer(operator.KetZero, operator.KetZero)
	s, err := VonNeumannEntropy(pure)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s) > 1e-10 {
		t.Errorf("pure state entropy %g", s)
	}

	mixed := operator.Identity(2).Scale(0.5)
	s, err = VonNeumannEntropy(mixed)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s-math.Ln2) > 1e-10 {
		t.Errorf("maximally mixed entropy %g, want ln 2", s)
	}
}

func TestTraceDistance(t *testing.T) {
	zero := operator.Outer(operator.KetZero, operator.KetZero)
	one := operator.Outer(operator.KetOne, operator.KetOne)

	d, err := TraceDistance(zero, zero)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d) > 1e-12 {
		t.Errorf("distance to itself %g", d)
	}

	d, err = TraceDistance(zero, one)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(d-1) > 1e-10 {
		t.Errorf("orthogonal states distance %g, want 1", d)
	}
}

func TestFidelity(t *testing.T) {
	rho := operator.Outer(operator.KetPlus, operator.KetPlus)
	if got := Fidelity(rho, operator.KetPlus.Clone()); math.Abs(got-1) > 1e-12 {
		t.Errorf("fidelity with itself %g", got)
	}
	if got := Fidelity(rho, operator.KetZero.Clone()); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("fidelity |+⟩ vs |0⟩ = %g, want 0.5", got)
	}
}

func TestGibbs(t *testing.T) {
	h := hamiltonian.Constant(operator.SigmaZ.Scale(-1))
	beta := 1.5
	rho, err := Gibbs(h, beta, 0)
	if err != nil {
		t.Fatal(err)
	}

	if tr := real(rho.Trace()); math.Abs(tr-1) > 1e-12 {
		t.Errorf("trace %g", tr)
	}
	// p1/p0 = e^{-βΔE} with ΔE = 2.
	ratio := real(rho.At(1, 1)) / real(rho.At(0, 0))
	if math.Abs(ratio-math.Exp(-2*beta)) > 1e-10 {
		t.Errorf("population ratio %g, want %g", ratio, math.Exp(-2*beta))
	}
	if cmplx.Abs(rho.At(0, 1)) > 1e-12 {
		t.Errorf("off-diagonal %v in the energy eigenbasis", rho.At(0, 1))
	}

	// Infinite temperature limit.
	flat, err := Gibbs(h, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := real(flat.At(0, 0)); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("beta=0 population %g", got)
	}
}
