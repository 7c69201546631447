package evolution

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
)

// twoQubitDephasing is a configuration known to drive the Redfield equation
// non-positive: a transverse-field two-qubit Hamiltonian with competing σz
// couplings into a strong low-temperature Ohmic bath.
func twoQubitDephasing(t *testing.T, eta float64) (*Problem, *bath.Ohmic) {
	t.Helper()
	sx1 := operator.Embed(operator.SigmaX, 0, 2)
	sx2 := operator.Embed(operator.SigmaX, 1, 2)
	sz1 := operator.Embed(operator.SigmaZ, 0, 2)
	sz2 := operator.Embed(operator.SigmaZ, 1, 2)

	h := hamiltonian.Constant(sx1.Add(sx2).Scale(-1))
	b := bath.NewOhmic(eta, 4, 4, bath.OhmicOptions{})

	psi0 := make(operator.Vector, 4)
	psi0[0] = 1 // |00⟩, far from the transverse-field eigenbasis
	return &Problem{
		Hamiltonian: h,
		State:       psi0,
		Horizon:     2,
		Interactions: []Interaction{
			{Coupling: sz1, Bath: b},
			{Coupling: sz2, Bath: b},
		},
	}, b
}

func looseOptions() Options {
	opts := DefaultOptions()
	opts.Solver.AbsTol = 1e-7
	opts.Solver.RelTol = 1e-5
	return opts
}

func eigenvalueRangeOverRun(t *testing.T, tr *Trajectory, samples int) (minLam, maxLam float64) {
	t.Helper()
	end := tr.End()
	minLam, maxLam = math.Inf(1), math.Inf(-1)
	for i := 0; i <= samples; i++ {
		tt := end * float64(i) / float64(samples)
		vals, _, err := operator.EigHermitian(tr.Density(tt).HermitianPart())
		if err != nil {
			t.Fatal(err)
		}
		if vals[0] < minLam {
			minLam = vals[0]
		}
		if top := vals[len(vals)-1]; top > maxLam {
			maxLam = top
		}
	}
	return minLam, maxLam
}

func TestRedfieldPositivityViolation(t *testing.T) {
	p, _ := twoQubitDephasing(t, 1.0)
	cache, err := Propagator(context.Background(), p.Hamiltonian, p.Horizon, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	// Without the monitor the map runs to the horizon and develops at least
	// one negative eigenvalue beyond tolerance. Expected behavior of the
	// formalism, not a defect.
	ropts := RedfieldOptions{Options: looseOptions(), QuadNodes: 16}
	tr, err := Redfield(context.Background(), p, cache, ropts)
	if err != nil {
		t.Fatal(err)
	}
	minLam, _ := eigenvalueRangeOverRun(t, tr, 120)
	if minLam > -1e-5 {
		t.Fatalf("Redfield stayed positive (min eigenvalue %g); configuration should violate", minLam)
	}

	// With the monitor the trajectory truncates before the horizon and
	// reports the violation time and eigenvalue.
	mopts := ropts
	mopts.Positivity = &PositivityCheck{Tol: 1e-5}
	trm, err := Redfield(context.Background(), p, cache, mopts)
	if err != nil {
		t.Fatal(err)
	}
	truncated, at, cause := trm.Truncated()
	if !truncated {
		t.Fatal("positivity monitor did not trigger")
	}
	if at <= 0 || at >= p.Horizon {
		t.Errorf("truncation time %g outside (0, horizon)", at)
	}
	var pv *PositivityError
	if !errors.As(cause, &pv) {
		t.Fatalf("expected *PositivityError, got %v", cause)
	}
	if pv.MinEigenvalue > -1e-5 {
		t.Errorf("reported eigenvalue %g not below tolerance", pv.MinEigenvalue)
	}
}

func TestCGMECompletePositivity(t *testing.T) {
	p, _ := twoQubitDephasing(t, 0.3)
	cache, err := Propagator(context.Background(), p.Hamiltonian, p.Horizon, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	opts := CGMEOptions{Options: looseOptions(), Averaging: 0.5, QuadNodes: 8}
	tr, err := CGME(context.Background(), p, cache, opts)
	if err != nil {
		t.Fatal(err)
	}
	minLam, maxLam := eigenvalueRangeOverRun(t, tr, 60)
	if minLam < -0.02 {
		t.Errorf("CGME eigenvalue %g below -ε; generator should be completely positive", minLam)
	}
	if maxLam > 1.02 {
		t.Errorf("CGME eigenvalue %g above 1+ε", maxLam)
	}
}

func TestULECompletePositivity(t *testing.T) {
	p, ohmic := twoQubitDephasing(t, 0.3)
	jb, err := bath.NewJump(ohmic, bath.JumpOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range p.Interactions {
		p.Interactions[i].Bath = jb
	}
	cache, err := Propagator(context.Background(), p.Hamiltonian, p.Horizon, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	tr, err := ULE(context.Background(), p, cache, ULEOptions{Options: looseOptions(), QuadNodes: 24})
	if err != nil {
		t.Fatal(err)
	}
	minLam, maxLam := eigenvalueRangeOverRun(t, tr, 60)
	if minLam < -0.02 {
		t.Errorf("ULE eigenvalue %g below -ε; Lindblad form must stay positive", minLam)
	}
	if maxLam > 1.02 {
		t.Errorf("ULE eigenvalue %g above 1+ε", maxLam)
	}

	// Trace preservation.
	trace := real(tr.Density(tr.End()).Trace())
	if math.Abs(trace-1) > 1e-3 {
		t.Errorf("trace drifted to %g", trace)
	}
}

func TestAMEThermalization(t *testing.T) {
	beta := 1.0
	b := bath.NewOhmic(0.1, 4, beta, bath.OhmicOptions{})
	p := &Problem{
		Hamiltonian:  hamiltonian.Constant(operator.SigmaZ.Scale(-1)),
		Density:      operator.Outer(operator.KetOne, operator.KetOne),
		Horizon:      10,
		Interactions: []Interaction{{Coupling: operator.SigmaX, Bath: b}},
	}

	tr, err := AME(context.Background(), p, AMEOptions{Options: looseOptions()})
	if err != nil {
		t.Fatal(err)
	}

	// The Davies generator obeys detailed balance: stationary populations
	// follow the Gibbs ratio e^{-βΔE} with ΔE = 2.
	rho := tr.Density(p.Horizon)
	p0 := real(rho.At(0, 0))
	want := 1 / (1 + math.Exp(-2*beta))
	if math.Abs(p0-want) > 0.01 {
		t.Errorf("ground population %g, want %g", p0, want)
	}
}

func TestAMELambShiftRuns(t *testing.T) {
	b := bath.NewOhmic(0.05, 4, 2, bath.OhmicOptions{})
	p := &Problem{
		Hamiltonian:  hamiltonian.Constant(operator.SigmaZ.Scale(-1)),
		Density:      operator.Outer(operator.KetPlus, operator.KetPlus),
		Horizon:      1,
		Interactions: []Interaction{{Coupling: operator.SigmaX, Bath: b}},
	}
	tr, err := AME(context.Background(), p, AMEOptions{Options: looseOptions(), LambShift: true})
	if err != nil {
		t.Fatal(err)
	}
	if tr.End() != 1 {
		t.Errorf("run truncated at %g", tr.End())
	}
	trace := real(tr.Density(1).Trace())
	if math.Abs(trace-1) > 1e-3 {
		t.Errorf("trace = %g", trace)
	}
}

func TestAMEHybridBath(t *testing.T) {
	a := bath.NewOhmic(0.05, 2, 1, bath.OhmicOptions{})
	b := bath.NewOhmic(0.05, 8, 1, bath.OhmicOptions{})
	hyb, err := bath.NewHybrid(a, b, 60, 4001)
	if err != nil {
		t.Fatal(err)
	}
	p := &Problem{
		Hamiltonian:  hamiltonian.Constant(operator.SigmaZ.Scale(-1)),
		Density:      operator.Outer(operator.KetOne, operator.KetOne),
		Horizon:      5,
		Interactions: []Interaction{{Coupling: operator.SigmaX, Bath: hyb}},
	}
	tr, err := AME(context.Background(), p, AMEOptions{Options: looseOptions()})
	if err != nil {
		t.Fatal(err)
	}
	// Two baths on one channel relax faster than either alone; just confirm
	// decay from the excited state happened.
	if pop := real(tr.Density(5).At(1, 1)); pop > 0.9 {
		t.Errorf("no relaxation under hybrid bath: p1 = %g", pop)
	}
}

func TestBathCapabilityErrors(t *testing.T) {
	tele := bath.NewTelegraph1f(3, 1, 0.1, 10)
	p, _ := twoQubitDephasing(t, 0.3)
	for i := range p.Interactions {
		p.Interactions[i].Bath = tele
	}
	cache, err := Propagator(context.Background(), p.Hamiltonian, p.Horizon, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Redfield(context.Background(), p, cache, RedfieldOptions{Options: looseOptions()}); !errors.Is(err, ErrBathCapability) {
		t.Errorf("Redfield with telegraph bath: got %v", err)
	}
	if _, err := ULE(context.Background(), p, cache, ULEOptions{Options: looseOptions()}); !errors.Is(err, ErrBathCapability) {
		t.Errorf("ULE without jump correlator: got %v", err)
	}

	// A jump wrapper does not invent a correlation function for a spectrum
	// that lacks one; the correlator-based equations must still refuse it.
	jb, err := bath.NewJump(tele, bath.JumpOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i := range p.Interactions {
		p.Interactions[i].Bath = jb
	}
	if _, err := Redfield(context.Background(), p, cache, RedfieldOptions{Options: looseOptions()}); !errors.Is(err, ErrBathCapability) {
		t.Errorf("Redfield with correlator-less jump bath: got %v", err)
	}
	if _, err := CGME(context.Background(), p, cache, CGMEOptions{Options: looseOptions(), Averaging: 0.5}); !errors.Is(err, ErrBathCapability) {
		t.Errorf("CGME with correlator-less jump bath: got %v", err)
	}
}

func TestEmptyInteractionSet(t *testing.T) {
	p := freeQubit(1)
	cache, err := Propagator(context.Background(), p.Hamiltonian, p.Horizon, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Redfield(context.Background(), p, cache, RedfieldOptions{Options: looseOptions()}); !errors.Is(err, ErrEmptyInteractions) {
		t.Errorf("got %v", err)
	}
	if _, err := AME(context.Background(), p, AMEOptions{Options: looseOptions()}); !errors.Is(err, ErrEmptyInteractions) {
		t.Errorf("got %v", err)
	}
}
