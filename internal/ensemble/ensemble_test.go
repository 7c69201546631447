package ensemble

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// dephasingTemplate is a qubit precessing under -σz with telegraph frequency
// noise added per realization. ⟨σx⟩(t) = cos(2t + 2∫ξ) scatters across the
// ensemble, which is what the statistics tests need.
func dephasingTemplate(tf float64) (*evolution.Problem, SampleFunc) {
	p := &evolution.Problem{
		Hamiltonian: hamiltonian.Constant(operator.SigmaZ.Scale(-1)),
		State:       operator.KetPlus.Clone(),
		Horizon:     tf,
	}
	tele := bath.NewTelegraph1f(4, 0.8, 0.5, 5)
	return p, TelegraphSampler(operator.SigmaZ, tele)
}

func runSchrodinger(ctx context.Context, p *evolution.Problem) (*evolution.Trajectory, error) {
	return evolution.Schrodinger(ctx, p, evolution.DefaultOptions())
}

func expectSigmaX(y solver.State) float64 {
	return 2 * real(y[0]*cmplx.Conj(y[1]))
}

func TestRunnerDeterminism(t *testing.T) {
	p, sample := dephasingTemplate(1)
	times := []float64{0.25, 0.5, 1}

	seq := &Runner{Workers: 1, Seed: 7}
	par := &Runner{Workers: 4, Seed: 7}

	a, err := seq.Run(context.Background(), p, 12, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := par.Run(context.Background(), p, 12, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Failures) != 0 || len(b.Failures) != 0 {
		t.Fatalf("unexpected failures: %v %v", a.Failures, b.Failures)
	}

	sa := a.Reduce(times, expectSigmaX)
	sb := b.Reduce(times, expectSigmaX)
	for i := range times {
		if math.Abs(sa.Mean[i]-sb.Mean[i]) > 1e-12 {
			t.Errorf("t=%g: sequential mean %g, parallel mean %g", times[i], sa.Mean[i], sb.Mean[i])
		}
	}
}

func TestRunnerSeedChangesRealizations(t *testing.T) {
	p, sample := dephasingTemplate(1)
	times := []float64{1}

	r1 := &Runner{Workers: 2, Seed: 1}
	r2 := &Runner{Workers: 2, Seed: 99}
	a, err := r1.Run(context.Background(), p, 8, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	b, err := r2.Run(context.Background(), p, 8, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	if a.Reduce(times, expectSigmaX).Mean[0] == b.Reduce(times, expectSigmaX).Mean[0] {
		t.Error("different seeds produced identical ensemble means")
	}
}

func TestReduceAgainstManualStatistics(t *testing.T) {
	p, sample := dephasingTemplate(1)
	r := &Runner{Workers: 1, Seed: 3}
	res, err := r.Run(context.Background(), p, 5, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Trajectories) != 5 {
		t.Fatalf("got %d trajectories", len(res.Trajectories))
	}

	tq := 0.7
	s := res.Reduce([]float64{tq}, expectSigmaX)

	var sum float64
	vals := make([]float64, 0, 5)
	for _, tr := range res.Trajectories {
		v := expectSigmaX(tr.State(tq))
		vals = append(vals, v)
		sum += v
	}
	mean := sum / 5
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	sem := math.Sqrt(ss/4) / math.Sqrt(5)

	if math.Abs(s.Mean[0]-mean) > 1e-12 {
		t.Errorf("mean %g, manual %g", s.Mean[0], mean)
	}
	if math.Abs(s.StdErr[0]-sem) > 1e-12 {
		t.Errorf("stderr %g, manual %g", s.StdErr[0], sem)
	}
	if s.Count[0] != 5 {
		t.Errorf("count %d", s.Count[0])
	}
}

func TestStandardErrorScaling(t *testing.T) {
	if testing.Short() {
		t.Skip("ensemble scaling test")
	}
	p, sample := dephasingTemplate(1)
	times := []float64{1}

	run := func(n int) float64 {
		r := &Runner{Workers: 4, Seed: 11}
		res, err := r.Run(context.Background(), p, n, sample, runSchrodinger)
		if err != nil {
			t.Fatal(err)
		}
		return res.Reduce(times, expectSigmaX).StdErr[0]
	}

	small := run(25)
	large := run(400)
	if small <= 0 || large <= 0 {
		t.Fatalf("degenerate standard errors %g %g", small, large)
	}
	// 16x the trajectories should shrink the standard error about 4x.
	ratio := large / small
	if ratio < 0.15 || ratio > 0.45 {
		t.Errorf("SEM ratio %g, want near 0.25", ratio)
	}
}

func TestRunnerIsolatesFailures(t *testing.T) {
	p, _ := dephasingTemplate(1)
	bad := errors.New("realization rejected")
	sample := func(rng *rand.Rand, base *evolution.Problem) (*evolution.Problem, error) {
		if rng.Float64() < 0.3 {
			return nil, bad
		}
		return base, nil
	}

	r := &Runner{Workers: 3, Seed: 5}
	res, err := r.Run(context.Background(), p, 40, sample, runSchrodinger)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Failures) == 0 {
		t.Fatal("expected some rejected realizations")
	}
	if got := len(res.Trajectories) + len(res.Failures); got != 40 {
		t.Fatalf("accounted for %d of 40 trajectories", got)
	}
	for _, f := range res.Failures {
		if !errors.Is(f.Err, bad) {
			t.Errorf("failure %d carries %v", f.Index, f.Err)
		}
	}
	s := res.Reduce([]float64{0.5}, expectSigmaX)
	if s.Count[0] != len(res.Trajectories) {
		t.Errorf("count %d, want %d surviving trajectories", s.Count[0], len(res.Trajectories))
	}
}

func TestTelegraphSamplerLeavesTemplateAlone(t *testing.T) {
	base, sample := dephasingTemplate(2)
	rng := rand.New(rand.NewSource(1))

	p, err := sample(rng, base)
	if err != nil {
		t.Fatal(err)
	}
	if p == base || p.Hamiltonian == base.Hamiltonian {
		t.Fatal("sampler returned the template itself")
	}

	// The added term is a scalar multiple of σz: diagonal, traceless.
	diff := p.Hamiltonian.Evaluate(0.3).Sub(base.Hamiltonian.Evaluate(0.3))
	if diff.At(0, 1) != 0 || diff.At(1, 0) != 0 {
		t.Error("noise term has off-diagonal entries")
	}
	if cmplx.Abs(diff.At(0, 0)+diff.At(1, 1)) > 1e-15 {
		t.Error("noise term is not traceless")
	}
	if diff.At(0, 0) == 0 {
		t.Error("noise realization vanished identically at s=0.3")
	}
}
