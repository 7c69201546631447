// Package ensemble fans out independent stochastic trajectories and reduces
// them to per-time-point statistics.
//
// Trajectories are embarrassingly parallel: each task gets the immutable
// problem template plus its own seeded rng, and returns an owned result.
// Aggregation is a pure reduction over completed trajectories, independent
// of execution order, so parallel and sequential scheduling are
// statistically equivalent.
package ensemble

import (
	"context"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/solver"
)

// Observable extracts a real scalar from a raw state (⟨ψ|A|ψ⟩, Tr(Aρ), a
// single population). Must be a pure function of the state.
type Observable func(y solver.State) float64

// SampleFunc derives one randomized problem realization from the template.
// It must not mutate the template; rng is private to the trajectory.
type SampleFunc func(rng *rand.Rand, base *evolution.Problem) (*evolution.Problem, error)

// RunFunc integrates one realized problem, e.g. a closure over
// evolution.Schrodinger with fixed options.
type RunFunc func(ctx context.Context, p *evolution.Problem) (*evolution.Trajectory, error)

// Failure records a trajectory excluded from statistics and why.
type Failure struct {
	Index int
	Err   error
}

// Result collects the completed trajectories of one ensemble run. Truncated
// trajectories stay in and are only excluded from statistics at query times
// past their truncation point; failed trajectories are excluded entirely but
// documented in Failures.
type Result struct {
	Trajectories []*evolution.Trajectory
	Failures     []Failure
}

// Series is the per-query-time reduction of an observable over an ensemble:
// sample mean and standard error of the mean (unbiased sample std / √n).
// Count carries the number of trajectories contributing at each time.
type Series struct {
	Times  []float64
	Mean   []float64
	StdErr []float64
	Count  []int
}

// Runner drives N independent trajectories. Workers bounds parallelism;
// zero or one forces sequential execution, the required fallback when the
// environment forbids parallelism. Seed makes the per-trajectory rng streams
// reproducible: trajectory i always draws from Seed+i.
type Runner struct {
	Workers int
	Seed    int64
}

// Run executes n trajectories of the template. A nil sample reuses the
// template unchanged (deterministic replicas). Per-trajectory errors are
// isolated: they land in Result.Failures without aborting siblings.
func (r *Runner) Run(ctx context.Context, base *evolution.Problem, n int, sample SampleFunc, run RunFunc) (*Result, error) {
	trajs := make([]*evolution.Trajectory, n)
	errs := make([]error, n)

	task := func(idx int) {
		rng := rand.New(rand.NewSource(r.Seed + int64(idx)))
		p := base
		if sample != nil {
			var err error
			p, err = sample(rng, base)
			if err != nil {
				errs[idx] = err
				return
			}
		}
		trajs[idx], errs[idx] = run(ctx, p)
	}

	if r.Workers <= 1 {
		for i := 0; i < n; i++ {
			task(i)
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(r.Workers)
		for i := 0; i < n; i++ {
			idx := i
			g.Go(func() error {
				task(idx)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := &Result{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			res.Failures = append(res.Failures, Failure{Index: i, Err: errs[i]})
			continue
		}
		res.Trajectories = append(res.Trajectories, trajs[i])
	}
	return res, nil
}

// Reduce computes mean and standard error of obs at each query time.
func (res *Result) Reduce(times []float64, obs Observable) *Series {
	s := &Series{
		Times:  append([]float64(nil), times...),
		Mean:   make([]float64, len(times)),
		StdErr: make([]float64, len(times)),
		Count:  make([]int, len(times)),
	}
	samples := make([]float64, 0, len(res.Trajectories))
	for i, t := range times {
		samples = samples[:0]
		for _, tr := range res.Trajectories {
			if truncated, at, _ := tr.Truncated(); truncated && t > at {
				continue
			}
			samples = append(samples, obs(tr.State(t)))
		}
		s.Count[i] = len(samples)
		if len(samples) == 0 {
			s.Mean[i] = math.NaN()
			s.StdErr[i] = math.NaN()
			continue
		}
		s.Mean[i] = stat.Mean(samples, nil)
		if len(samples) > 1 {
			s.StdErr[i] = stat.StdDev(samples, nil) / math.Sqrt(float64(len(samples)))
		}
	}
	return s
}
