package solver

import (
	"context"
	"math"
	"sort"
)

// Solve integrates dy/dt = f(t, y) from 0 to horizon and returns the dense
// solution. Monitor-initiated truncation is not an error: the solution comes
// back with Halted set. Step-size underflow and budget exhaustion surface as
// a *StepError wrapping ErrStepTooSmall or ErrStepBudget.
func Solve(ctx context.Context, f Func, y0 State, horizon float64, cfg Config) (*Solution, error) {
	if err := validate(horizon, cfg); err != nil {
		return nil, err
	}

	sol := &Solution{}
	sol.append(0, y0.Clone(), f(0, y0))

	var err error
	switch cfg.Algorithm {
	case "", AlgoRK45:
		err = solveAdaptive(ctx, f, horizon, cfg, sol)
	case AlgoRK4:
		err = solveFixed(ctx, f, horizon, cfg, sol)
	}
	if err != nil {
		return sol, err
	}

	if cfg.SavePoints != nil {
		sol.SavedTimes = append([]float64(nil), cfg.SavePoints...)
		sol.SavedStates = sol.Sample(cfg.SavePoints)
	}
	return sol, nil
}

func solveAdaptive(ctx context.Context, f Func, horizon float64, cfg Config, sol *Solution) error {
	bounds := append(append([]float64(nil), cfg.EventTimes...), horizon)

	t := 0.0
	y := sol.States[0].Clone()
	dt := cfg.InitialStep
	if dt <= 0 {
		dt = horizon / 100
	}
	maxStep := cfg.MaxStep
	if maxStep <= 0 {
		maxStep = horizon
	}
	steps := 0

	for bi, bound := range bounds {
		for bound-t > 1e-14*(1+math.Abs(bound)) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			h := math.Min(math.Min(dt, maxStep), bound-t)
			yNew, k7, errRatio := dp45(f, t, y, h, cfg.AbsTol, cfg.RelTol)
			steps++
			if cfg.MaxSteps > 0 && steps > cfg.MaxSteps {
				return &StepError{Time: t, Err: ErrStepBudget}
			}

			if errRatio > 1 {
				dt = h * math.Max(minScale, safety*math.Pow(errRatio, -0.25))
				if dt < cfg.MinStep {
					return &StepError{Time: t, Err: ErrStepTooSmall}
				}
				continue
			}

			t += h
			if bound-t <= 1e-14*(1+math.Abs(bound)) {
				t = bound
			}
			y = yNew
			sol.append(t, y.Clone(), k7)

			if cfg.OnStep != nil {
				if herr := cfg.OnStep(t, y); herr != nil {
					sol.Halted = true
					sol.HaltTime = t
					sol.HaltErr = herr
					return nil
				}
			}

			if errRatio > 0 {
				dt = h * math.Min(maxScale, safety*math.Pow(errRatio, -0.2))
			} else {
				dt = h * maxScale
			}
		}

		if bi < len(cfg.EventTimes) {
			y = cfg.OnEvent(bi, bound, y.Clone())
			sol.append(bound, y.Clone(), f(bound, y))
		}
	}
	return nil
}

func solveFixed(ctx context.Context, f Func, horizon float64, cfg Config, sol *Solution) error {
	grid := cfg.FixedStepPoints
	if len(grid) == 0 {
		h := cfg.InitialStep
		if h <= 0 {
			h = horizon / 500
		}
		n := int(math.Ceil(horizon / h))
		grid = make([]float64, n+1)
		for i := 0; i <= n; i++ {
			grid[i] = horizon * float64(i) / float64(n)
		}
	}
	grid = mergePoints(grid, cfg.EventTimes)

	eventAt := make(map[float64]int, len(cfg.EventTimes))
	for i, te := range cfg.EventTimes {
		eventAt[te] = i
	}

	y := sol.States[0].Clone()
	for i := 1; i < len(grid); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t0, t1 := grid[i-1], grid[i]
		y = rk4Step(f, t0, y, t1-t0)
		dy := f(t1, y)
		sol.append(t1, y.Clone(), dy)

		if cfg.OnStep != nil {
			if herr := cfg.OnStep(t1, y); herr != nil {
				sol.Halted = true
				sol.HaltTime = t1
				sol.HaltErr = herr
				return nil
			}
		}

		if ei, ok := eventAt[t1]; ok {
			y = cfg.OnEvent(ei, t1, y.Clone())
			sol.append(t1, y.Clone(), f(t1, y))
		}
	}
	return nil
}

func rk4Step(f Func, t float64, y State, dt float64) State {
	n := len(y)
	zdt := complex(dt, 0)

	k1 := f(t, y)
	y2 := make(State, n)
	for i := 0; i < n; i++ {
		y2[i] = y[i] + zdt*0.5*k1[i]
	}
	k2 := f(t+dt/2, y2)
	y3 := make(State, n)
	for i := 0; i < n; i++ {
		y3[i] = y[i] + zdt*0.5*k2[i]
	}
	k3 := f(t+dt/2, y3)
	y4 := make(State, n)
	for i := 0; i < n; i++ {
		y4[i] = y[i] + zdt*k3[i]
	}
	k4 := f(t+dt, y4)

	out := make(State, n)
	for i := 0; i < n; i++ {
		out[i] = y[i] + zdt/6*(k1[i]+2*k2[i]+2*k3[i]+k4[i])
	}
	return out
}

// mergePoints inserts extras into a sorted grid, dropping duplicates.
func mergePoints(grid, extras []float64) []float64 {
	if len(extras) == 0 {
		return grid
	}
	out := append(append([]float64(nil), grid...), extras...)
	sort.Float64s(out)
	dedup := out[:1]
	for _, v := range out[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}
