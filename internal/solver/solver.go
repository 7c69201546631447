// Package solver is the integration service behind every evolution formalism:
// it advances a complex state vector under a caller-supplied right-hand side,
// with adaptive (Dormand-Prince 5(4)) or fixed (RK4) stepping, dense output,
// exact landing on event times with a state transform, and a per-step monitor
// that can terminate a run early.
package solver

import (
	"errors"
	"fmt"
	"math/cmplx"
	"sort"
)

// State is a complex state vector: amplitudes for pure states, a flattened
// density matrix or propagator otherwise.
type State []complex128

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, z := range s {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return false
		}
	}
	return true
}

// Func evaluates the right-hand side dy/dt = f(t, y). It must be free of
// side effects; the solver calls it at trial points that are later rejected.
type Func func(t float64, y State) State

const (
	AlgoRK45 = "rk45"
	AlgoRK4  = "rk4"
)

type Config struct {
	Algorithm string
	AbsTol    float64
	RelTol    float64

	InitialStep float64
	MinStep     float64
	MaxStep     float64
	MaxSteps    int

	// FixedStepPoints, when set, is the explicit grid used by fixed-step
	// methods. Must start at 0 and end at the horizon.
	FixedStepPoints []float64

	// SavePoints is an optional explicit query grid evaluated from the dense
	// output after the run.
	SavePoints []float64

	// EventTimes are strictly increasing interior times the solver lands on
	// exactly; OnEvent transforms the state there and integration resumes
	// without losing step-size adaptivity.
	EventTimes []float64
	OnEvent    func(i int, t float64, y State) State

	// OnStep runs after every accepted step. A non-nil return halts the run;
	// the truncated solution is still returned with Halted set.
	OnStep func(t float64, y State) error
}

func DefaultConfig() Config {
	return Config{
		Algorithm:   AlgoRK45,
		AbsTol:      1e-9,
		RelTol:      1e-7,
		InitialStep: 1e-3,
		MinStep:     1e-12,
		MaxStep:     0.1,
		MaxSteps:    1_000_000,
	}
}

var (
	ErrConfig       = errors.New("solver: invalid configuration")
	ErrStepTooSmall = errors.New("solver: step size underflow")
	ErrStepBudget   = errors.New("solver: step budget exhausted")
)

// StepError reports an integration failure together with the time at which
// the solver gave up.
type StepError struct {
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v at t=%.6g", e.Err, e.Time)
}

func (e *StepError) Unwrap() error { return e.Err }

func validate(horizon float64, cfg Config) error {
	if horizon <= 0 {
		return fmt.Errorf("%w: horizon must be positive, got %g", ErrConfig, horizon)
	}
	prev := 0.0
	for i, te := range cfg.EventTimes {
		if te <= prev || te >= horizon {
			return fmt.Errorf("%w: event time %d (%g) not strictly inside (0, %g) in order", ErrConfig, i, te, horizon)
		}
		prev = te
	}
	if len(cfg.EventTimes) > 0 && cfg.OnEvent == nil {
		return fmt.Errorf("%w: event times set without OnEvent", ErrConfig)
	}
	switch cfg.Algorithm {
	case "", AlgoRK45:
		if cfg.AbsTol <= 0 || cfg.RelTol < 0 {
			return fmt.Errorf("%w: tolerances must be positive", ErrConfig)
		}
	case AlgoRK4:
		if pts := cfg.FixedStepPoints; len(pts) > 0 {
			if pts[0] != 0 || pts[len(pts)-1] != horizon || !sort.Float64sAreSorted(pts) {
				return fmt.Errorf("%w: fixed step points must run sorted from 0 to the horizon", ErrConfig)
			}
		}
	default:
		return fmt.Errorf("%w: unknown algorithm %q", ErrConfig, cfg.Algorithm)
	}
	return nil
}
