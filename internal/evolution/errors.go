package evolution

import (
	"errors"
	"fmt"

	"github.com/san-kum/qudyn/internal/solver"
)

// Configuration errors, reported before any integration starts.
var (
	// ErrHorizon indicates a non-positive time horizon.
	ErrHorizon = errors.New("evolution: time horizon must be positive")

	// ErrInitialState indicates a missing or wrongly-shaped initial state.
	ErrInitialState = errors.New("evolution: missing or invalid initial state")

	// ErrDimensionMismatch indicates Hamiltonian, state and coupling
	// operators that do not share one dimension.
	ErrDimensionMismatch = errors.New("evolution: dimension mismatch")

	// ErrEmptyInteractions indicates a dissipative formalism given no
	// system-bath interactions.
	ErrEmptyInteractions = errors.New("evolution: empty interaction set")

	// ErrPulseOrder indicates pulse trigger times that are not strictly
	// increasing inside (0, horizon); simultaneous pulses are rejected.
	ErrPulseOrder = errors.New("evolution: pulse times must be strictly increasing inside the horizon")

	// ErrBathCapability indicates a bath lacking the function a formalism
	// requires (correlation, spectral density or jump correlator).
	ErrBathCapability = errors.New("evolution: bath lacks required capability")
)

// NonConvergenceError reports an integration-service failure on a single
// trajectory: the step budget ran out or the step size underflowed. It
// carries the failing absolute time and the last accepted state, and is
// recoverable at the ensemble level.
type NonConvergenceError struct {
	Time  float64
	State solver.State
	Err   error
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("evolution: integration failed at t=%.6g: %v", e.Time, e.Err)
}

func (e *NonConvergenceError) Unwrap() error { return e.Err }

// PositivityError reports a density matrix whose minimum eigenvalue fell
// below the configured tolerance. Expected behavior of the Redfield
// formalism, surfaced rather than silently evolved past.
type PositivityError struct {
	Time          float64
	MinEigenvalue float64
}

func (e *PositivityError) Error() string {
	return fmt.Sprintf("evolution: positivity violated at t=%.6g (min eigenvalue %.3e)", e.Time, e.MinEigenvalue)
}

// wrapSolverErr converts solver failures into the per-trajectory taxonomy,
// restoring absolute time units.
func wrapSolverErr(err error, sol *solver.Solution, horizon float64) error {
	var se *solver.StepError
	if errors.As(err, &se) && sol != nil {
		_, last := sol.Last()
		return &NonConvergenceError{Time: se.Time * horizon, State: last, Err: se.Err}
	}
	return err
}
