package evolution

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
	"github.com/san-kum/qudyn/internal/solver"
)

// Interaction couples one system operator to a bath. Effects of multiple
// interactions are additive in every master-equation generator.
type Interaction struct {
	Coupling operator.Matrix
	Bath     bath.Bath
}

// Pulse is an instantaneous state update applied exactly once at Time.
type Pulse struct {
	Time  float64
	Apply func(y solver.State, index int) solver.State
}

// GatePulse builds a pulse applying the unitary u at time t: Uψ for vector
// states, UρU† for density matrices.
func GatePulse(t float64, u operator.Matrix, kind Kind) Pulse {
	return Pulse{Time: t, Apply: func(y solver.State, _ int) solver.State {
		if kind == KindVector {
			return solver.State(u.MulVec(operator.Vector(y)))
		}
		rho := operator.Unflatten(u.Dim(), y)
		return solver.State(u.Mul(rho).Mul(u.Dagger()).Flatten())
	}}
}

// Problem aggregates everything one trajectory needs. Constructed once per
// simulation request and treated as immutable; integrators only read it.
type Problem struct {
	Hamiltonian *hamiltonian.Hamiltonian

	// State is the initial pure state; Density the initial density matrix.
	// Vector formalisms require State; matrix formalisms use Density when
	// set and fall back to |State⟩⟨State|.
	State   operator.Vector
	Density operator.Matrix

	Horizon      float64
	Interactions []Interaction
	Pulses       []Pulse
}

func (p *Problem) validate() error {
	if p.Hamiltonian == nil {
		return fmt.Errorf("%w: nil Hamiltonian", ErrInitialState)
	}
	if p.Horizon <= 0 {
		return fmt.Errorf("%w: got %g", ErrHorizon, p.Horizon)
	}
	d := p.Hamiltonian.Dim()
	if p.State == nil && p.Density.Dim() == 0 {
		return fmt.Errorf("%w: neither State nor Density set", ErrInitialState)
	}
	if p.State != nil && len(p.State) != d {
		return fmt.Errorf("%w: state has dim %d, Hamiltonian %d", ErrDimensionMismatch, len(p.State), d)
	}
	if p.Density.Dim() != 0 && p.Density.Dim() != d {
		return fmt.Errorf("%w: density has dim %d, Hamiltonian %d", ErrDimensionMismatch, p.Density.Dim(), d)
	}
	for i, in := range p.Interactions {
		if in.Coupling.Dim() != d {
			return fmt.Errorf("%w: interaction %d coupling has dim %d, Hamiltonian %d", ErrDimensionMismatch, i, in.Coupling.Dim(), d)
		}
		if in.Bath == nil {
			return fmt.Errorf("%w: interaction %d has nil bath", ErrBathCapability, i)
		}
	}
	prev := 0.0
	for i, pu := range p.Pulses {
		if pu.Time <= prev || pu.Time >= p.Horizon {
			return fmt.Errorf("%w: pulse %d at t=%g", ErrPulseOrder, i, pu.Time)
		}
		if pu.Apply == nil {
			return fmt.Errorf("%w: pulse %d has nil update", ErrPulseOrder, i)
		}
		prev = pu.Time
	}
	return nil
}

func (p *Problem) requireInteractions() error {
	if len(p.Interactions) == 0 {
		return ErrEmptyInteractions
	}
	return nil
}

// initialDensity returns the starting density matrix, building |ψ⟩⟨ψ| from
// the pure state when no density was given.
func (p *Problem) initialDensity() operator.Matrix {
	if p.Density.Dim() != 0 {
		return p.Density
	}
	return operator.Outer(p.State, p.State)
}

// PositivityCheck configures the positivity monitor: after each accepted
// step the minimum eigenvalue of the Hermitian-projected state is computed,
// and the trajectory truncates once it drops below -Tol.
type PositivityCheck struct {
	Tol float64
}

// Options are shared by all formalisms. The zero value of Log is a disabled
// logger; precision warnings go nowhere unless one is supplied.
type Options struct {
	Solver     solver.Config
	Positivity *PositivityCheck
	Log        zerolog.Logger
}

func DefaultOptions() Options {
	return Options{Solver: solver.DefaultConfig(), Log: zerolog.Nop()}
}

// solverConfig wires pulses and the positivity monitor into the integration
// service. Pulse times are rescaled to the dimensionless interval; the
// monitor reports violations in absolute time.
func (p *Problem) solverConfig(opts Options, kind Kind) solver.Config {
	cfg := opts.Solver
	if cfg.Algorithm == "" && cfg.AbsTol == 0 {
		cfg = solver.DefaultConfig()
	}
	tf := p.Horizon

	if len(p.Pulses) > 0 {
		cfg.EventTimes = make([]float64, len(p.Pulses))
		for i, pu := range p.Pulses {
			cfg.EventTimes[i] = pu.Time / tf
		}
		pulses := p.Pulses
		cfg.OnEvent = func(i int, _ float64, y solver.State) solver.State {
			return pulses[i].Apply(y, i)
		}
	}

	if opts.Positivity != nil && kind == KindMatrix {
		tol := opts.Positivity.Tol
		d := p.Hamiltonian.Dim()
		prevStep := cfg.OnStep
		cfg.OnStep = func(s float64, y solver.State) error {
			if prevStep != nil {
				if err := prevStep(s, y); err != nil {
					return err
				}
			}
			lam, err := operator.MinEigenvalue(operator.Unflatten(d, y))
			if err != nil {
				return err
			}
			if lam < -tol {
				return &PositivityError{Time: s * tf, MinEigenvalue: lam}
			}
			return nil
		}
	}
	return cfg
}
