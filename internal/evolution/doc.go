// Package evolution integrates open-quantum-system dynamics.
//
// A [Problem] aggregates a time-dependent Hamiltonian, an initial state,
// a time horizon, system-bath interactions and optional pulse callbacks.
// Seven interchangeable formalisms consume it:
//
//   - [Schrodinger]: pure-state evolution dψ/ds = -i·tf·H(s)ψ
//   - [VonNeumann]: closed-system density-matrix evolution
//   - [Propagator]: unitary propagator, cached for reuse by the dissipative
//     formalisms below
//   - [Redfield]: second-order time-convolutionless master equation
//   - [CGME]: coarse-grained master equation, completely positive
//   - [ULE]: universal Lindblad equation, built from the bath jump correlator
//   - [AME]: adiabatic master equation in the instantaneous eigenbasis
//
// All formalisms integrate over the dimensionless time s ∈ [0,1] with the
// horizon folded into the generator, and return a [Trajectory] densely
// queryable over [0, horizon] in absolute time.
//
// Redfield can and does produce non-positive density matrices; that is a
// property of the formalism, not a bug. The positivity monitor exists to
// detect it and truncate the trajectory with a [PositivityError].
//
// # Thread Safety
//
// Problems, Hamiltonians, baths and unitary caches are immutable after
// construction and safe to share across concurrent trajectories. Trajectories
// are owned by their caller.
package evolution
