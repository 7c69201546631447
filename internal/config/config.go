package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qudyn/internal/bath"
	"github.com/san-kum/qudyn/internal/evolution"
	"github.com/san-kum/qudyn/internal/hamiltonian"
	"github.com/san-kum/qudyn/internal/operator"
)

const (
	DefaultHorizon  = 10.0
	DefaultField    = 1.0
	DefaultCoupling = 0.1
	DefaultCutoff   = 4.0
	DefaultBeta     = 1.0
)

type Config struct {
	Formalism   string         `yaml:"formalism"`
	Horizon     float64        `yaml:"horizon"`
	System      SystemConfig   `yaml:"system"`
	Bath        BathConfig     `yaml:"bath"`
	Solver      SolverConfig   `yaml:"solver"`
	Master      MasterConfig   `yaml:"master"`
	Ensemble    EnsembleConfig `yaml:"ensemble"`
	Pulses      []PulseConfig  `yaml:"pulses"`
	Observables []string       `yaml:"observables"`
}

// SystemConfig describes a one- or two-qubit system. With the anneal
// schedule the transverse part ramps down while field and exchange ramp up;
// constant keeps every term on for the whole run.
type SystemConfig struct {
	Qubits     int     `yaml:"qubits"`
	Field      float64 `yaml:"field"`
	Transverse float64 `yaml:"transverse"`
	Exchange   float64 `yaml:"exchange"`
	Schedule   string  `yaml:"schedule"`
	State      string  `yaml:"state"`
	Coupling   string  `yaml:"coupling"`
}

type BathConfig struct {
	Model    string  `yaml:"model"`
	Coupling float64 `yaml:"coupling"`
	Cutoff   float64 `yaml:"cutoff"`
	Beta     float64 `yaml:"beta"`

	Fluctuators int     `yaml:"fluctuators"`
	Amplitude   float64 `yaml:"amplitude"`
	RateMin     float64 `yaml:"rate_min"`
	RateMax     float64 `yaml:"rate_max"`
}

type SolverConfig struct {
	Algorithm     string  `yaml:"algorithm"`
	AbsTol        float64 `yaml:"abs_tol"`
	RelTol        float64 `yaml:"rel_tol"`
	MaxStep       float64 `yaml:"max_step"`
	PositivityTol float64 `yaml:"positivity_tol"`
}

type MasterConfig struct {
	Memory    float64 `yaml:"memory"`
	Averaging float64 `yaml:"averaging"`
	QuadNodes int     `yaml:"quad_nodes"`
	Levels    int     `yaml:"levels"`
	LambShift bool    `yaml:"lamb_shift"`
}

type EnsembleConfig struct {
	Trajectories int   `yaml:"trajectories"`
	Workers      int   `yaml:"workers"`
	Seed         int64 `yaml:"seed"`
}

type PulseConfig struct {
	Time float64 `yaml:"time"`
	Axis string  `yaml:"axis"`
}

func DefaultConfig() *Config {
	return &Config{
		Formalism: "schrodinger",
		Horizon:   DefaultHorizon,
		System: SystemConfig{
			Qubits:   1,
			Field:    DefaultField,
			Schedule: "constant",
			State:    "plus",
			Coupling: "sz",
		},
		Bath: BathConfig{
			Model:    "ohmic",
			Coupling: DefaultCoupling,
			Cutoff:   DefaultCutoff,
			Beta:     DefaultBeta,
		},
		Observables: []string{"sx", "sz"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Kind reports whether the configured formalism integrates a state vector or
// a density matrix.
func (c *Config) Kind() evolution.Kind {
	switch c.Formalism {
	case "schrodinger", "unitary":
		return evolution.KindVector
	default:
		return evolution.KindMatrix
	}
}

// Dissipative reports whether the formalism needs bath interactions.
func (c *Config) Dissipative() bool {
	switch c.Formalism {
	case "schrodinger", "von_neumann", "unitary":
		return false
	}
	return true
}

// BuildHamiltonian assembles H(s) from the system block.
func (c *Config) BuildHamiltonian() (*hamiltonian.Hamiltonian, error) {
	n := c.System.Qubits
	if n < 1 || n > 2 {
		return nil, fmt.Errorf("config: %d qubits unsupported", n)
	}
	dim := 1 << n

	ramp := func(float64) float64 { return 1 }
	antiRamp := ramp
	switch c.System.Schedule {
	case "", "constant":
	case "anneal":
		ramp = func(s float64) float64 { return s }
		antiRamp = func(s float64) float64 { return 1 - s }
	default:
		return nil, fmt.Errorf("config: unknown schedule %q", c.System.Schedule)
	}

	var terms []hamiltonian.Term
	for k := 0; k < n; k++ {
		if c.System.Field != 0 {
			terms = append(terms, hamiltonian.Term{
				Coeff: scaled(ramp, -c.System.Field),
				Op:    operator.Embed(operator.SigmaZ, k, n),
			})
		}
		if c.System.Transverse != 0 {
			terms = append(terms, hamiltonian.Term{
				Coeff: scaled(antiRamp, -c.System.Transverse),
				Op:    operator.Embed(operator.SigmaX, k, n),
			})
		}
	}
	if c.System.Exchange != 0 {
		if n != 2 {
			return nil, fmt.Errorf("config: exchange needs two qubits")
		}
		terms = append(terms, hamiltonian.Term{
			Coeff: scaled(ramp, -c.System.Exchange),
			Op:    operator.SigmaZ.Kron(operator.SigmaZ),
		})
	}
	if len(terms) == 0 {
		terms = append(terms, hamiltonian.Term{
			Coeff: func(float64) float64 { return 0 },
			Op:    operator.Identity(dim),
		})
	}
	return hamiltonian.New(1, terms...)
}

func scaled(f func(float64) float64, c float64) hamiltonian.Coefficient {
	return func(s float64) float64 { return c * f(s) }
}

// BuildState resolves the initial state name, e.g. "plus" for one qubit or
// "one+zero" for a two-qubit product state.
func (c *Config) BuildState() (operator.Vector, error) {
	parts := strings.Split(c.System.State, "+")
	if len(parts) != c.System.Qubits {
		return nil, fmt.Errorf("config: state %q does not name %d qubit factors", c.System.State, c.System.Qubits)
	}
	out := operator.Vector{1}
	for _, name := range parts {
		var v operator.Vector
		switch name {
		case "zero", "ground":
			v = operator.KetZero
		case "one", "excited":
			v = operator.KetOne
		case "plus":
			v = operator.KetPlus
		case "minus":
			v = operator.Vector{complex(1/math.Sqrt2, 0), complex(-1/math.Sqrt2, 0)}
		default:
			return nil, fmt.Errorf("config: unknown state %q", name)
		}
		out = kronVec(out, v)
	}
	return out, nil
}

func kronVec(a, b operator.Vector) operator.Vector {
	out := make(operator.Vector, len(a)*len(b))
	for i, x := range a {
		for j, y := range b {
			out[i*len(b)+j] = x * y
		}
	}
	return out
}

// BuildBath constructs the configured bath model.
func (c *Config) BuildBath() (bath.Bath, error) {
	b := c.Bath
	switch b.Model {
	case "ohmic":
		return bath.NewOhmic(b.Coupling, b.Cutoff, b.Beta, bath.OhmicOptions{}), nil
	case "jump":
		return bath.NewJump(bath.NewOhmic(b.Coupling, b.Cutoff, b.Beta, bath.OhmicOptions{}), bath.JumpOptions{})
	case "telegraph":
		if b.Fluctuators <= 0 || b.RateMin <= 0 || b.RateMax <= b.RateMin {
			return nil, fmt.Errorf("config: telegraph bath needs fluctuators and 0 < rate_min < rate_max")
		}
		return bath.NewTelegraph1f(b.Fluctuators, b.Amplitude, b.RateMin, b.RateMax), nil
	default:
		return nil, fmt.Errorf("config: unknown bath model %q", b.Model)
	}
}

func pauliOp(name string) (operator.Matrix, error) {
	switch name {
	case "sx":
		return operator.SigmaX, nil
	case "sy":
		return operator.SigmaY, nil
	case "sz", "":
		return operator.SigmaZ, nil
	}
	return operator.Matrix{}, fmt.Errorf("config: unknown operator %q", name)
}

// BuildProblem assembles the full evolution problem: Hamiltonian, initial
// state, one bath interaction per qubit for dissipative formalisms, and any
// configured pulses.
func (c *Config) BuildProblem() (*evolution.Problem, error) {
	h, err := c.BuildHamiltonian()
	if err != nil {
		return nil, err
	}
	psi, err := c.BuildState()
	if err != nil {
		return nil, err
	}
	p := &evolution.Problem{Hamiltonian: h, State: psi, Horizon: c.Horizon}

	if c.Dissipative() {
		b, err := c.BuildBath()
		if err != nil {
			return nil, err
		}
		op, err := pauliOp(c.System.Coupling)
		if err != nil {
			return nil, err
		}
		for k := 0; k < c.System.Qubits; k++ {
			p.Interactions = append(p.Interactions, evolution.Interaction{
				Coupling: operator.Embed(op, k, c.System.Qubits),
				Bath:     b,
			})
		}
	}

	kind := c.Kind()
	for _, pc := range c.Pulses {
		var axis operator.Matrix
		switch pc.Axis {
		case "", "x":
			axis = operator.SigmaX
		case "y":
			axis = operator.SigmaY
		case "z":
			axis = operator.SigmaZ
		default:
			return nil, fmt.Errorf("config: unknown pulse axis %q", pc.Axis)
		}
		u := operator.Embed(axis, 0, c.System.Qubits)
		p.Pulses = append(p.Pulses, evolution.GatePulse(pc.Time, u, kind))
	}
	return p, nil
}

// BuildObservables resolves observable names to operators on the configured
// system: "sx" acts on qubit 1, "sz2" on qubit 2.
func (c *Config) BuildObservables() (map[string]operator.Matrix, error) {
	out := make(map[string]operator.Matrix, len(c.Observables))
	for _, name := range c.Observables {
		base, qubit := name, 0
		if last := name[len(name)-1]; last >= '1' && last <= '9' {
			base = name[:len(name)-1]
			qubit = int(last - '1')
		}
		if qubit >= c.System.Qubits {
			return nil, fmt.Errorf("config: observable %q targets qubit %d of %d", name, qubit+1, c.System.Qubits)
		}
		op, err := pauliOp(base)
		if err != nil {
			return nil, fmt.Errorf("config: observable %q: %w", name, err)
		}
		out[name] = operator.Embed(op, qubit, c.System.Qubits)
	}
	return out, nil
}

// BuildOptions maps the solver block onto evolution options.
func (c *Config) BuildOptions() evolution.Options {
	opts := evolution.DefaultOptions()
	if c.Solver.Algorithm != "" {
		opts.Solver.Algorithm = c.Solver.Algorithm
	}
	if c.Solver.AbsTol > 0 {
		opts.Solver.AbsTol = c.Solver.AbsTol
	}
	if c.Solver.RelTol > 0 {
		opts.Solver.RelTol = c.Solver.RelTol
	}
	if c.Solver.MaxStep > 0 {
		opts.Solver.MaxStep = c.Solver.MaxStep
	}
	if c.Solver.PositivityTol > 0 {
		opts.Positivity = &evolution.PositivityCheck{Tol: c.Solver.PositivityTol}
	}
	return opts
}
