package config

import "sort"

var Presets = map[string]*Config{
	"free-qubit": {
		Formalism: "schrodinger", Horizon: 10,
		System:      SystemConfig{Qubits: 1, Field: 1, State: "plus"},
		Observables: []string{"sx", "sy", "sz"},
	},
	"spin-echo": {
		Formalism: "schrodinger", Horizon: 10,
		System:      SystemConfig{Qubits: 1, Field: 1, State: "plus"},
		Pulses:      []PulseConfig{{Time: 5, Axis: "x"}},
		Observables: []string{"sx", "sy"},
	},
	"telegraph-dephasing": {
		Formalism: "schrodinger", Horizon: 5,
		System: SystemConfig{Qubits: 1, Field: 1, State: "plus", Coupling: "sz"},
		Bath: BathConfig{
			Model: "telegraph", Fluctuators: 4,
			Amplitude: 0.8, RateMin: 0.5, RateMax: 5,
		},
		Ensemble:    EnsembleConfig{Trajectories: 200, Workers: 4, Seed: 1},
		Observables: []string{"sx"},
	},
	"redfield-two-qubit": {
		Formalism: "redfield", Horizon: 2,
		System: SystemConfig{
			Qubits: 2, Transverse: 1, State: "zero+zero", Coupling: "sz",
		},
		Bath:        BathConfig{Model: "ohmic", Coupling: 1, Cutoff: 4, Beta: 4},
		Solver:      SolverConfig{AbsTol: 1e-7, RelTol: 1e-5, PositivityTol: 1e-5},
		Observables: []string{"sz1", "sz2"},
	},
	"cgme-anneal": {
		Formalism: "cgme", Horizon: 10,
		System: SystemConfig{
			Qubits: 2, Field: 1, Transverse: 1, Exchange: 0.5,
			Schedule: "anneal", State: "plus+plus", Coupling: "sz",
		},
		Bath:        BathConfig{Model: "ohmic", Coupling: 0.2, Cutoff: 4, Beta: 2},
		Master:      MasterConfig{Averaging: 1},
		Solver:      SolverConfig{AbsTol: 1e-7, RelTol: 1e-5},
		Observables: []string{"sz1", "sz2"},
	},
	"ule-qubit": {
		Formalism: "ule", Horizon: 5,
		System:      SystemConfig{Qubits: 1, Field: 1, State: "plus", Coupling: "sx"},
		Bath:        BathConfig{Model: "jump", Coupling: 0.2, Cutoff: 4, Beta: 2},
		Observables: []string{"sx", "sz"},
	},
	"ame-thermalization": {
		Formalism: "ame", Horizon: 10,
		System:      SystemConfig{Qubits: 1, Field: 1, State: "one", Coupling: "sx"},
		Bath:        BathConfig{Model: "ohmic", Coupling: 0.1, Cutoff: 4, Beta: 1},
		Master:      MasterConfig{LambShift: true},
		Observables: []string{"sz"},
	},
}

// GetPreset returns a copy of the named preset, or nil. Presets are
// immutable templates; callers may override fields on the copy freely.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.Pulses = append([]PulseConfig(nil), p.Pulses...)
	cfg.Observables = append([]string(nil), p.Observables...)
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
