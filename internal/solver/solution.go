package solver

import "sort"

// Solution is the dense, continuously query-able result of a run: the
// discrete grid actually taken plus cubic Hermite interpolation between grid
// points. Event times appear twice, carrying the pre- and post-transform
// states; At returns the post-transform state at exactly an event time.
type Solution struct {
	Times  []float64
	States []State
	Derivs []State

	// Halted reports an early termination requested by OnStep; the grid then
	// ends at HaltTime and HaltErr carries the monitor's reason.
	Halted   bool
	HaltTime float64
	HaltErr  error

	// Saved holds states at Config.SavePoints when those were requested.
	SavedTimes  []float64
	SavedStates []State
}

func (s *Solution) Grid() []float64 { return s.Times }

func (s *Solution) Last() (float64, State) {
	n := len(s.Times)
	return s.Times[n-1], s.States[n-1]
}

// At interpolates the state at time t. Queries outside the grid clamp to the
// nearest endpoint.
func (s *Solution) At(t float64) State {
	n := len(s.Times)
	if t <= s.Times[0] {
		return s.States[0].Clone()
	}
	if t >= s.Times[n-1] {
		return s.States[n-1].Clone()
	}

	i := sort.SearchFloat64s(s.Times, t)
	if s.Times[i] == t {
		// Duplicate grid entries mark events; take the post-event state.
		for i+1 < n && s.Times[i+1] == t {
			i++
		}
		return s.States[i].Clone()
	}

	t0, t1 := s.Times[i-1], s.Times[i]
	h := t1 - t0
	if h == 0 {
		return s.States[i].Clone()
	}
	th := (t - t0) / h
	h00 := (1 + 2*th) * (1 - th) * (1 - th)
	h10 := th * (1 - th) * (1 - th)
	h01 := th * th * (3 - 2*th)
	h11 := th * th * (th - 1)

	y0, y1 := s.States[i-1], s.States[i]
	f0, f1 := s.Derivs[i-1], s.Derivs[i]
	out := make(State, len(y0))
	for k := range out {
		out[k] = complex(h00, 0)*y0[k] + complex(h01, 0)*y1[k] +
			complex(h10*h, 0)*f0[k] + complex(h11*h, 0)*f1[k]
	}
	return out
}

// Sample evaluates the dense output at each query time.
func (s *Solution) Sample(ts []float64) []State {
	out := make([]State, len(ts))
	for i, t := range ts {
		out[i] = s.At(t)
	}
	return out
}

func (s *Solution) append(t float64, y, dy State) {
	s.Times = append(s.Times, t)
	s.States = append(s.States, y)
	s.Derivs = append(s.Derivs, dy)
}
