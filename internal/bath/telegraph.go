package bath

import (
	"math"
	"math/rand"
	"sort"
)

// Fluctuator is one two-state (±Amplitude) switching process with the given
// switching rate.
type Fluctuator struct {
	Amplitude float64
	Rate      float64
}

// Telegraph is an ensemble of independent telegraph processes. Summed over
// log-uniformly distributed rates the aggregate spectrum approximates 1/f
// noise. The bath itself is immutable; randomness enters only through
// SampleRealization, which each trajectory calls with its own rng.
type Telegraph struct {
	Fluctuators []Fluctuator
}

// NewTelegraph1f builds n fluctuators of equal amplitude with rates placed
// log-uniformly on [rateMin, rateMax].
func NewTelegraph1f(n int, amplitude, rateMin, rateMax float64) *Telegraph {
	fl := make([]Fluctuator, n)
	for i := range fl {
		frac := 0.5
		if n > 1 {
			frac = float64(i) / float64(n-1)
		}
		rate := rateMin * math.Pow(rateMax/rateMin, frac)
		fl[i] = Fluctuator{Amplitude: amplitude, Rate: rate}
	}
	return &Telegraph{Fluctuators: fl}
}

func (b *Telegraph) Label() string { return "telegraph" }

// SpectralDensity is the closed-form sum of Lorentzians Σᵢ bᵢ²γᵢ/(γᵢ²+ω²);
// no sampling involved.
func (b *Telegraph) SpectralDensity(omega float64) float64 {
	sum := 0.0
	for _, f := range b.Fluctuators {
		sum += f.Amplitude * f.Amplitude * f.Rate / (f.Rate*f.Rate + omega*omega)
	}
	return sum
}

// SampleRealization draws exponential switching times for every fluctuator
// and returns the summed step function n(t) = Σᵢ nᵢ(t) over [0, horizon].
func (b *Telegraph) SampleRealization(rng *rand.Rand, horizon float64) func(t float64) float64 {
	type track struct {
		amplitude float64
		initial   float64 // ±1
		switches  []float64
	}
	tracks := make([]track, len(b.Fluctuators))
	for i, f := range b.Fluctuators {
		tr := track{amplitude: f.Amplitude, initial: 1}
		if rng.Intn(2) == 1 {
			tr.initial = -1
		}
		t := 0.0
		for {
			t += rng.ExpFloat64() / f.Rate
			if t > horizon {
				break
			}
			tr.switches = append(tr.switches, t)
		}
		tracks[i] = tr
	}

	return func(t float64) float64 {
		sum := 0.0
		for i := range tracks {
			tr := &tracks[i]
			k := sort.SearchFloat64s(tr.switches, t)
			sign := tr.initial
			if k%2 == 1 {
				sign = -sign
			}
			sum += sign * tr.amplitude
		}
		return sum
	}
}
