package solver

import "math/cmplx"

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

const (
	safety   = 0.9
	minScale = 0.2
	maxScale = 10.0
)

// dp45 takes one trial Dormand-Prince step of size dt from (t, y). It returns
// the candidate state, the derivative at the candidate point, and the maximum
// component-wise error ratio against the mixed absolute/relative tolerance;
// the step is acceptable when the ratio is at most 1.
func dp45(f Func, t float64, y State, dt, absTol, relTol float64) (State, State, float64) {
	n := len(y)
	zdt := complex(dt, 0)

	k1 := f(t, y)

	y2 := make(State, n)
	for i := 0; i < n; i++ {
		y2[i] = y[i] + zdt*complex(b21, 0)*k1[i]
	}
	k2 := f(t+a2*dt, y2)

	y3 := make(State, n)
	for i := 0; i < n; i++ {
		y3[i] = y[i] + zdt*(complex(b31, 0)*k1[i]+complex(b32, 0)*k2[i])
	}
	k3 := f(t+a3*dt, y3)

	y4 := make(State, n)
	for i := 0; i < n; i++ {
		y4[i] = y[i] + zdt*(complex(b41, 0)*k1[i]+complex(b42, 0)*k2[i]+complex(b43, 0)*k3[i])
	}
	k4 := f(t+a4*dt, y4)

	y5 := make(State, n)
	for i := 0; i < n; i++ {
		y5[i] = y[i] + zdt*(complex(b51, 0)*k1[i]+complex(b52, 0)*k2[i]+complex(b53, 0)*k3[i]+complex(b54, 0)*k4[i])
	}
	k5 := f(t+a5*dt, y5)

	y6 := make(State, n)
	for i := 0; i < n; i++ {
		y6[i] = y[i] + zdt*(complex(b61, 0)*k1[i]+complex(b62, 0)*k2[i]+complex(b63, 0)*k3[i]+complex(b64, 0)*k4[i]+complex(b65, 0)*k5[i])
	}
	k6 := f(t+dt, y6)

	yNew := make(State, n)
	for i := 0; i < n; i++ {
		yNew[i] = y[i] + zdt*(complex(c1, 0)*k1[i]+complex(c3, 0)*k3[i]+complex(c4, 0)*k4[i]+complex(c5, 0)*k5[i]+complex(c6, 0)*k6[i])
	}

	k7 := f(t+dt, yNew)

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := cmplx.Abs(zdt * (complex(dc1, 0)*k1[i] + complex(dc3, 0)*k3[i] + complex(dc4, 0)*k4[i] + complex(dc5, 0)*k5[i] + complex(dc6, 0)*k6[i] + complex(dc7, 0)*k7[i]))
		scale := absTol + relTol*(cmplx.Abs(y[i])+cmplx.Abs(zdt*k1[i]))
		if r := errEst / scale; r > errMax {
			errMax = r
		}
	}
	return yNew, k7, errMax
}
