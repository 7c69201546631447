package operator

import "math"

// Shared single-qubit constants. Read-only after package init.
var (
	I2     = Identity(2)
	SigmaX = FromSlice(2, []complex128{0, 1, 1, 0})
	SigmaY = FromSlice(2, []complex128{0, complex(0, -1), complex(0, 1), 0})
	SigmaZ = FromSlice(2, []complex128{1, 0, 0, -1})

	KetZero = Vector{1, 0}
	KetOne  = Vector{0, 1}
	KetPlus = Vector{complex(1/math.Sqrt2, 0), complex(1/math.Sqrt2, 0)}
)

// Embed places a single-qubit operator at position k in an n-qubit register,
// tensoring identities elsewhere.
func Embed(op Matrix, k, n int) Matrix {
	out := Identity(1)
	for i := 0; i < n; i++ {
		if i == k {
			out = out.Kron(op)
		} else {
			out = out.Kron(I2)
		}
	}
	return out
}
