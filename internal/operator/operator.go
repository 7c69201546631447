package operator

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Vector is a pure-state amplitude vector.
type Vector []complex128

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, z := range v {
		sum += real(z)*real(z) + imag(z)*imag(z)
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product ⟨v|w⟩.
func (v Vector) Dot(w Vector) complex128 {
	var sum complex128
	for i := range v {
		sum += cmplx.Conj(v[i]) * w[i]
	}
	return sum
}

func (v Vector) Scale(z complex128) Vector {
	c := make(Vector, len(v))
	for i := range v {
		c[i] = z * v[i]
	}
	return c
}

func (v Vector) IsValid() bool {
	for _, z := range v {
		if cmplx.IsNaN(z) || cmplx.IsInf(z) {
			return false
		}
	}
	return true
}

// Matrix is a dense square complex matrix, row-major. Components treat
// matrices as immutable once constructed; Set exists for builders only.
type Matrix struct {
	n    int
	data []complex128
}

func New(n int) Matrix {
	return Matrix{n: n, data: make([]complex128, n*n)}
}

// FromSlice copies data (row-major, length n*n) into a new Matrix.
func FromSlice(n int, data []complex128) Matrix {
	if len(data) != n*n {
		panic(fmt.Sprintf("operator: FromSlice needs %d elements, got %d", n*n, len(data)))
	}
	m := New(n)
	copy(m.data, data)
	return m
}

func Identity(n int) Matrix {
	m := New(n)
	for i := 0; i < n; i++ {
		m.data[i*n+i] = 1
	}
	return m
}

func (m Matrix) Dim() int { return m.n }

func (m Matrix) At(i, j int) complex128 { return m.data[i*m.n+j] }

func (m Matrix) Set(i, j int, z complex128) { m.data[i*m.n+j] = z }

func (m Matrix) Clone() Matrix {
	c := New(m.n)
	copy(c.data, m.data)
	return c
}

func (m Matrix) Add(b Matrix) Matrix {
	c := New(m.n)
	for i := range m.data {
		c.data[i] = m.data[i] + b.data[i]
	}
	return c
}

func (m Matrix) Sub(b Matrix) Matrix {
	c := New(m.n)
	for i := range m.data {
		c.data[i] = m.data[i] - b.data[i]
	}
	return c
}

func (m Matrix) Scale(z complex128) Matrix {
	c := New(m.n)
	for i := range m.data {
		c.data[i] = z * m.data[i]
	}
	return c
}

func (m Matrix) Mul(b Matrix) Matrix {
	n := m.n
	c := New(n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			mik := m.data[i*n+k]
			if mik == 0 {
				continue
			}
			for j := 0; j < n; j++ {
				c.data[i*n+j] += mik * b.data[k*n+j]
			}
		}
	}
	return c
}

func (m Matrix) MulVec(v Vector) Vector {
	n := m.n
	out := make(Vector, n)
	for i := 0; i < n; i++ {
		var sum complex128
		for j := 0; j < n; j++ {
			sum += m.data[i*n+j] * v[j]
		}
		out[i] = sum
	}
	return out
}

// Dagger returns the conjugate transpose.
func (m Matrix) Dagger() Matrix {
	n := m.n
	c := New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c.data[j*n+i] = cmplx.Conj(m.data[i*n+j])
		}
	}
	return c
}

func (m Matrix) Trace() complex128 {
	var sum complex128
	for i := 0; i < m.n; i++ {
		sum += m.data[i*m.n+i]
	}
	return sum
}

// Commutator returns [m, b] = mb - bm.
func (m Matrix) Commutator(b Matrix) Matrix {
	return m.Mul(b).Sub(b.Mul(m))
}

// Anticommutator returns {m, b} = mb + bm.
func (m Matrix) Anticommutator(b Matrix) Matrix {
	return m.Mul(b).Add(b.Mul(m))
}

func (m Matrix) Kron(b Matrix) Matrix {
	n, p := m.n, b.n
	c := New(n * p)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			mij := m.data[i*n+j]
			if mij == 0 {
				continue
			}
			for k := 0; k < p; k++ {
				for l := 0; l < p; l++ {
					c.data[(i*p+k)*(n*p)+j*p+l] = mij * b.data[k*p+l]
				}
			}
		}
	}
	return c
}

func (m Matrix) IsHermitian(tol float64) bool {
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			if cmplx.Abs(m.data[i*m.n+j]-cmplx.Conj(m.data[j*m.n+i])) > tol {
				return false
			}
		}
	}
	return true
}

// HermitianPart returns (m + m†)/2.
func (m Matrix) HermitianPart() Matrix {
	return m.Add(m.Dagger()).Scale(0.5)
}

// Flatten returns a copy of the row-major data, the layout used by the
// density-matrix and propagator state vectors.
func (m Matrix) Flatten() []complex128 {
	out := make([]complex128, len(m.data))
	copy(out, m.data)
	return out
}

// Unflatten reconstructs an n×n matrix from a flattened state. Unflatten and
// Flatten are exact inverses.
func Unflatten(n int, y []complex128) Matrix {
	if len(y) != n*n {
		panic(fmt.Sprintf("operator: Unflatten needs %d elements, got %d", n*n, len(y)))
	}
	return FromSlice(n, y)
}

// Outer returns |a⟩⟨b|.
func Outer(a, b Vector) Matrix {
	n := len(a)
	m := New(n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			m.data[i*n+j] = a[i] * cmplx.Conj(b[j])
		}
	}
	return m
}

// Expectation returns ⟨v|m|v⟩.
func Expectation(m Matrix, v Vector) complex128 {
	return v.Dot(m.MulVec(v))
}

// TraceProduct returns Tr(a·b) without forming the product.
func TraceProduct(a, b Matrix) complex128 {
	n := a.n
	var sum complex128
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			sum += a.data[i*n+j] * b.data[j*n+i]
		}
	}
	return sum
}
