package operator

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestPauliAlgebra(t *testing.T) {
	// [X, Y] = 2iZ
	comm := SigmaX.Commutator(SigmaY)
	want := SigmaZ.Scale(complex(0, 2))
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if cmplx.Abs(comm.At(i, j)-want.At(i, j)) > 1e-14 {
				t.Fatalf("[X,Y] != 2iZ at (%d,%d): got %v want %v", i, j, comm.At(i, j), want.At(i, j))
			}
		}
	}

	// X^2 = I
	sq := SigmaX.Mul(SigmaX)
	if cmplx.Abs(sq.Trace()-2) > 1e-14 {
		t.Errorf("Tr(X^2) = %v, want 2", sq.Trace())
	}
}

func TestDaggerTrace(t *testing.T) {
	m := FromSlice(2, []complex128{1, complex(2, 3), complex(4, -1), complex(0, 5)})
	d := m.Dagger()
	if d.At(0, 1) != cmplx.Conj(m.At(1, 0)) {
		t.Errorf("dagger mismatch: %v vs %v", d.At(0, 1), m.At(1, 0))
	}
	if m.Trace() != 1+complex(0, 5) {
		t.Errorf("trace = %v", m.Trace())
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	m := SigmaY.Kron(SigmaX)
	got := Unflatten(4, m.Flatten())
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if got.At(i, j) != m.At(i, j) {
				t.Fatalf("round trip mismatch at (%d,%d)", i, j)
			}
		}
	}
}

func TestKronDims(t *testing.T) {
	k := SigmaZ.Kron(I2)
	if k.Dim() != 4 {
		t.Fatalf("dim = %d, want 4", k.Dim())
	}
	// diag(1,1,-1,-1)
	wantDiag := []complex128{1, 1, -1, -1}
	for i, w := range wantDiag {
		if k.At(i, i) != w {
			t.Errorf("diag[%d] = %v, want %v", i, k.At(i, i), w)
		}
	}
}

func TestEigHermitianSigmaX(t *testing.T) {
	vals, vecs, err := EigHermitian(SigmaX)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(vals[0]+1) > 1e-12 || math.Abs(vals[1]-1) > 1e-12 {
		t.Fatalf("eigenvalues = %v, want [-1, 1]", vals)
	}
	for k, lam := range vals {
		hv := SigmaX.MulVec(vecs[k])
		for i := range hv {
			if cmplx.Abs(hv[i]-complex(lam, 0)*vecs[k][i]) > 1e-10 {
				t.Fatalf("H v != lambda v for eigenpair %d", k)
			}
		}
	}
}

func TestEigHermitianDegenerate(t *testing.T) {
	vals, vecs, err := EigHermitian(Identity(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 3 || len(vecs) != 3 {
		t.Fatalf("got %d eigenpairs, want 3", len(vals))
	}
	// Eigenvectors must be mutually orthonormal even in the degenerate case.
	for i := range vecs {
		for j := range vecs {
			dot := cmplx.Abs(vecs[i].Dot(vecs[j]))
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(dot-want) > 1e-10 {
				t.Fatalf("⟨v%d|v%d⟩ = %v, want %v", i, j, dot, want)
			}
		}
	}
}

func TestEigHermitianComplex(t *testing.T) {
	vals, _, err := EigHermitian(SigmaY)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(vals[0]+1) > 1e-12 || math.Abs(vals[1]-1) > 1e-12 {
		t.Fatalf("sigma_y eigenvalues = %v", vals)
	}
}

func TestMinEigenvalue(t *testing.T) {
	rho := Outer(KetPlus, KetPlus)
	lam, err := MinEigenvalue(rho)
	if err != nil {
		t.Fatal(err)
	}
	if lam < -1e-12 {
		t.Errorf("pure state min eigenvalue = %g, want >= 0", lam)
	}
}

func TestExpectation(t *testing.T) {
	got := Expectation(SigmaX, KetPlus)
	if cmplx.Abs(got-1) > 1e-14 {
		t.Errorf("⟨+|X|+⟩ = %v, want 1", got)
	}
	rho := Outer(KetPlus, KetPlus)
	tr := TraceProduct(SigmaX, rho)
	if cmplx.Abs(tr-1) > 1e-14 {
		t.Errorf("Tr(X|+⟩⟨+|) = %v, want 1", tr)
	}
}
