// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmatrix

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// simplex builds a small, well-poised initial point set (xbase at the
// origin, coordinate steps of length step) for n dimensions and npt points.
func simplex(n, npt int, step float64) *mat.Dense {
	xpt := mat.NewDense(n, npt, nil)
	for k := 1; k < npt && k <= n; k++ {
		xpt.Set(k-1, k, step)
	}
	for k := n + 1; k < npt; k++ {
		xpt.Set(k-n-1, k, -step)
	}
	return xpt
}

func TestOmegaMulZeroColsIsZero(t *testing.T) {
	n, npt := 2, 3 // npt = n+1: numZCols = 0, the degenerate edge case.
	r := New(n, npt)
	v := []float64{1, 2, 3}
	out := r.OmegaMul(v)
	for _, x := range out {
		if x != 0 {
			t.Fatalf("expected zero Ω before any Update, got %v", out)
		}
	}
}

func TestUpdateProducesFiniteRepresentation(t *testing.T) {
	n, npt := 3, 7
	r := New(n, npt)
	xpt := simplex(n, npt, 0.5)

	for knew := 0; knew < npt; knew++ {
		d := make([]float64, n)
		d[knew%n] = 0.01 * float64(knew+1)
		lambda, beta, err := r.Update(xpt, knew, 0, d)
		if err != nil {
			t.Fatalf("Update(%d): %v", knew, err)
		}
		if math.IsNaN(lambda) || math.IsInf(lambda, 0) {
			t.Fatalf("Update(%d): non-finite lambda %v", knew, lambda)
		}
		if math.IsNaN(beta) || math.IsInf(beta, 0) {
			t.Fatalf("Update(%d): non-finite beta %v", knew, beta)
		}
		xpt.SetCol(knew, colPlus(xpt, 0, d))
	}
}

func colPlus(xpt *mat.Dense, kopt int, d []float64) []float64 {
	xopt := mat.Col(nil, kopt, xpt)
	out := make([]float64, len(d))
	for i := range out {
		out[i] = xopt[i] + d[i]
	}
	return out
}

func TestProbeSymmetricAtExistingPoint(t *testing.T) {
	n, npt := 2, 5
	r := New(n, npt)
	xpt := simplex(n, npt, 1.0)
	if _, _, err := r.Update(xpt, 4, 0, []float64{0.3, -0.2}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	xpt.SetCol(4, []float64{0.3, -0.2})

	// The Lagrange function of point 0 should be close to 1 at its own
	// location and close to 0 at the other sample points (interpolation
	// property of the Lagrange basis), up to the tolerance of the
	// recompute-from-scratch fallback.
	y0 := mat.Col(nil, 0, xpt)
	lambda, _ := r.Probe(xpt, y0)
	if math.Abs(lambda[0]-1) > 1e-4 {
		t.Fatalf("lambda_0(x_0) = %v, want ~1", lambda[0])
	}
	for k := 1; k < npt; k++ {
		yk := mat.Col(nil, k, xpt)
		lk, _ := r.Probe(xpt, yk)
		if math.Abs(lk[0]) > 1e-4 {
			t.Fatalf("lambda_0(x_%d) = %v, want ~0", k, lk[0])
		}
	}
}
