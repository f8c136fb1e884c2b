// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

func TestUpdateDeltaContractsOnPoorRatio(t *testing.T) {
	d := &iterDriver{state: newRunState(2, 5, 1, 1e-6, 0.1, 0.7, 0.5, 2, -1e300, 100)}
	d.state.delta = 1
	d.state.rho = 0.01
	d.updateDelta(0.05, 0.3)
	if d.state.delta >= 1 {
		t.Fatalf("delta = %v, want contraction for a poor ratio", d.state.delta)
	}
}

func TestUpdateDeltaExpandsOnGoodRatio(t *testing.T) {
	d := &iterDriver{state: newRunState(2, 5, 1, 1e-6, 0.1, 0.7, 0.5, 2, -1e300, 100)}
	d.state.delta = 1
	d.state.rho = 0.01
	d.updateDelta(0.9, 0.8)
	if d.state.delta < 0.8 {
		t.Fatalf("delta = %v, want at least dnorm for a good ratio", d.state.delta)
	}
}

func TestReduceRhoMonotonicallyDecreases(t *testing.T) {
	d := &iterDriver{state: newRunState(2, 5, 1, 1e-6, 0.1, 0.7, 0.5, 2, -1e300, 100)}
	d.state.rho = 1
	prev := d.state.rho
	for i := 0; i < 10 && d.state.rho > d.state.rhoend; i++ {
		d.reduceRho()
		if d.state.rho >= prev {
			t.Fatalf("rho did not decrease: %v -> %v", prev, d.state.rho)
		}
		if d.state.rho < d.state.rhoend {
			t.Fatalf("rho = %v undershot rhoend = %v", d.state.rho, d.state.rhoend)
		}
		prev = d.state.rho
	}
}

// TestInsertPointUsesNegativeSentinelNotColumnZero guards against
// conflating a legitimate insertion at column 0 with a discarded step:
// column 0 is placed far enough from xopt that setdropTR's distance
// weighting makes it the overwhelming favorite, so insertPoint must
// report knew=0 (a real column), not the -1 discard sentinel.
func TestInsertPointUsesNegativeSentinelNotColumnZero(t *testing.T) {
	xpt := mat.NewDense(2, 5, nil)
	xpt.SetCol(0, []float64{7.77, 3.33})
	xpt.SetCol(1, []float64{0.01, 0.003})
	xpt.SetCol(2, []float64{0, 0})
	xpt.SetCol(3, []float64{0.004, 0.011})
	xpt.SetCol(4, []float64{-0.007, -0.013})

	rep, err := hmatrix.NewFromPoints(xpt)
	if err != nil {
		t.Fatalf("NewFromPoints: %v", err)
	}

	interp := &interpSet{xbase: []float64{0, 0}, xpt: xpt, fval: []float64{1, 1, 5, 1, 1}}
	st := newRunState(2, 5, 1, 1e-6, 0.1, 0.7, 0.5, 2, -1e300, 100)
	st.kopt = 2
	st.fopt = 5
	st.rho = 0.001

	d := &iterDriver{interp: interp, state: st, rep: rep, hup: defaultHUpdater{}}

	step := []float64{0.013, 0.007}
	_, ximproved, knew := d.insertPoint(step, 4)
	if !ximproved {
		t.Fatalf("expected ximproved=true for f=4 < fopt=5")
	}
	if knew != 0 {
		t.Fatalf("knew = %d, want 0: the far-away column 0 should legitimately win setdropTR", knew)
	}
}

// TestInsertPointDiscardsWithNegativeSentinel uses a never-updated,
// all-zero H-representation so every setdropTR candidate scores exactly
// 0 by construction, forcing the genuine discard path.
func TestInsertPointDiscardsWithNegativeSentinel(t *testing.T) {
	xpt := mat.NewDense(2, 5, nil)
	xpt.SetCol(1, []float64{0.01, 0})
	xpt.SetCol(3, []float64{0, 0.01})
	xpt.SetCol(4, []float64{-0.01, -0.01})

	rep := hmatrix.New(2, 5)

	interp := &interpSet{xbase: []float64{0, 0}, xpt: xpt, fval: []float64{1, 1, 1, 1, 1}}
	st := newRunState(2, 5, 1, 1e-6, 0.1, 0.7, 0.5, 2, -1e300, 100)
	st.kopt = 2
	st.fopt = 1
	st.rho = 1

	d := &iterDriver{interp: interp, state: st, rep: rep, hup: defaultHUpdater{}}

	step := []float64{0.01, 0.01}
	xdrop, ximproved, knew := d.insertPoint(step, 1)
	if ximproved {
		t.Fatalf("expected ximproved=false for f=1 == fopt")
	}
	if knew != -1 || xdrop != nil {
		t.Fatalf("knew = %d, xdrop = %v, want discard sentinel -1 and nil xdrop", knew, xdrop)
	}
}

func TestRingBuffer3AllFailsUntilFilledBySentinel(t *testing.T) {
	r := newRingBuffer3()
	if r.all(func(v float64) bool { return v <= 1 }) {
		t.Fatalf("all() should fail while sentinel +Inf values remain")
	}
	r.push(0.1)
	r.push(0.2)
	r.push(0.3)
	if !r.all(func(v float64) bool { return v <= 1 }) {
		t.Fatalf("all() should pass once every slot is below the threshold")
	}
}
