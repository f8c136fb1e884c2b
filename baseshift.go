// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// baseShift re-centers xbase at xbase+xopt, keeping the model and the
// H-representation algebraically invariant under the reparameterization.
// Because this package always rebuilds the
// H-representation from the full point set rather than patching bmat/zmat
// incrementally (see DESIGN.md), the representation is simply recomputed
// from the shifted point set instead of adjusted in place; the net effect
// on bmat/zmat/idz is the same, with no accumulated drift. kopt identifies
// xopt's column so the model gradient can be re-derived via the pre-shift
// total Hessian.
func baseShift(interp *interpSet, m *quadModel, kopt int) (*hmatrix.Rep, error) {
	xopt := interp.col(kopt)
	n, npt := interp.xpt.Dims()

	// Htot = hq + Σ pq_k·xpt_k·xpt_kᵀ, evaluated against the PRE-shift
	// point set: the physical Hessian, invariant under the shift.
	htot := mat.NewSymDense(n, nil)
	htot.CopySym(m.hq)
	for k := 0; k < npt; k++ {
		if m.pq[k] == 0 {
			continue
		}
		xk := mat.Col(nil, k, interp.xpt)
		addOuterSym(htot, m.pq[k], xk)
	}

	gopt := m.gopt(xopt, interp.xpt)

	interp.shiftBase(xopt)

	m.gq = gopt
	m.hq = mat.NewSymDense(n, nil)
	m.hq.CopySym(htot)
	for k := 0; k < npt; k++ {
		if m.pq[k] == 0 {
			continue
		}
		xk := mat.Col(nil, k, interp.xpt)
		addOuterSym(m.hq, -m.pq[k], xk)
	}

	return hmatrix.NewFromPoints(interp.xpt)
}
