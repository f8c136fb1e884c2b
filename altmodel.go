// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// tryAlternativeModel counts consecutive iterations where the
// trust-region step made little progress
// (ratio <= 0.01) and the current gradient isn't dramatically larger than
// the least-Frobenius-norm alternative's; after three such iterations in a
// row, replace (gq, hq, pq) with the alternative interpolant and reset the
// counter. Any iteration that fails the predicate resets itest to 0.
//
// The legacy driver compares ratio, not |ratio|, against the alternative
// model test; this implementation follows that reading (see DESIGN.md).
func (m *quadModel) tryAlternativeModel(s *runState, xpt *mat.Dense, rep *hmatrix.Rep, fval []float64, xopt []float64, ratio float64) {
	galt, pqalt := alternativeModel(xpt, rep, fval, s.fopt, xopt)

	g2 := ddot(m.gq, m.gq)
	galt2 := ddot(galt, galt)

	if ratio <= 0.01 && g2 <= 100*galt2 {
		s.itest++
		if s.itest >= 3 {
			m.gq = galt
			m.hq = mat.NewSymDense(len(galt), nil)
			m.pq = pqalt
			s.itest = 0
		}
		return
	}
	s.itest = 0
}

// alternativeModel computes the least-Frobenius-norm interpolant's
// gradient-at-xbase and implicit weights; its explicit Hessian is always 0.
func alternativeModel(xpt *mat.Dense, rep *hmatrix.Rep, fval []float64, fopt float64, xopt []float64) (galt, pqalt []float64) {
	n, npt := xpt.Dims()
	fdiff := make([]float64, npt)
	for k := range fdiff {
		fdiff[k] = fval[k] - fopt
	}
	pqalt = rep.OmegaMul(fdiff)

	galt = make([]float64, n)
	for k := 0; k < npt; k++ {
		daxpy(fdiff[k], rep.BCol(k), galt)
	}
	for k := 0; k < npt; k++ {
		if pqalt[k] == 0 {
			continue
		}
		xk := mat.Col(nil, k, xpt)
		daxpy(pqalt[k]*ddot(xk, xopt), xk, galt)
	}
	return galt, pqalt
}
