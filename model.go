// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// quadModel holds the quadratic interpolant's parameters:
//
//	m(y) = fopt + gqᵀ(y-xbase) + ½(y-xbase)ᵀ·(hq + Σ_k pq_k·xpt_k·xpt_kᵀ)·(y-xbase)
//
// gq is the model gradient at xbase; gopt, the gradient at the current
// xopt used by the trust-region solver, is derived on demand.
type quadModel struct {
	gq []float64
	hq *mat.SymDense
	pq []float64
}

func newQuadModel(n, npt int) *quadModel {
	return &quadModel{
		gq: make([]float64, n),
		hq: mat.NewSymDense(n, nil),
		pq: make([]float64, npt),
	}
}

// hessMul applies the model's (constant) Hessian, hq + Σ_k pq_k·xpt_k·xpt_kᵀ,
// to v.
func (m *quadModel) hessMul(v []float64, xpt *mat.Dense) []float64 {
	n := len(v)
	out := make([]float64, n)
	vVec := mat.NewVecDense(n, append([]float64(nil), v...))
	var hv mat.VecDense
	hv.MulVec(m.hq, vVec)
	copy(out, hv.RawVector().Data)

	_, npt := xpt.Dims()
	for k := 0; k < npt; k++ {
		coef := m.pq[k]
		if coef == 0 {
			continue
		}
		xk := mat.Col(nil, k, xpt)
		daxpy(coef*ddot(xk, v), xk, out)
	}
	return out
}

// gopt returns the model gradient at xopt: gq + H·xopt.
func (m *quadModel) gopt(xopt []float64, xpt *mat.Dense) []float64 {
	out := append([]float64(nil), m.gq...)
	daxpy(1, m.hessMul(xopt, xpt), out)
	return out
}

// reduction returns qred = m(xopt) - m(xopt+d) = -(gopt·d + ½dᵀHd).
func (m *quadModel) reduction(d, gopt []float64, xpt *mat.Dense) float64 {
	Hd := m.hessMul(d, xpt)
	return -(ddot(gopt, d) + 0.5*ddot(d, Hd))
}

// update refreshes (gq, hq, pq) after interpolation point knew has been
// replaced by xopt+d, in four steps: absorb the replaced point's
// implicit weight into the explicit Hessian, redistribute the implicit
// weights by moderr times the updated H-representation's column, fold
// that redistribution into the gradient at the pre-replacement xopt, and
// finally re-center the gradient if the new sample became the new xopt.
// xpt, rep must already reflect the post-replacement state; xdrop and
// xosav are the pre-replacement xpt[:,knew] and xopt. moderr is
// f - fopt_old + qred,
// already computed by the driver. ximproved reports whether the new
// sample became the new xopt.
func (m *quadModel) update(xpt *mat.Dense, rep *hmatrix.Rep, knew int, xdrop, xosav, d []float64, moderr float64, ximproved bool) {
	// (1) absorb the vanishing implicit coefficient into the explicit Hessian.
	if pk := m.pq[knew]; pk != 0 {
		addOuterSym(m.hq, pk, xdrop)
		m.pq[knew] = 0
	}

	// (2) increment the implicit weights by moderr·ω(·,knew).
	omega := rep.OmegaCol(knew)
	dpq := make([]float64, len(omega))
	for j := range dpq {
		dpq[j] = moderr * omega[j]
	}
	daxpy(1, dpq, m.pq)

	// (3) update the gradient at xosav.
	bcol := rep.BCol(knew)
	daxpy(moderr, bcol, m.gq)
	_, npt := xpt.Dims()
	for j := 0; j < npt; j++ {
		if dpq[j] == 0 {
			continue
		}
		xj := mat.Col(nil, j, xpt)
		daxpy(dpq[j]*ddot(xj, xosav), xj, m.gq)
	}

	// (4) shift the evaluation point if the new sample became xopt.
	if ximproved {
		daxpy(1, m.hessMul(d, xpt), m.gq)
	}
}

// addOuterSym adds coef*x*xᵀ into the symmetric matrix s in place.
func addOuterSym(s *mat.SymDense, coef float64, x []float64) {
	n := len(x)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, s.At(i, j)+coef*x[i]*x[j])
		}
	}
}
