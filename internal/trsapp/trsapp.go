// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trsapp implements the driver's default trust-region subproblem
// solver (TRSAPP): an approximate minimizer of the quadratic model within
// a ball of radius delta, found by Steihaug-Toint truncated conjugate
// gradient. Curvature along the Krylov basis built by the CG recurrence is
// certified by the minimum eigenvalue of the associated Lanczos
// tridiagonal matrix, following the classical CG/Lanczos equivalence.
package trsapp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// HessMul computes (hq + Σ pq_k xpt_k xpt_kᵀ) applied to v, i.e. the
// model's constant Hessian operator acting on a direction.
type HessMul func(v []float64) []float64

// Solve returns a step d with ‖d‖ ≤ delta approximately minimizing
// gopt·d + ½dᵀHd, and crvmin, a certified lower bound on the curvature
// (dᵀHd)/(dᵀd) seen along the directions explored, or 0 if no positive
// curvature could be certified.
func Solve(gopt []float64, hessMul HessMul, delta, tol float64) (d []float64, crvmin float64) {
	n := len(gopt)
	d = make([]float64, n)

	gnorm := dnrm2(gopt)
	if gnorm == 0 || delta <= 0 {
		return d, 0
	}

	r := append([]float64(nil), gopt...)
	p := make([]float64, n)
	for i := range p {
		p[i] = -r[i]
	}
	rsold := ddot(r, r)

	var alphas, betas []float64
	maxIter := 2 * n
	if maxIter < 4 {
		maxIter = 4
	}

	for iter := 0; iter < maxIter; iter++ {
		Hp := hessMul(p)
		pHp := ddot(p, Hp)
		pp := ddot(p, p)

		if pHp <= tol*pp {
			tau := boundaryStep(d, p, delta)
			daxpy(tau, p, d)
			break
		}

		alpha := rsold / pHp
		trial := append([]float64(nil), d...)
		daxpy(alpha, p, trial)
		if dnrm2(trial) >= delta {
			tau := boundaryStep(d, p, delta)
			daxpy(tau, p, d)
			alphas = append(alphas, alpha)
			break
		}
		d = trial
		alphas = append(alphas, alpha)

		daxpy(alpha, Hp, r)
		rsnew := ddot(r, r)
		if math.Sqrt(rsnew) <= tol*gnorm {
			break
		}
		beta := rsnew / rsold
		betas = append(betas, beta)
		for i := range p {
			p[i] = -r[i] + beta*p[i]
		}
		rsold = rsnew
	}

	crvmin = lanczosMinCurvature(alphas, betas)
	return d, crvmin
}

// lanczosMinCurvature builds the tridiagonal matrix implied by the CG
// recurrence's (alpha, beta) sequence and returns its minimum eigenvalue
// clamped to zero, the classical CG/Lanczos curvature certificate.
func lanczosMinCurvature(alphas, betas []float64) float64 {
	m := len(alphas)
	if m == 0 {
		return 0
	}
	T := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		diag := 1 / alphas[i]
		if i > 0 {
			diag += betas[i-1] / alphas[i-1]
		}
		T.SetSym(i, i, diag)
		if i+1 < m {
			off := math.Sqrt(betas[i]) / alphas[i]
			T.SetSym(i, i+1, off)
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(T, false) {
		return 0
	}
	values := eig.Values(nil)
	minVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
	}
	if minVal < 0 {
		return 0
	}
	return minVal
}

// boundaryStep returns tau >= 0 solving ‖d+tau*p‖ = delta.
func boundaryStep(d, p []float64, delta float64) float64 {
	a := ddot(p, p)
	if a == 0 {
		return 0
	}
	b := 2 * ddot(d, p)
	c := ddot(d, d) - delta*delta
	disc := b*b - 4*a*c
	if disc < 0 {
		disc = 0
	}
	return (-b + math.Sqrt(disc)) / (2 * a)
}

func ddot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func dnrm2(a []float64) float64 { return math.Sqrt(ddot(a, a)) }

func daxpy(alpha float64, x, y []float64) {
	for i := range y {
		y[i] += alpha * x[i]
	}
}
