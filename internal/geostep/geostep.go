// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package geostep implements the driver's default geometry step (the
// combined role of BIGLAG/BIGDEN/GEOSTEP): given the point to replace,
// produce a step of length approximately delbar that makes the Lagrange
// function of the replaced point as large in magnitude as possible at the
// new location, improving the poisedness of the interpolation set.
//
// The search is an angle sweep over the 2-D subspace spanned by the
// Lagrange function's gradient at xopt and a unit direction orthogonal to
// it in the Euclidean sense (Gram-Schmidt against the coordinate axis least
// aligned with the gradient), bracket-and-refine in the same spirit as a
// scalar line search adapted from a step-length search to a search over an
// angle.
package geostep

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// Step returns a step d, ‖d‖ ≈ delbar, intended to replace column knew of
// xpt with xopt+d in a way that improves the poisedness of the
// interpolation set.
func Step(rep *hmatrix.Rep, xpt *mat.Dense, xopt []float64, knew int, delbar float64) []float64 {
	n := rep.N()
	if delbar <= 0 {
		return make([]float64, n)
	}

	u := lagrangeGradient(rep, xpt, xopt, knew)
	if dnrm2(u) == 0 {
		u = make([]float64, n)
		u[0] = 1
	}
	normalize(u)

	v := orthogonalComplement(u)
	if dnrm2(v) == 0 {
		return scaled(u, delbar)
	}
	normalize(v)

	const samples = 48
	bestVal := math.Inf(-1)
	bestTheta := 0.0
	for i := 0; i < samples; i++ {
		theta := 2 * math.Pi * float64(i) / samples
		val := math.Abs(evalLagrange(rep, xpt, xopt, knew, u, v, theta, delbar))
		if val > bestVal {
			bestVal = val
			bestTheta = theta
		}
	}

	// Golden-section-style local refinement around the best sample.
	step := 2 * math.Pi / samples
	lo, hi := bestTheta-step, bestTheta+step
	for iter := 0; iter < 20; iter++ {
		m1 := lo + (hi-lo)/3
		m2 := hi - (hi-lo)/3
		v1 := math.Abs(evalLagrange(rep, xpt, xopt, knew, u, v, m1, delbar))
		v2 := math.Abs(evalLagrange(rep, xpt, xopt, knew, u, v, m2, delbar))
		if v1 < v2 {
			lo = m1
		} else {
			hi = m2
		}
	}
	bestTheta = 0.5 * (lo + hi)

	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = delbar * (math.Cos(bestTheta)*u[i] + math.Sin(bestTheta)*v[i])
	}
	return d
}

func evalLagrange(rep *hmatrix.Rep, xpt *mat.Dense, xopt []float64, knew int, u, v []float64, theta, delbar float64) float64 {
	n := len(xopt)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = xopt[i] + delbar*(math.Cos(theta)*u[i]+math.Sin(theta)*v[i])
	}
	lambda, _ := rep.Probe(xpt, y)
	return lambda[knew]
}

// lagrangeGradient returns ∇ℓ_knew(xopt) = bcol_knew + Σ_i Ω(i,knew) (xpt_i·xopt) xpt_i.
func lagrangeGradient(rep *hmatrix.Rep, xpt *mat.Dense, xopt []float64, knew int) []float64 {
	g := rep.BCol(knew)
	omega := rep.OmegaCol(knew)
	npt := rep.NPT()
	for i := 0; i < npt; i++ {
		w := omega[i]
		if w == 0 {
			continue
		}
		xi := mat.Col(nil, i, xpt)
		dot := ddot(xi, xopt)
		daxpy(w*dot, xi, g)
	}
	return g
}

// orthogonalComplement returns a vector orthogonal to u via Gram-Schmidt
// against the standard basis vector least aligned with u.
func orthogonalComplement(u []float64) []float64 {
	n := len(u)
	j := 0
	for i := 1; i < n; i++ {
		if math.Abs(u[i]) < math.Abs(u[j]) {
			j = i
		}
	}
	e := make([]float64, n)
	e[j] = 1
	proj := ddot(e, u)
	v := make([]float64, n)
	for i := range v {
		v[i] = e[i] - proj*u[i]
	}
	return v
}

func normalize(x []float64) {
	nrm := dnrm2(x)
	if nrm == 0 {
		return
	}
	for i := range x {
		x[i] /= nrm
	}
}

func scaled(x []float64, s float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * s
	}
	return out
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
