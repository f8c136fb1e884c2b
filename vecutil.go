// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "gonum.org/v1/gonum/floats"

// daxpy computes y += a*x for two equal-length vectors, unrolled by four.
// Adapted from the level-1 BLAS kernels in curioloop-optimizer/slsqp/blas.go.
func daxpy(a float64, x, y []float64) {
	if a == 0 {
		return
	}
	n := len(x)
	if n != len(y) {
		panic("bound check error")
	}
	m := n % 4
	for i := 0; i < m; i++ {
		y[i] += a * x[i]
	}
	for i := m; i < n; i += 4 {
		xs := x[i : i+4 : i+4]
		ys := y[i : i+4 : i+4]
		ys[0] += a * xs[0]
		ys[1] += a * xs[1]
		ys[2] += a * xs[2]
		ys[3] += a * xs[3]
	}
}

// ddot computes the dot product of two equal-length vectors.
func ddot(x, y []float64) float64 {
	if len(x) != len(y) {
		panic("bound check error")
	}
	return floats.Dot(x, y)
}

// dnrm2 returns the Euclidean norm of x.
func dnrm2(x []float64) float64 {
	return floats.Norm(x, 2)
}

// ddistsq returns the squared Euclidean distance between x and y.
func ddistsq(x, y []float64) float64 {
	d := floats.Distance(x, y, 2)
	return d * d
}

// anyNaN reports whether any element of any of the given slices is NaN or ±Inf.
func anyNaN(vs ...[]float64) bool {
	for _, v := range vs {
		for _, x := range v {
			if isNaNOrInf(x) {
				return true
			}
		}
	}
	return false
}
