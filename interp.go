// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "gonum.org/v1/gonum/mat"

// interpSet owns the sample points and values of the current
// interpolation set, all relative to xbase.
type interpSet struct {
	xbase []float64
	xpt   *mat.Dense // n x npt, columns are xbase-relative point displacements
	fval  []float64
}

func (s *interpSet) n() int    { return s.xpt.RawMatrix().Rows }
func (s *interpSet) npt() int  { return s.xpt.RawMatrix().Cols }
func (s *interpSet) col(k int) []float64 { return mat.Col(nil, k, s.xpt) }

// point returns the absolute coordinates of column k.
func (s *interpSet) point(k int) []float64 {
	c := s.col(k)
	out := make([]float64, len(c))
	for i := range out {
		out[i] = s.xbase[i] + c[i]
	}
	return out
}

// argminFval returns the index of the least fval entry, ties broken by
// lowest index.
func (s *interpSet) argminFval() int {
	best := 0
	for k := 1; k < len(s.fval); k++ {
		if s.fval[k] < s.fval[best] {
			best = k
		}
	}
	return best
}

// distSq returns ‖xpt[:,k] - xopt‖².
func (s *interpSet) distSq(k int, xopt []float64) float64 {
	return ddistsq(s.col(k), xopt)
}

// maxDistSq returns the largest distSq over all columns and the column
// achieving it.
func (s *interpSet) maxDistSq(xopt []float64) (k int, distsq float64) {
	for i := 0; i < s.npt(); i++ {
		d := s.distSq(i, xopt)
		if d > distsq {
			distsq = d
			k = i
		}
	}
	return
}

// shiftBase adds delta to xbase and subtracts it from every column of xpt,
// keeping xpt xbase-relative after xbase moves by delta.
func (s *interpSet) shiftBase(delta []float64) {
	for i := range s.xbase {
		s.xbase[i] += delta[i]
	}
	n, npt := s.xpt.Dims()
	for k := 0; k < npt; k++ {
		for i := 0; i < n; i++ {
			s.xpt.Set(i, k, s.xpt.At(i, k)-delta[i])
		}
	}
}
