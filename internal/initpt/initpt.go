// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package initpt implements the driver's default Initializer: a coordinate
// step sampling of the first interpolation set, following Powell's
// original construction of the starting point set before the first trust
// region iteration. It evaluates the objective at xbase and along the
// positive (and, budget permitting, negative) coordinate axes, builds the
// starting quadratic model from the resulting one- and two-sided
// differences, and bootstraps the H-representation from the completed
// point set via hmatrix.NewFromPoints.
package initpt

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// Status reports why CoordinateInit stopped sampling, mirroring the
// driver's own exit-code vocabulary without importing it (this package
// sits below the root package in the import graph).
type Status int

const (
	// OK means every sample evaluated cleanly; npt points are ready.
	OK Status = iota
	// NaNInput means a trial point itself contained a NaN or infinite
	// coordinate before the objective was even called.
	NaNInput
	// NaNInfF means the objective returned NaN or infinite.
	NaNInfF
	// FTargetReached means a sample met or beat the caller's ftarget.
	FTargetReached
)

// EvalFunc evaluates the objective at x, xbase-relative coordinates added
// in by the caller before invocation.
type EvalFunc func(x []float64) (f float64, err error)

// Result holds everything the driver needs to begin its first iteration.
type Result struct {
	XBase []float64
	XPT   *mat.Dense // n x npt, column k relative to XBase
	FVal  []float64  // length npt
	Kopt  int
	GQ    []float64
	HQ    *mat.SymDense
	PQ    []float64
	Rep   *hmatrix.Rep
	NF    int
	Status Status
	// StopX, StopF record the triggering sample when Status != OK.
	StopX []float64
	StopF float64
}

// CoordinateInit samples the initial interpolation set around x0 using
// steps of size rhobeg along each coordinate axis, evaluating at most npt
// points (including xbase itself), and builds the starting quadratic
// model and H-representation. Sampling stops early, with the
// corresponding Status, on a non-finite trial point, a non-finite
// objective value, or a value at or below ftarget.
func CoordinateInit(n, npt int, x0 []float64, rhobeg, ftarget float64, eval EvalFunc) (*Result, error) {
	xbase := append([]float64(nil), x0...)
	xpt := mat.NewDense(n, npt, nil)
	fval := make([]float64, npt)

	nf := 0
	sample := func(col int, disp []float64) (*Result, bool) {
		x := make([]float64, n)
		for i := range x {
			x[i] = xbase[i] + disp[i]
		}
		for _, v := range x {
			if isNaNOrInf(v) {
				return &Result{XBase: xbase, NF: nf, Status: NaNInput, StopX: x}, true
			}
		}
		f, err := eval(x)
		nf++
		if err != nil || isNaNOrInf(f) {
			return &Result{XBase: xbase, NF: nf, Status: NaNInfF, StopX: x, StopF: f}, true
		}
		xpt.SetCol(col, disp)
		fval[col] = f
		if f <= ftarget {
			return &Result{XBase: xbase, NF: nf, Status: FTargetReached, StopX: x, StopF: f}, true
		}
		return nil, false
	}

	zero := make([]float64, n)
	if stop, done := sample(0, zero); done {
		return stop, nil
	}

	naxes := n
	if naxes > npt-1 {
		naxes = npt - 1
	}
	for j := 0; j < naxes; j++ {
		disp := make([]float64, n)
		disp[j] = rhobeg
		if stop, done := sample(1+j, disp); done {
			return stop, nil
		}
	}

	nneg := naxes
	if nneg > npt-1-naxes {
		nneg = npt - 1 - naxes
	}
	for j := 0; j < nneg; j++ {
		disp := make([]float64, n)
		disp[j] = -rhobeg
		if stop, done := sample(1+naxes+j, disp); done {
			return stop, nil
		}
	}

	// Remaining budget slots, available once npt exceeds the canonical
	// 2n+1, are spent on off-diagonal pairs xbase + rhobeg*(e_i + e_j),
	// one pair per slot, enumerated (i,j), i<j, in lexicographic order.
	// These give the model its cross-Hessian terms.
	noff := npt - 1 - naxes - nneg
	offCol := make(map[[2]int]int, noff)
	pairIdx := 0
outer:
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if pairIdx >= noff {
				break outer
			}
			disp := make([]float64, n)
			disp[i] = rhobeg
			disp[j] = rhobeg
			col := 1 + naxes + nneg + pairIdx
			if stop, done := sample(col, disp); done {
				return stop, nil
			}
			offCol[[2]int{i, j}] = col
			pairIdx++
		}
	}

	gq := make([]float64, n)
	hq := mat.NewSymDense(n, nil)
	pq := make([]float64, npt)

	f0 := fval[0]
	for j := 0; j < naxes; j++ {
		plusIdx := 1 + j
		fPlus := fval[plusIdx]
		if j < nneg {
			minusIdx := 1 + naxes + j
			fMinus := fval[minusIdx]
			gq[j] = (fPlus - fMinus) / (2 * rhobeg)
			hq.SetSym(j, j, (fPlus+fMinus-2*f0)/(rhobeg*rhobeg))
		} else {
			gq[j] = (fPlus - f0) / rhobeg
		}
	}
	for pair, col := range offCol {
		i, j := pair[0], pair[1]
		fIJ := fval[col]
		fI := fval[1+i]
		fJ := fval[1+j]
		hq.SetSym(i, j, (fIJ-fI-fJ+f0)/(rhobeg*rhobeg))
	}

	rep, err := hmatrix.NewFromPoints(xpt)
	if err != nil {
		return nil, err
	}

	kopt := 0
	for k := 1; k < npt; k++ {
		if fval[k] < fval[kopt] {
			kopt = k
		}
	}

	return &Result{
		XBase: xbase,
		XPT:   xpt,
		FVal:  fval,
		Kopt:  kopt,
		GQ:    gq,
		HQ:    hq,
		PQ:    pq,
		Rep:   rep,
		NF:    nf,
		Status: OK,
	}, nil
}

func isNaNOrInf(x float64) bool { return math.IsNaN(x) || math.IsInf(x, 0) }
