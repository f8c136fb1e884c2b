// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hmatrix owns the inverse-KKT H-representation (bmat, zmat, idz)
// of the least-Frobenius-norm quadratic interpolation problem that NEWUOA's
// driver is built around. Nothing outside this package ever sees bmat,
// zmat or idz directly: callers only get at H through Rep's Probe, Update,
// OmegaCol, OmegaDiag, OmegaMul, BRow and BCol operations.
//
// All coordinates handed to this package are already relative to the
// current xbase, matching the rest of the driver's convention.
package hmatrix

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// ErrSingular is returned by Update when the bordered KKT matrix for the
// proposed interpolation set is (numerically) singular.
var ErrSingular = errors.New("hmatrix: singular KKT system")

// Rep is the opaque H-representation for one interpolation set of npt
// points in n dimensions. The zero value is not usable; use New.
type Rep struct {
	n, npt   int
	numZCols int

	// bmat holds the n x npt block of H that maps an interpolation
	// right-hand side onto the model gradient at xbase. Powell's original
	// layout pads this out to n x (npt+n) with "insurance" columns used by
	// the incremental update to absorb base-shift bookkeeping; this
	// package recomputes H from scratch on every Update instead of
	// updating it incrementally, so those columns would carry no
	// information here and are omitted entirely. See DESIGN.md.
	bmat *mat.Dense // n x npt

	// zmat is the npt x numZCols factor with Ω = zmat * diag(dz) * zmatᵀ,
	// dz[j] = -1 for j < idz, +1 otherwise.
	zmat *mat.Dense
	idz  int
}

// New allocates a Rep for n dimensions and npt interpolation points. The
// returned value has no interpolation data yet; call Update (or have an
// Initializer populate it through the same operations) before using it.
func New(n, npt int) *Rep {
	numZCols := npt - n - 1
	if numZCols < 0 {
		numZCols = 0
	}
	r := &Rep{
		n: n, npt: npt, numZCols: numZCols,
		bmat: mat.NewDense(n, npt, nil),
	}
	if numZCols > 0 {
		r.zmat = mat.NewDense(npt, numZCols, nil)
	}
	return r
}

// N, NPT report the fixed dimensions this Rep was built for.
func (r *Rep) N() int   { return r.n }
func (r *Rep) NPT() int { return r.npt }

func (r *Rep) sign(j int) float64 {
	if j < r.idz {
		return -1
	}
	return 1
}

// OmegaCol returns column k of Ω = zmat*diag(dz)*zmatᵀ, length npt.
func (r *Rep) OmegaCol(k int) []float64 {
	out := make([]float64, r.npt)
	if r.numZCols == 0 {
		return out
	}
	row := mat.Row(nil, k, r.zmat)
	for j := range row {
		row[j] *= r.sign(j)
	}
	rowVec := mat.NewVecDense(r.numZCols, row)
	var colVec mat.VecDense
	colVec.MulVec(r.zmat, rowVec)
	copy(out, colVec.RawVector().Data)
	return out
}

// OmegaDiag returns Ω_kk.
func (r *Rep) OmegaDiag(k int) float64 {
	return r.OmegaCol(k)[k]
}

// OmegaMul returns Ω*v for an npt-length v.
func (r *Rep) OmegaMul(v []float64) []float64 {
	out := make([]float64, r.npt)
	if r.numZCols == 0 {
		return out
	}
	vVec := mat.NewVecDense(r.npt, append([]float64(nil), v...))
	var zt mat.VecDense
	zt.MulVec(r.zmat.T(), vVec)
	for j := 0; j < r.numZCols; j++ {
		zt.SetVec(j, zt.AtVec(j)*r.sign(j))
	}
	var o mat.VecDense
	o.MulVec(r.zmat, &zt)
	copy(out, o.RawVector().Data)
	return out
}

// BRow returns row i of bmat (the n x npt g-coefficient block), length npt.
func (r *Rep) BRow(i int) []float64 {
	return mat.Row(nil, i, r.bmat)
}

// BCol returns column k of bmat, length n: the contribution of the k-th
// interpolation condition to the model gradient at xbase.
func (r *Rep) BCol(k int) []float64 {
	return mat.Col(nil, k, r.bmat)
}

// Probe evaluates, for every current interpolation point k, the Lagrange
// function ℓ_k at the xbase-relative trial point y, and returns the
// companion denominator-correction scalar β(y). xpt holds the CURRENT
// (pre-update) point displacements, column-major, n x npt.
//
// ℓ_k(y) = bmat[:,k]·y + ½·(Ω·w)_k,  w_i = (xpt[:,i]·y)²
// β(y)   = ½‖y‖⁴ − w·(Ω·w)
func (r *Rep) Probe(xpt *mat.Dense, y []float64) (lambda []float64, beta float64) {
	w := make([]float64, r.npt)
	for i := 0; i < r.npt; i++ {
		xi := mat.Col(nil, i, xpt)
		d := dot(xi, y)
		w[i] = d * d
	}
	ow := r.OmegaMul(w)

	yVec := mat.NewVecDense(r.n, append([]float64(nil), y...))
	var bty mat.VecDense
	bty.MulVec(r.bmat.T(), yVec) // npt-vector: bmat[:,k]·y for every k

	lambda = make([]float64, r.npt)
	for k := 0; k < r.npt; k++ {
		lambda[k] = bty.AtVec(k) + 0.5*ow[k]
	}

	ynorm2 := dot(y, y)
	beta = 0.5*ynorm2*ynorm2 - dot(w, ow)
	return lambda, beta
}

// Update replaces interpolation point knew with xopt+d (xopt is column
// kopt of xpt, all relative to xbase) and recomputes the H-representation
// for the resulting point set from scratch, via a direct solve of the
// bordered KKT system rather than Powell's incremental rank-2 update.
// By never forming the incremental Sherman-Morrison denominator at all,
// this implementation cannot suffer from a non-finite or ill-conditioned
// one, at the cost of O(npt^3) work per update instead of O(npt^2).
//
// xpt must be the PRE-update point set; Update does not mutate it — the
// caller is responsible for writing xopt+d into column knew afterward.
//
// Returns the Lagrange value λ_knew and denominator β for the trial point,
// computed against the PRE-update representation.
func (r *Rep) Update(xpt *mat.Dense, knew, kopt int, d []float64) (lambda, beta float64, err error) {
	xopt := mat.Col(nil, kopt, xpt)
	y := make([]float64, r.n)
	for i := range y {
		y[i] = xopt[i] + d[i]
	}

	allLambda, b := r.Probe(xpt, y)
	lambda, beta = allLambda[knew], b

	xptNew := mat.DenseCopyOf(xpt)
	xptNew.SetCol(knew, y)

	fresh, err := NewFromPoints(xptNew)
	if err != nil {
		return lambda, beta, err
	}
	r.bmat = fresh.bmat
	r.zmat = fresh.zmat
	r.idz = fresh.idz

	return lambda, beta, nil
}

// NewFromPoints builds a fresh H-representation directly from a complete
// set of xbase-relative point displacements (n x npt), by inverting the
// bordered KKT matrix of the least-Frobenius-norm interpolation problem
// and factoring its Ω block into (zmat, idz).
func NewFromPoints(xpt *mat.Dense) (*Rep, error) {
	n, npt := xpt.Dims()
	r := New(n, npt)

	K, _ := r.buildKKT(xpt)
	var Kinv mat.Dense
	if err := Kinv.Inverse(K); err != nil {
		return nil, ErrSingular
	}

	sym := mat.NewSymDense(npt, nil)
	for i := 0; i < npt; i++ {
		for j := i; j < npt; j++ {
			sym.SetSym(i, j, Kinv.At(i, j))
		}
	}
	for i := 0; i < n; i++ {
		for k := 0; k < npt; k++ {
			r.bmat.Set(i, k, Kinv.At(npt+1+i, k))
		}
	}

	if r.numZCols == 0 {
		return r, nil
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(sym, true); !ok {
		return nil, ErrSingular
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	type pair struct {
		val float64
		vec []float64
	}
	pairs := make([]pair, npt)
	for i := 0; i < npt; i++ {
		pairs[i] = pair{val: values[i], vec: mat.Col(nil, i, &vectors)}
	}
	sort.Slice(pairs, func(a, b int) bool {
		return absf(pairs[a].val) < absf(pairs[b].val)
	})
	// drop the n+1 eigenpairs closest to zero: the null space spanned by
	// the ones-vector and the n coordinate moment constraints.
	kept := pairs[npt-r.numZCols:]
	sort.Slice(kept, func(a, b int) bool { return kept[a].val < kept[b].val })

	idz := 0
	for j, p := range kept {
		scale := sqrtf(absf(p.val))
		col := make([]float64, npt)
		for i := range col {
			col[i] = p.vec[i] * scale
		}
		r.zmat.SetCol(j, col)
		if p.val < 0 {
			idz = j + 1
		}
	}
	r.idz = idz

	return r, nil
}

// buildKKT assembles the (npt+1+n) bordered matrix whose inverse yields Ω
// (top-left npt x npt block) and the model-gradient coefficients (bottom n
// rows), following the least-Frobenius-norm interpolation system.
func (r *Rep) buildKKT(xpt *mat.Dense) (*mat.Dense, int) {
	size := r.npt + 1 + r.n
	K := mat.NewDense(size, size, nil)
	for i := 0; i < r.npt; i++ {
		xi := mat.Col(nil, i, xpt)
		for j := 0; j <= i; j++ {
			xj := mat.Col(nil, j, xpt)
			d := dot(xi, xj)
			v := 0.5 * d * d
			K.Set(i, j, v)
			K.Set(j, i, v)
		}
		K.Set(i, r.npt, 1)
		K.Set(r.npt, i, 1)
		for k := 0; k < r.n; k++ {
			K.Set(i, r.npt+1+k, xi[k])
			K.Set(r.npt+1+k, i, xi[k])
		}
	}
	return K, size
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func absf(x float64) float64 { return math.Abs(x) }

func sqrtf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Sqrt(x)
}
