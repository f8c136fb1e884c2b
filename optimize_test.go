// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"
	"sync"
	"testing"
)

func TestProblemNewRejectsBadDimension(t *testing.T) {
	p := &Problem{N: 0, NPT: 5, RhoBeg: 1, RhoEnd: 1e-6, MaxFun: 100,
		Eval: func(x []float64) (float64, error) { return 0, nil }}
	if _, err := p.New(nil); err == nil {
		t.Fatalf("expected error for n <= 0")
	}
}

func TestProblemNewRejectsBadRho(t *testing.T) {
	p := &Problem{N: 2, NPT: 5, RhoBeg: 1e-6, RhoEnd: 1, MaxFun: 100,
		Eval: func(x []float64) (float64, error) { return 0, nil }}
	if _, err := p.New(nil); err == nil {
		t.Fatalf("expected error for rhoend > rhobeg")
	}
}

func TestProblemNewAppliesDefaults(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 1, RhoEnd: 1e-6, MaxFun: 100,
		Eval: func(x []float64) (float64, error) { return 0, nil }}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.npt != 5 {
		t.Fatalf("npt = %d, want canonical 2n+1 = 5", o.npt)
	}
	if o.eta1 != 0.1 || o.eta2 != 0.7 {
		t.Fatalf("eta1/eta2 = %v/%v, want legacy defaults 0.1/0.7", o.eta1, o.eta2)
	}
}

func TestMinimizeConstantObjectiveConverges(t *testing.T) {
	p := &Problem{N: 3, RhoBeg: 1, RhoEnd: 1e-4, MaxFun: 200, FTarget: negInf,
		Eval: func(x []float64) (float64, error) { return 42, nil }}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.Minimize([]float64{1, 1, 1}, o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if res.Status != SmallTrustRegionRadius {
		t.Fatalf("status = %v, want SmallTrustRegionRadius", res.Status)
	}
	if math.Abs(res.F-42) > 1e-8 {
		t.Fatalf("f = %v, want 42", res.F)
	}
}

func TestMinimizeQuadraticBowlReducesF(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 0.5, RhoEnd: 1e-6, MaxFun: 500, FTarget: negInf,
		Eval: func(x []float64) (float64, error) {
			return x[0]*x[0] + 2*x[1]*x[1], nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x0 := []float64{3, -2}

	res, err := o.Minimize(x0, o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if res.Status != SmallTrustRegionRadius {
		t.Fatalf("status = %v, want SmallTrustRegionRadius", res.Status)
	}
	if d := math.Max(math.Abs(res.X[0]), math.Abs(res.X[1])); d > 1e-4 {
		t.Fatalf("x = %v, want within 1e-4 of the minimizer (0,0)", res.X)
	}
}

// TestMinimizeQuadraticFormConvergesToExactInverse mirrors the Trid-like
// end-to-end scenario: f(x) = ½xᵀAx − bᵀx for an SPD diagonal A with
// condition number 100, whose minimizer is x* = A⁻¹b.
func TestMinimizeQuadraticFormConvergesToExactInverse(t *testing.T) {
	a := []float64{1, 5, 10, 50, 100}
	b := []float64{1, 2, 3, 4, 5}
	n := len(a)
	xstar := make([]float64, n)
	for i := range xstar {
		xstar[i] = b[i] / a[i]
	}

	p := &Problem{N: n, RhoBeg: 1, RhoEnd: 1e-8, MaxFun: 500, FTarget: negInf,
		Eval: func(x []float64) (float64, error) {
			var f float64
			for i := 0; i < n; i++ {
				f += 0.5*a[i]*x[i]*x[i] - b[i]*x[i]
			}
			return f, nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.Minimize(make([]float64, n), o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	for i := range xstar {
		if d := math.Abs(res.X[i] - xstar[i]); d > 1e-6 {
			t.Fatalf("x[%d] = %v, want %v within 1e-6", i, res.X[i], xstar[i])
		}
	}
	if res.NF > 300 {
		t.Fatalf("nf = %d, want <= 300", res.NF)
	}
}

// TestMinimizeRosenbrockConvergesToMinimizer is the classic curved-valley
// end-to-end scenario.
func TestMinimizeRosenbrockConvergesToMinimizer(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 0.5, RhoEnd: 1e-6, MaxFun: 500, FTarget: negInf,
		Eval: func(x []float64) (float64, error) {
			return (1-x[0])*(1-x[0]) + 100*(x[1]-x[0]*x[0])*(x[1]-x[0]*x[0]), nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.Minimize([]float64{-1.2, 1}, o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if d := math.Max(math.Abs(res.X[0]-1), math.Abs(res.X[1]-1)); d > 1e-4 {
		t.Fatalf("x = %v, want within 1e-4 of (1,1)", res.X)
	}
}

// ascentTRSolver always steps along +gopt, the direction a quadratic
// model with a positive semidefinite Hessian never reduces along: it
// exercises the qred <= 0, non-short trust-region step failure path.
type ascentTRSolver struct{}

func (ascentTRSolver) Solve(gopt []float64, hessMul func([]float64) []float64, delta, tol float64) (d []float64, crvmin float64) {
	d = make([]float64, len(gopt))
	norm := dnrm2(gopt)
	if norm == 0 {
		return d, 0
	}
	scale := delta / norm
	for i := range d {
		d[i] = scale * gopt[i]
	}
	return d, 0
}

func TestMinimizeReportsTrustRegionStepFailedOnAscentStep(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 0.5, RhoEnd: 1e-4, MaxFun: 500, FTarget: negInf,
		TR: ascentTRSolver{},
		Eval: func(x []float64) (float64, error) {
			return x[0]*x[0] + 2*x[1]*x[1], nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.Minimize([]float64{3, -2}, o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if res.Status != TrustRegionStepFailed {
		t.Fatalf("status = %v, want TrustRegionStepFailed", res.Status)
	}
}

func TestMinimizeWithReplicateLegacyExtraStepDoesNotRegress(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 0.5, RhoEnd: 1e-4, MaxFun: 500, FTarget: negInf,
		Options: Options{ReplicateLegacyExtraStep: true},
		Eval: func(x []float64) (float64, error) {
			return x[0]*x[0] + 2*x[1]*x[1], nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x0 := []float64{3, -2}
	f0 := x0[0]*x0[0] + 2*x0[1]*x0[1]

	res, err := o.Minimize(x0, o.Init())
	if err != nil {
		t.Fatalf("Minimize: %v", err)
	}
	if res.F > f0 {
		t.Fatalf("f = %v did not improve on f0 = %v", res.F, f0)
	}
}

func TestMinimizeRejectsMismatchedWorkspace(t *testing.T) {
	p2 := &Problem{N: 2, RhoBeg: 1, RhoEnd: 1e-4, MaxFun: 100, FTarget: negInf,
		Eval: func(x []float64) (float64, error) { return 0, nil }}
	o2, _ := p2.New(nil)

	p3 := &Problem{N: 3, RhoBeg: 1, RhoEnd: 1e-4, MaxFun: 100, FTarget: negInf,
		Eval: func(x []float64) (float64, error) { return 0, nil }}
	o3, _ := p3.New(nil)

	if _, err := o2.Minimize([]float64{1, 1}, o3.Init()); err == nil {
		t.Fatalf("expected error mixing a Workspace from a different Optimizer")
	}
}

// TestIndependentWorkspaces exercises the concurrency model: one
// Optimizer shared across goroutines, each with its own Workspace and
// Minimize call, must not observe each other's state.
func TestIndependentWorkspaces(t *testing.T) {
	p := &Problem{N: 2, RhoBeg: 0.5, RhoEnd: 1e-5, MaxFun: 300, FTarget: negInf,
		Eval: func(x []float64) (float64, error) {
			return (x[0]-1)*(x[0]-1) + (x[1]+1)*(x[1]+1), nil
		}}
	o, err := p.New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	const runs = 8
	var wg sync.WaitGroup
	results := make([]*Result, runs)
	errs := make([]error, runs)
	f0s := make([]float64, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x0 := []float64{float64(i + 2), float64(-(i + 2))}
			f0s[i] = (x0[0]-1)*(x0[0]-1) + (x0[1]+1)*(x0[1]+1)
			results[i], errs[i] = o.Minimize(x0, o.Init())
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil {
			t.Fatalf("run %d: Minimize: %v", i, errs[i])
		}
		if results[i].F > f0s[i] {
			t.Fatalf("run %d: f = %v did not improve on f0 = %v", i, results[i].F, f0s[i])
		}
	}
}
