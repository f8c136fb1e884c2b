// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"gonum.org/v1/gonum/mat"

	"github.com/jschueller/newuoa/internal/geostep"
	"github.com/jschueller/newuoa/internal/hmatrix"
	"github.com/jschueller/newuoa/internal/initpt"
	"github.com/jschueller/newuoa/internal/trsapp"
)

// Objective is the user's function: x is read-only, length n. A NaN or
// +Inf return is a terminal condition (NaNInfF), never an error value
// the driver tries to recover from. The initial sampling treats -Inf the
// same way; after it, -Inf is passed on to the ftarget check, which it
// always meets.
type Objective func(x []float64) (f float64, err error)

// TRSolver produces a trust-region step from the current model by an
// approximate minimization within the trust region.
type TRSolver interface {
	Solve(gopt []float64, hessMul func(v []float64) []float64, delta, tol float64) (d []float64, crvmin float64)
}

// GeometryStepper produces a step that improves the interpolation set's
// poisedness by replacing its point farthest from xopt.
type GeometryStepper interface {
	Step(rep *hmatrix.Rep, xpt *mat.Dense, xopt []float64, knew int, delbar float64) []float64
}

// HUpdater refreshes the H-representation when one interpolation point is
// replaced.
type HUpdater interface {
	Update(rep *hmatrix.Rep, xpt *mat.Dense, knew, kopt int, d []float64) (lambda, beta float64, err error)
}

// Initializer builds the first interpolation set, model and
// H-representation.
type Initializer interface {
	Init(n, npt int, x0 []float64, rhobeg, ftarget float64, eval Objective) (*initpt.Result, error)
}

type defaultTRSolver struct{}

func (defaultTRSolver) Solve(gopt []float64, hessMul func(v []float64) []float64, delta, tol float64) (d []float64, crvmin float64) {
	return trsapp.Solve(gopt, hessMul, delta, tol)
}

type defaultGeometryStepper struct{}

func (defaultGeometryStepper) Step(rep *hmatrix.Rep, xpt *mat.Dense, xopt []float64, knew int, delbar float64) []float64 {
	return geostep.Step(rep, xpt, xopt, knew, delbar)
}

type defaultHUpdater struct{}

func (defaultHUpdater) Update(rep *hmatrix.Rep, xpt *mat.Dense, knew, kopt int, d []float64) (lambda, beta float64, err error) {
	return rep.Update(xpt, knew, kopt, d)
}

type defaultInitializer struct{}

func (defaultInitializer) Init(n, npt int, x0 []float64, rhobeg, ftarget float64, eval Objective) (*initpt.Result, error) {
	return initpt.CoordinateInit(n, npt, x0, rhobeg, ftarget, func(x []float64) (float64, error) {
		return eval(x)
	})
}
