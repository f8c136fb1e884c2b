// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"math"

	"github.com/jschueller/newuoa/internal/hmatrix"
)

// iterDriver runs one NEWUOA optimization: it owns the interpolation
// set, the quadratic model, the H-representation and the run's scalar
// state, and orchestrates the trust-region/geometry alternation that
// makes up an optimization run.
type iterDriver struct {
	obj    Objective
	state  *runState
	interp *interpSet
	model  *quadModel
	rep    *hmatrix.Rep

	tr  TRSolver
	geo GeometryStepper
	hup HUpdater

	hist    *History
	logger  *Logger
	options Options

	bestX []float64
	bestF float64
}

// evaluate calls the objective at the absolute point xabs, checking for a
// NaN or infinite input coordinate, a NaN or +Inf objective value, the target value and the
// evaluation budget, in that order. A -Inf objective value is not treated
// as an error: it falls through to the target check, which it always
// satisfies. code is noExit when the caller should keep going.
func (d *iterDriver) evaluate(xabs []float64) (f float64, code ExitCode) {
	for _, v := range xabs {
		if isNaNOrInf(v) {
			return math.NaN(), NaNInput
		}
	}
	fv, err := d.obj(xabs)
	d.state.nf++
	if d.hist != nil {
		d.hist.record(xabs, fv)
	}
	if err != nil || math.IsNaN(fv) || math.IsInf(fv, 1) {
		return fv, NaNInfF
	}
	if d.logger != nil && d.logger.enable(LogEval) {
		d.logger.log("nf=%d f=%.10e\n", d.state.nf, fv)
	}
	if fv <= d.state.ftarget {
		return fv, FTargetReached
	}
	if d.state.nf >= d.state.maxfun {
		return fv, MaxFunReached
	}
	return fv, noExit
}

// anyModelNaN is the driver's cheap defensive scan for NaN or infinite
// entries in gq, pq, hq and the rows of bmat, run before the trust-region
// solve and before a geometry step. zmat is not scanned.
func (d *iterDriver) anyModelNaN() bool {
	if anyNaN(d.model.gq, d.model.pq) {
		return true
	}
	for i := 0; i < d.model.hq.SymmetricDim(); i++ {
		for j := i; j < d.model.hq.SymmetricDim(); j++ {
			if isNaNOrInf(d.model.hq.At(i, j)) {
				return true
			}
		}
	}
	for i := 0; i < d.interp.n(); i++ {
		if anyNaN(d.rep.BRow(i)) {
			return true
		}
	}
	return false
}

// mainLoop runs the driver to completion and returns the terminal exit
// code. It bounds the total number of iterations at 2*maxfun as a
// defensive overflow guard.
func (d *iterDriver) mainLoop() ExitCode {
	s := d.interp
	st := d.state

	st.kopt = s.argminFval()
	st.fopt = s.fval[st.kopt]
	d.bestX = s.point(st.kopt)
	d.bestF = st.fopt

	maxIter := 2 * st.maxfun
	if maxIter < 1 {
		maxIter = 1
	}

	for iter := 0; iter < maxIter; iter++ {
		if d.anyModelNaN() {
			return d.finish(NaNModel)
		}

		xopt := s.col(st.kopt)
		gopt := d.model.gopt(xopt, s.xpt)
		hessMul := func(v []float64) []float64 { return d.model.hessMul(v, s.xpt) }

		step, crvmin := d.tr.Solve(gopt, hessMul, st.delta, 1e-2)
		dnorm := math.Min(st.delta, dnrm2(step))
		qred := d.model.reduction(step, gopt, s.xpt)
		shortd := dnorm < 0.5*st.rho

		switch {
		case qred <= 0 && !shortd:
			return d.finish(TrustRegionStepFailed)
		case shortd:
			st.delta *= 0.1
			st.snapRho()
			if code := d.afterTRStep(shortd, qred, -1, 0, crvmin, dnorm); code != noExit {
				if code == SmallTrustRegionRadius && d.options.ReplicateLegacyExtraStep {
					d.extraNewtonStep(step)
				}
				return d.finish(code)
			}
			continue
		}

		xtrial := append([]float64(nil), xopt...)
		daxpy(1, step, xtrial)
		xabs := make([]float64, s.n())
		for i := range xabs {
			xabs[i] = s.xbase[i] + xtrial[i]
		}

		f, code := d.evaluate(xabs)
		if code != noExit && code != FTargetReached && code != MaxFunReached {
			return d.finish(code)
		}

		moderr := f - st.fopt + qred
		st.dnormsav.push(dnorm)
		st.moderrsav.push(moderr)

		var ratio float64
		switch {
		case qred > 0:
			ratio = (st.fopt - f) / qred
		default:
			ratio = 0
		}

		xosav := append([]float64(nil), xopt...)
		xdrop, ximproved, knewTR := d.insertPoint(step, f)

		d.updateDelta(ratio, dnorm)

		if xdrop != nil {
			d.model.update(s.xpt, d.rep, knewTR, xdrop, xosav, step, moderr, ximproved)
			d.model.tryAlternativeModel(st, s.xpt, d.rep, s.fval, s.col(st.kopt), ratio)
		}

		if ximproved {
			d.bestX = s.point(st.kopt)
			d.bestF = st.fopt
		}

		if code == FTargetReached || code == MaxFunReached {
			return d.finish(code)
		}

		if stop := d.afterTRStep(shortd, qred, knewTR, ratio, crvmin, dnorm); stop != noExit {
			return d.finish(stop)
		}
	}

	return d.finish(MaxIterReached)
}

// insertPoint chooses which interpolation point to replace, updates the
// H-representation for that replacement, and folds the new point into
// the interpolation set. Returns the replaced column's old displacement
// (nil if no point was inserted), whether the new sample improved fopt,
// and the chosen index, or -1 if no point was inserted (either because
// the step was discarded or because the H-update failed).
func (d *iterDriver) insertPoint(step []float64, f float64) (xdrop []float64, ximproved bool, knew int) {
	s := d.interp
	st := d.state
	ximproved = f < st.fopt

	knew = d.setdropTR(step, ximproved)
	if knew < 0 {
		return nil, ximproved, -1
	}

	lambda, beta, err := d.hup.Update(d.rep, s.xpt, knew, st.kopt, step)
	_ = lambda
	_ = beta
	if err != nil {
		return nil, ximproved, -1
	}

	xdrop = s.col(knew)
	newCol := append([]float64(nil), s.col(st.kopt)...)
	daxpy(1, step, newCol)
	s.xpt.SetCol(knew, newCol)
	s.fval[knew] = f

	if ximproved {
		st.kopt = knew
		st.fopt = f
	}
	return xdrop, ximproved, knew
}

// setdropTR picks the point to replace, maximizing
// |beta*h_kk + lambda_k^2| * max(1, (distsq/rho^2)^3).
// Returns -1 ("discard") only when the new point does not improve fopt.
func (d *iterDriver) setdropTR(step []float64, ximproved bool) int {
	s := d.interp
	st := d.state
	xopt := s.col(st.kopt)

	xtrial := append([]float64(nil), xopt...)
	daxpy(1, step, xtrial)
	lambda, beta := d.rep.Probe(s.xpt, xtrial)

	best := -1
	bestScore := -1.0
	for k := 0; k < s.npt(); k++ {
		if !ximproved && k == st.kopt {
			continue
		}
		hkk := d.rep.OmegaDiag(k)
		score := math.Abs(beta*hkk + lambda[k]*lambda[k])
		dist := s.distSq(k, xopt)
		weight := math.Pow(math.Max(1, dist/(st.rho*st.rho)), 3)
		score *= weight
		if score > bestScore {
			bestScore = score
			best = k
		}
	}
	if !ximproved && bestScore <= 0 {
		return -1
	}
	return best
}

// updateDelta applies the trust-region radius update rule.
func (d *iterDriver) updateDelta(ratio, dnorm float64) {
	st := d.state
	switch {
	case ratio <= st.eta1:
		st.delta = st.gamma1 * math.Min(st.delta, dnorm)
	case ratio <= st.eta2:
		st.delta = math.Max(st.gamma1*st.delta, dnorm)
	default:
		st.delta = math.Max(st.gamma1*st.delta, st.gamma2*dnorm)
	}
	st.snapRho()
}

// afterTRStep computes the iteration indicators, runs geometry
// improvement or a rho reduction, and re-centers the base if xopt has
// drifted too far from xbase. Returns a terminal ExitCode, or noExit to
// continue iterating.
func (d *iterDriver) afterTRStep(shortd bool, qred float64, knewTR int, ratio, crvmin, dnorm float64) ExitCode {
	s := d.interp
	st := d.state

	if crvmin < 0 {
		crvmin = 0
	}

	accurateMod := st.moderrsav.all(func(v float64) bool {
		return math.Abs(v) <= 0.125*crvmin*st.rho*st.rho
	}) && st.dnormsav.all(func(v float64) bool { return v <= st.rho })

	xopt := s.col(st.kopt)
	_, maxDistSq := s.maxDistSq(xopt)
	closeItpset := maxDistSq <= 4*st.delta*st.delta

	adequateGeo := (shortd && accurateMod) || closeItpset
	smallTrrad := math.Max(st.delta, dnorm) <= st.rho

	badTRStepGeo := shortd || qred <= 0 || ratio <= st.eta1 || knewTR < 0
	badTRStepRho := shortd || qred <= 0 || ratio <= 0 || knewTR < 0

	improveGeo := badTRStepGeo && !adequateGeo
	reduceRho := badTRStepRho && adequateGeo && smallTrrad

	if improveGeo {
		if code := d.geometryImprove(); code != noExit {
			return code
		}
	} else if reduceRho {
		if st.rho <= st.rhoend {
			return SmallTrustRegionRadius
		}
		d.reduceRho()
	}

	var xoptsq float64
	xopt = s.col(st.kopt)
	for _, v := range xopt {
		xoptsq += v * v
	}
	if xoptsq >= 1e3*st.delta*st.delta {
		rep, err := baseShift(s, d.model, st.kopt)
		if err != nil {
			return NaNModel
		}
		d.rep = rep
	}

	return noExit
}

// geometryImprove replaces the interpolation point farthest from xopt
// with a poisedness-improving one, at radius delbar.
func (d *iterDriver) geometryImprove() ExitCode {
	if d.anyModelNaN() {
		return NaNModel
	}

	s := d.interp
	st := d.state
	xopt := s.col(st.kopt)

	knewGeo, distsq := s.maxDistSq(xopt)
	if knewGeo == st.kopt {
		return noExit
	}
	delbar := math.Max(math.Min(0.1*math.Sqrt(distsq), 0.5*st.delta), st.rho)

	gopt := d.model.gopt(xopt, s.xpt)
	step := d.geo.Step(d.rep, s.xpt, xopt, knewGeo, delbar)
	qred := d.model.reduction(step, gopt, s.xpt)

	xabs := make([]float64, len(xopt))
	for i := range xabs {
		xabs[i] = s.xbase[i] + xopt[i] + step[i]
	}
	f, code := d.evaluate(xabs)
	if code != noExit && code != FTargetReached && code != MaxFunReached {
		return code
	}

	dnorm := math.Min(delbar, dnrm2(step))
	st.dnormsav.push(dnorm)

	xosav := append([]float64(nil), xopt...)
	xdrop := s.col(knewGeo)

	lambda, beta, err := d.hup.Update(d.rep, s.xpt, knewGeo, st.kopt, step)
	_ = lambda
	_ = beta
	if err != nil {
		return noExit
	}

	newCol := append([]float64(nil), xopt...)
	daxpy(1, step, newCol)
	s.xpt.SetCol(knewGeo, newCol)
	moderr := f - st.fopt + qred
	s.fval[knewGeo] = f

	ximproved := f < st.fopt
	if ximproved {
		st.kopt = knewGeo
		st.fopt = f
		d.bestX = s.point(st.kopt)
		d.bestF = st.fopt
	}

	d.model.update(s.xpt, d.rep, knewGeo, xdrop, xosav, step, moderr, ximproved)

	if code == FTargetReached || code == MaxFunReached {
		return code
	}
	return noExit
}

// reduceRho shrinks rho and the trust-region radius and clears the
// iteration history that tracked accuracy at the old rho.
func (d *iterDriver) reduceRho() {
	st := d.state
	ratio := st.rho / st.rhoend

	var rhoNext float64
	switch {
	case ratio <= 16:
		rhoNext = st.rhoend
	case ratio <= 250:
		rhoNext = math.Sqrt(ratio) * st.rhoend
	default:
		rhoNext = 0.1 * st.rho
	}

	st.delta = math.Max(0.5*st.rho, rhoNext)
	st.rho = rhoNext
	st.dnormsav.clear()
	st.moderrsav.clear()

	if d.logger != nil && d.logger.enable(LogRho) {
		d.logger.log("newuoa: rho=%.10e delta=%.10e nf=%d\n", st.rho, st.delta, st.nf)
	}
}

// extraNewtonStep re-evaluates the objective at xopt+step one more time
// before returning, matching the legacy driver's behavior of always
// spending one final evaluation on the last computed trust-region step
// even when that step was too short to have been evaluated already. It
// updates bestX/bestF if the extra sample improves on fopt, but does not
// fold the point into the interpolation set — the run is ending anyway.
func (d *iterDriver) extraNewtonStep(step []float64) {
	s := d.interp
	st := d.state
	xopt := s.col(st.kopt)
	xabs := make([]float64, len(xopt))
	for i := range xabs {
		xabs[i] = s.xbase[i] + xopt[i] + step[i]
	}
	f, _ := d.evaluate(xabs)
	if !isNaNOrInf(f) && f < d.bestF {
		d.bestF = f
		d.bestX = xabs
	}
}

// finish is the loop's single return point: bestX/bestF already track the
// best point seen (set at loop entry from the initializer's result, and
// refreshed on every ximproved sample), so there is nothing left to do
// here beyond passing the exit code through.
func (d *iterDriver) finish(code ExitCode) ExitCode {
	return code
}
