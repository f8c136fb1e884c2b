// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

// ringBuffer3 holds the three most recent samples of a quantity at the
// current ρ (the dnorm and moderr histories the driver tests for
// stagnation before shrinking ρ).
type ringBuffer3 struct {
	vals [3]float64
	n    int
}

func newRingBuffer3() ringBuffer3 {
	return ringBuffer3{vals: [3]float64{inf, inf, inf}}
}

func (r *ringBuffer3) push(v float64) {
	r.vals[0], r.vals[1], r.vals[2] = r.vals[1], r.vals[2], v
	if r.n < 3 {
		r.n++
	}
}

func (r *ringBuffer3) clear() { *r = newRingBuffer3() }

// all reports whether every recorded slot satisfies pred; empty slots
// (still the +Inf sentinel) always fail pred for a <= comparison, which
// matches the intended semantics of the accuracy check before the ring
// buffers fill up for the first time at a new ρ.
func (r *ringBuffer3) all(pred func(float64) bool) bool {
	for _, v := range r.vals {
		if !pred(v) {
			return false
		}
	}
	return true
}

const inf = 1e300 // a finite "infinity" so arithmetic on it never yields NaN

// runState is the scalar state of one optimization run, owned
// exclusively by the driver for the run's duration.
type runState struct {
	n, npt int

	rhobeg, rhoend float64
	eta1, eta2     float64
	gamma1, gamma2 float64
	ftarget        float64
	maxfun         int

	delta, rho float64
	nf         int

	kopt int
	fopt float64

	itest int

	dnormsav, moderrsav ringBuffer3
}

func newRunState(n, npt int, rhobeg, rhoend, eta1, eta2, gamma1, gamma2, ftarget float64, maxfun int) *runState {
	return &runState{
		n: n, npt: npt,
		rhobeg: rhobeg, rhoend: rhoend,
		eta1: eta1, eta2: eta2,
		gamma1: gamma1, gamma2: gamma2,
		ftarget: ftarget, maxfun: maxfun,
		delta: rhobeg, rho: rhobeg,
		dnormsav:  newRingBuffer3(),
		moderrsav: newRingBuffer3(),
	}
}

// snapRho pulls delta back up to rho whenever it has drifted to within
// 1.5 rho of it.
func (s *runState) snapRho() {
	if s.delta <= 1.5*s.rho {
		s.delta = s.rho
	}
}
