// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jschueller/newuoa/internal/initpt"
)

// LogLevel controls the verbosity of a Logger: silent, a summary at
// return, a message at each ρ reduction, or a message per f evaluation.
type LogLevel int

const (
	LogNoop    LogLevel = -1
	LogSummary LogLevel = 0
	LogRho     LogLevel = 1
	LogEval    LogLevel = 2
)

// Logger handles diagnostic output for one run. Pair a file-backed Logger
// built by OpenFileLogger with callers that want output redirected away
// from the default stream.
type Logger struct {
	Level LogLevel
	Out   io.Writer
}

func (l *Logger) enable(level LogLevel) bool {
	return l != nil && l.Level >= level
}

func (l *Logger) log(format string, a ...any) {
	if l == nil || l.Out == nil {
		return
	}
	_, _ = fmt.Fprintf(l.Out, format, a...)
}

// OpenFileLogger opens path for append and returns a Logger writing to it.
func OpenFileLogger(path string, level LogLevel) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{Level: level, Out: f}, nil
}

// Options carries behavior switches for choices the legacy driver left
// underspecified.
type Options struct {
	// ReplicateLegacyExtraStep re-evaluates one extra Newton-Raphson step
	// after SMALL_TR_RADIUS when the final trust-region step was deemed
	// short and never evaluated, matching the legacy driver's bit-for-bit
	// behavior at the cost of one extra f call in some profiles. Off by
	// default; see DESIGN.md.
	ReplicateLegacyExtraStep bool
}

// Problem specifies one NEWUOA minimization.
type Problem struct {
	N    int       // problem dimension
	NPT  int       // interpolation points; 0 selects the canonical 2n+1
	Eval Objective // objective callback

	RhoBeg, RhoEnd float64
	// FTarget is the value at which a run stops early (FTargetReached).
	// Its zero value is the legitimate target f <= 0, not "no target": a
	// caller that wants no target must pass math.Inf(-1) explicitly.
	FTarget float64
	MaxFun  int

	Eta1, Eta2     float64 // default 0.1, 0.7
	Gamma1, Gamma2 float64 // default 0.5, 2

	Options Options
	History *History

	TR  TRSolver
	Geo GeometryStepper
	Hup HUpdater
	Ini Initializer
}

// New validates p and builds an Optimizer. A zero NPT selects 2n+1; Eta1
// and Eta2 fall back to the legacy 0.1 and 0.7 only when both are zero,
// and Gamma1 and Gamma2 to 0.5 and 2 only when both are zero. FTarget has
// no default: its zero value is a legitimate target.
func (p *Problem) New(logger *Logger) (*Optimizer, error) {
	n, npt := p.N, p.NPT
	if npt == 0 {
		npt = 2*n + 1
	}

	eta1, eta2 := p.Eta1, p.Eta2
	if eta1 == 0 && eta2 == 0 {
		eta1, eta2 = 0.1, 0.7
	}
	gamma1, gamma2 := p.Gamma1, p.Gamma2
	if gamma1 == 0 && gamma2 == 0 {
		gamma1, gamma2 = 0.5, 2
	}
	ftarget := p.FTarget

	switch {
	case n <= 0:
		return nil, errors.New("newuoa: problem dimension must be positive")
	case npt < n+2 || npt > (n+1)*(n+2)/2:
		return nil, errors.New("newuoa: npt must satisfy n+2 <= npt <= (n+1)(n+2)/2")
	case p.Eval == nil:
		return nil, errors.New("newuoa: objective is required")
	case p.RhoBeg <= 0 || p.RhoEnd <= 0 || p.RhoEnd > p.RhoBeg:
		return nil, errors.New("newuoa: require 0 < rhoend <= rhobeg")
	case p.MaxFun <= npt:
		return nil, errors.New("newuoa: maxfun must exceed npt")
	case eta1 < 0 || eta1 > eta2 || eta2 >= 1:
		return nil, errors.New("newuoa: require 0 <= eta1 <= eta2 < 1")
	case gamma1 <= 0 || gamma1 >= 1 || gamma2 <= 1:
		return nil, errors.New("newuoa: require 0 < gamma1 < 1 < gamma2")
	}

	if logger == nil {
		logger = &Logger{Level: LogNoop}
	}

	tr := p.TR
	if tr == nil {
		tr = defaultTRSolver{}
	}
	geo := p.Geo
	if geo == nil {
		geo = defaultGeometryStepper{}
	}
	hup := p.Hup
	if hup == nil {
		hup = defaultHUpdater{}
	}
	ini := p.Ini
	if ini == nil {
		ini = defaultInitializer{}
	}

	return &Optimizer{
		n: n, npt: npt,
		eval:    p.Eval,
		rhobeg:  p.RhoBeg, rhoend: p.RhoEnd,
		ftarget: ftarget, maxfun: p.MaxFun,
		eta1: eta1, eta2: eta2,
		gamma1: gamma1, gamma2: gamma2,
		options: p.Options,
		history: p.History,
		logger:  logger,
		tr: tr, geo: geo, hup: hup, ini: ini,
	}, nil
}

// Optimizer is an immutable, validated NEWUOA configuration. The same
// Optimizer may be shared by goroutines running independent Minimize calls
// concurrently: it keeps no mutable state of its own, and Minimize
// allocates all of a run's state fresh from a caller-owned Workspace.
type Optimizer struct {
	n, npt int

	eval Objective

	rhobeg, rhoend float64
	ftarget        float64
	maxfun         int

	eta1, eta2     float64
	gamma1, gamma2 float64

	options Options
	history *History
	logger  *Logger

	tr  TRSolver
	geo GeometryStepper
	hup HUpdater
	ini Initializer
}

// Workspace is a per-goroutine scratch handle. Its existence is deliberate
// even though this package currently keeps no reusable buffers in it: it
// gives callers a type they cannot accidentally share across goroutines,
// following the Optimizer.Init()/Minimize() split.
type Workspace struct {
	n int
}

// Init allocates a Workspace for this Optimizer. Separate workspaces are
// required for concurrent Minimize calls sharing one Optimizer.
func (o *Optimizer) Init() *Workspace {
	return &Workspace{n: o.n}
}

// Result is the outcome of one Minimize call.
type Result struct {
	OK bool // true for SmallTrustRegionRadius or FTargetReached
	X  []float64
	F  float64
	Summary
}

// Summary reports run bookkeeping alongside Result.
type Summary struct {
	Status ExitCode
	NF     int
}

// Minimize runs the optimizer from x0, returning the best point found and
// why the run stopped. w must have been built by o.Init(); passing a
// Workspace from a different Optimizer, or sharing one Workspace across
// concurrent calls, is a programmer error.
func (o *Optimizer) Minimize(x0 []float64, w *Workspace) (*Result, error) {
	if len(x0) != o.n {
		return nil, fmt.Errorf("newuoa: x0 has length %d, want %d", len(x0), o.n)
	}
	if w == nil || w.n != o.n {
		return nil, errors.New("newuoa: workspace must come from this Optimizer's Init")
	}

	st := newRunState(o.n, o.npt, o.rhobeg, o.rhoend, o.eta1, o.eta2, o.gamma1, o.gamma2, o.ftarget, o.maxfun)

	eval := o.eval
	if o.history != nil {
		eval = func(x []float64) (float64, error) {
			f, err := o.eval(x)
			o.history.record(x, f)
			return f, err
		}
	}
	initRes, err := o.ini.Init(o.n, o.npt, x0, o.rhobeg, o.ftarget, eval)
	if err != nil {
		return nil, err
	}
	if initRes.Status != initpt.OK {
		return &Result{
			OK: false,
			X:  initRes.StopX,
			F:  initRes.StopF,
			Summary: Summary{
				Status: initStatusToExitCode(initRes.Status),
				NF:     initRes.NF,
			},
		}, nil
	}

	interp := &interpSet{xbase: initRes.XBase, xpt: initRes.XPT, fval: initRes.FVal}
	model := &quadModel{gq: initRes.GQ, hq: initRes.HQ, pq: initRes.PQ}
	st.nf = initRes.NF

	drv := &iterDriver{
		obj:    o.eval,
		state:  st,
		interp: interp,
		model:  model,
		rep:    initRes.Rep,
		tr:     o.tr, geo: o.geo, hup: o.hup,
		hist:    o.history,
		logger:  o.logger,
		options: o.options,
	}

	code := drv.mainLoop()

	ok := code == SmallTrustRegionRadius || code == FTargetReached
	if o.logger.enable(LogSummary) {
		o.logger.log("newuoa: exit %s, nf=%d, f=%.10e\n", code, st.nf, drv.bestF)
	}

	return &Result{
		OK: ok,
		X:  drv.bestX,
		F:  drv.bestF,
		Summary: Summary{
			Status: code,
			NF:     st.nf,
		},
	}, nil
}

// initStatusToExitCode translates the initializer's status vocabulary
// (which cannot import ExitCode without an import cycle) to the driver's.
func initStatusToExitCode(s initpt.Status) ExitCode {
	switch s {
	case initpt.NaNInput:
		return NaNInput
	case initpt.NaNInfF:
		return NaNInfF
	case initpt.FTargetReached:
		return FTargetReached
	default:
		return SmallTrustRegionRadius
	}
}

const negInf = -1e300
