// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

import "math"

// ExitCode is the stable, caller-facing reason an optimization run stopped.
// The numeric values match the legacy NEWUOA return codes so callers
// depending on them can translate directly.
type ExitCode int

const (
	// SmallTrustRegionRadius is normal convergence: ρ reached rhoend.
	SmallTrustRegionRadius ExitCode = 0
	// FTargetReached means f fell at or below the caller's target.
	FTargetReached ExitCode = 1
	// TrustRegionStepFailed means a non-short trust-region step failed to
	// reduce the model (qred <= 0).
	TrustRegionStepFailed ExitCode = 2
	// MaxFunReached means the evaluation budget was exhausted.
	MaxFunReached ExitCode = 3
	// MaxIterReached is the defensive 2*maxfun iteration overflow guard.
	MaxIterReached ExitCode = 20
	// NaNInput means x contained a NaN or infinite coordinate before a call
	// to the objective.
	NaNInput ExitCode = -1
	// NaNInfF means the objective returned NaN or +Inf.
	NaNInfF ExitCode = -2
	// NaNModel means NaN was detected inside the model or H-representation.
	NaNModel ExitCode = -3
)

func (c ExitCode) String() string {
	switch c {
	case SmallTrustRegionRadius:
		return "SMALL_TR_RADIUS"
	case FTargetReached:
		return "FTARGET_REACHED"
	case TrustRegionStepFailed:
		return "TR_STEP_FAILED"
	case MaxFunReached:
		return "MAXFUN_REACHED"
	case MaxIterReached:
		return "MAXTR_REACHED"
	case NaNInput:
		return "NAN_INPUT"
	case NaNInfF:
		return "NAN_INF_F"
	case NaNModel:
		return "NAN_MODEL"
	default:
		return "UNKNOWN"
	}
}

// noExit is the internal sentinel meaning "keep iterating".
const noExit ExitCode = 127

func isNaNOrInf(x float64) bool {
	return math.IsNaN(x) || math.IsInf(x, 0)
}
