// Copyright ©2026 jschueller. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newuoa

// History records the (x, f) pairs seen during a run, up to a caller-set
// cap. Disabled when Cap is 0 (the default).
type History struct {
	Cap int
	X   [][]float64
	F   []float64
}

func (h *History) record(x []float64, f float64) {
	if h == nil || h.Cap <= 0 || len(h.F) >= h.Cap {
		return
	}
	h.X = append(h.X, append([]float64(nil), x...))
	h.F = append(h.F, f)
}
