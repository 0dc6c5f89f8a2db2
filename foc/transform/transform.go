// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package transform implements the Clarke/Park coordinate transforms used
// to move three-phase motor currents and voltages between the stationary
// UVW, stationary alpha-beta, and rotating d-q reference frames.
//
// Grounded on original_source/trans/clarkepark.h; the DIV_SQRT_3_BY_2
// constant is taken verbatim from original_source/util/mathdef.h. These are
// pure functions with no state and no third-party numeric dependency — the
// teacher and the rest of the pack show no DSP library to wire here, so
// this package is plain math/stdlib by necessity, not by default (see
// DESIGN.md).
package transform

import "math"

// divSqrt3By2 is sqrt(3)/2, used by the Clarke transform's beta axis.
const divSqrt3By2 = 0.8660254

// UVW is a three-phase quantity in the stationary UVW frame.
type UVW struct {
	U, V, W float64
}

// AB is a two-axis quantity in the stationary alpha-beta frame.
type AB struct {
	Alpha, Beta float64
}

// DQ is a two-axis quantity in the rotor-synchronous d-q frame.
type DQ struct {
	D, Q float64
}

// Clarke converts a three-phase UVW quantity into the stationary
// alpha-beta frame. mi is the modulation-index scale factor the caller
// applies to the result (1 for an un-scaled transform).
func Clarke(uvw UVW, mi float64) AB {
	return AB{
		Alpha: mi * (uvw.U - 0.5*(uvw.V+uvw.W)),
		Beta:  mi * (uvw.V - uvw.W) * divSqrt3By2,
	}
}

// InverseClarke converts a stationary alpha-beta quantity back into the
// three-phase UVW frame.
func InverseClarke(ab AB) UVW {
	return UVW{
		U: ab.Alpha,
		V: -0.5*ab.Alpha + divSqrt3By2*ab.Beta,
		W: -0.5*ab.Alpha - divSqrt3By2*ab.Beta,
	}
}

// Park rotates a stationary alpha-beta quantity into the rotor-synchronous
// d-q frame at electrical angle theta (radians).
func Park(ab AB, theta float64) DQ {
	sin, cos := math.Sincos(theta)
	return DQ{
		D: cos*ab.Alpha + sin*ab.Beta,
		Q: cos*ab.Beta - sin*ab.Alpha,
	}
}

// InversePark rotates a d-q quantity at electrical angle theta back into
// the stationary alpha-beta frame.
func InversePark(dq DQ, theta float64) AB {
	sin, cos := math.Sincos(theta)
	return AB{
		Alpha: cos*dq.D - sin*dq.Q,
		Beta:  sin*dq.D + cos*dq.Q,
	}
}
