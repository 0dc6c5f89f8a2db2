// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observer

import "math"

// LuenbergerConfig parametrizes the load-torque/speed observer.
type LuenbergerConfig struct {
	SampleHz     float64
	PolePairs    int
	Inertia      float64
	MaxTorque    float64
	Wc, Damp     float64
}

// Luenberger is a reduced-order observer that estimates load torque,
// mechanical speed, and electrical angle from a measured electrical
// angle and the applied electrical torque, mirroring obs/luenberger.h.
type Luenberger struct {
	cfg LuenbergerConfig

	g1, kp, ki float64

	kiOut     float64
	estOmega  float64

	// EstTheta, EstOmega, EstLoadTorque are the observer's latest
	// estimates, mirroring lbg_out_t.
	EstTheta, EstOmega, EstLoadTorque float64
}

// NewLuenberger constructs a Luenberger observer from cfg, mirroring
// lbg_init.
func NewLuenberger(cfg LuenbergerConfig) *Luenberger {
	l := &Luenberger{cfg: cfg}
	l.g1 = 2 * cfg.Wc
	l.kp = 2 * cfg.Wc * cfg.Wc * cfg.Inertia * cfg.Damp
	l.ki = cfg.Wc * cfg.Wc * cfg.Wc * cfg.Inertia
	return l
}

// Exec runs one observer step given the measured electrical angle and
// applied electrical torque, mirroring lbg_exec_in.
func (l *Luenberger) Exec(theta, elecTorque float64) {
	thetaErr := warpPI(theta - l.EstTheta)
	mechThetaErr := thetaErr / float64(l.cfg.PolePairs)

	l.kiOut += l.ki * mechThetaErr / l.cfg.SampleHz
	l.kiOut = math.Max(-l.cfg.MaxTorque, math.Min(l.kiOut, l.cfg.MaxTorque))
	l.EstLoadTorque = -l.kiOut

	sumTorque := elecTorque + l.kp*mechThetaErr + l.kiOut

	l.estOmega += sumTorque / l.cfg.Inertia / l.cfg.SampleHz
	l.EstOmega = l.g1*mechThetaErr + l.estOmega

	l.EstTheta += l.EstOmega * float64(l.cfg.PolePairs) / l.cfg.SampleHz
	l.EstTheta = warpTau(l.EstTheta)
}
