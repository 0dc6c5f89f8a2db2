// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package observer implements the sensorless rotor-angle estimators the
// foc state machine dispatches through its Observer selector: a PLL-based
// tracking filter (original_source/filter/pll.h, used standalone for
// sensor-angle smoothing and embedded inside HFI), a high-frequency
// injection observer (original_source/obs/hfi.h), and a Luenberger
// load-torque/speed observer (original_source/obs/luenberger.h). SMO
// (original_source/obs/smo.h) has no body in original_source — the header
// declares the type and is never given an implementation — so it is not
// ported; foc.Observer carries ObsSMO as a reserved, unimplemented value
// exactly as foc.Mode carries ModeAdrc.
package observer

import "math"

func warpPI(rad float64) float64 {
	const tau = 2 * math.Pi
	if math.Abs(rad) > tau {
		rad = math.Mod(rad, tau)
	}
	if rad > math.Pi {
		rad -= tau
	} else if rad < -math.Pi {
		rad += tau
	}
	return rad
}

func warpTau(rad float64) float64 {
	const tau = 2 * math.Pi
	if math.Abs(rad) > tau {
		rad = math.Mod(rad, tau)
	}
	if rad < 0 {
		rad += tau
	}
	return rad
}

// PLLConfig parametrizes a PLL tracking filter.
type PLLConfig struct {
	SampleHz   float64
	Wc, Damp   float64
	LPFCutoffHz float64
}

// PLL is a phase-locked loop: a PD phase detector feeding a PI loop
// filter whose output integrates back into the tracked angle (the VCO),
// mirroring filter/pll.h's pll_filter_t.
type PLL struct {
	cfg PLLConfig
	kp, ki float64

	kiOut      float64
	prevTheta  float64
	theta      float64
	omega      float64
	lpfOmega   float64
	ffdLPFA    float64
}

// NewPLL constructs a PLL from cfg, mirroring pll_init.
func NewPLL(cfg PLLConfig) *PLL {
	p := &PLL{cfg: cfg}
	p.kp = 2 * cfg.Wc * cfg.Damp
	p.ki = cfg.Wc * cfg.Wc
	rc := 1.0 / (2 * math.Pi * cfg.LPFCutoffHz)
	p.ffdLPFA = 1.0 / (1.0 + rc*cfg.SampleHz)
	return p
}

// Theta returns the PLL's currently tracked angle (radians, [0, tau)).
func (p *PLL) Theta() float64 { return p.theta }

// Omega returns the PLL's raw (un-filtered) angular-rate estimate.
func (p *PLL) Omega() float64 { return p.omega }

func (p *PLL) exec(thetaErr float64) {
	p.kiOut += p.ki * thetaErr / p.cfg.SampleHz
	p.omega = p.kp*thetaErr + p.kiOut
	p.lpfOmega = p.ffdLPFA*p.omega + (1-p.ffdLPFA)*p.lpfOmega

	p.theta += p.omega / p.cfg.SampleHz
	p.theta = warpTau(p.theta)
}

// ExecAB tracks an alpha-beta vector's angle, mirroring
// pll_exec_ab_in — used when the PLL observes a stationary-frame signal
// directly (e.g. back-EMF) rather than an already-estimated theta.
func (p *PLL) ExecAB(alpha, beta float64) (theta, omega float64) {
	sin, cos := math.Sincos(p.theta)
	thetaErr := beta*cos - alpha*sin
	p.exec(thetaErr)
	return p.theta, p.lpfOmega
}

// ExecThetaErr tracks a phase-error signal directly, mirroring the PD+PI
// core HFI drives with its injected-current error, bypassing the
// PD-phase-detector stage pll_exec_theta_in otherwise performs.
func (p *PLL) ExecThetaErr(thetaErr float64) (theta, omega float64) {
	p.exec(thetaErr)
	return p.theta, p.lpfOmega
}

// ExecTheta tracks an already-computed angle signal (e.g. a Hall/encoder
// sensor reading), mirroring pll_exec_theta_in. pll_exec_theta_in also
// computes a ffd_omega/lpf_ffd_omega feedforward term; that value is
// never read anywhere in original_source, so it is not ported here.
func (p *PLL) ExecTheta(theta float64) (trackedTheta, omega float64) {
	thetaErr := warpPI(theta - p.theta)
	p.exec(thetaErr)
	return p.theta, p.lpfOmega
}

// Reset clears the loop's tracked angle and filter history, so the next
// Exec* call starts as if from a freshly constructed PLL. Coefficients
// derived from cfg are untouched.
func (p *PLL) Reset() {
	p.kiOut, p.prevTheta, p.theta, p.omega, p.lpfOmega = 0, 0, 0, 0, 0
}
