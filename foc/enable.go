// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package foc

import (
	"code.hybscloud.com/motorrt/foc/ctrl"
	"code.hybscloud.com/motorrt/foc/transform"
)

// modeControl runs the active Mode's control loop, producing
// refIDQ.Q (and, for ModePosition, cascading through velocity),
// mirroring the mode switch inside foc_enable and focctl.h's
// foc_cur_ctl/foc_vel_ctl/foc_pos_ctl/foc_pd_ctl.
func (f *FOC) modeControl() {
	switch f.mode {
	case ModeCurrent:
		f.refIDQ.Q = f.refPVCT.cur
	case ModePD:
		pdCfg := f.pdPID.Config()
		f.refIDQ.Q = pdCfg.Kp*(f.refPVCT.pos-f.fdbPVCT.pos) +
			pdCfg.Kd*(f.refPVCT.vel-f.fdbPVCT.vel) + f.refPVCT.tor
	case ModeVelocity:
		f.velControl()
	case ModePosition:
		f.refPVCT.vel = f.posPID.Exec(f.refPVCT.pos, f.fdbPVCT.pos, f.refPVCT.ffdVel)
		f.velControl()
	case ModeAdrc:
		// reserved: original_source/ctl/adrc.h ships no working body.
	default:
	}
}

func (f *FOC) velControl() {
	f.refIDQ.Q = f.velPID.Exec(f.refPVCT.vel, f.fdbPVCT.vel, f.refPVCT.ffdCur)
}

const sqrt3 = 1.7320508

// feedforwardGain scales both current-loop voltage feedforward terms. It
// is an empirical value of undocumented provenance, flagged for review.
const feedforwardGain = 0.7

func withLimits(cfg ctrl.Config, limit float64) ctrl.Config {
	cfg.IntegralMax = limit
	cfg.OutMax = limit
	return cfg
}

// enable runs the full Enable-state pipeline: ADC sampling, Clarke
// transform, stationary-frame observer dispatch, theta selection, Park
// transform, d-q-frame observer dispatch, mode control, current loops,
// HFI voltage injection, electrical-angle compensation, inverse Park,
// per-unit scaling, and SVPWM. Mirrors foc_enable.
func (f *FOC) enable() {
	f.peripheral.SetDRV(true)

	raw := f.peripheral.GetADC()
	raw.IU -= f.adcOffset.IU
	raw.IV -= f.adcOffset.IV
	raw.IW -= f.adcOffset.IW

	f.iUVW = transform.UVW{
		U: float64(raw.IU) * f.cfg.Periph.adcToCurrent,
		V: float64(raw.IV) * f.cfg.Periph.adcToCurrent,
		W: float64(raw.IW) * f.cfg.Periph.adcToCurrent,
	}
	f.vBus = float64(raw.VBus) * f.cfg.Periph.adcToVbus

	f.iAB = transform.Clarke(f.iUVW, f.cfg.Periph.ModulationIndex)

	f.obsIAB()
	f.selectTheta()

	f.iDQ = transform.Park(f.iAB, f.rotor.theta)

	f.obsIDQ()

	f.rotor.fusionThetaErr = warpPI(f.rotor.sensorTheta - f.rotor.obsTheta)

	f.modeControl()

	iLimit := f.vBus / sqrt3 * f.cfg.Periph.PWMMax

	f.iqPID.Reconfigure(withLimits(f.iqPID.Config(), iLimit))
	f.ffdVDQ.Q = f.rotor.omega * f.cfg.Motor.Psi * feedforwardGain
	f.vDQ.Q = f.iqPID.Exec(f.refIDQ.Q, f.iDQ.Q, f.ffdVDQ.Q)

	f.idPID.Reconfigure(withLimits(f.idPID.Config(), iLimit))
	f.ffdVDQ.D = -f.rotor.omega * f.cfg.Motor.Lq * f.iDQ.Q * feedforwardGain
	f.vDQ.D = f.idPID.Exec(f.refIDQ.D, f.iDQ.D, f.ffdVDQ.D)

	f.obsVDQ()

	// theta_comp_gain is left at zero: original_source never sets it
	// outside config, so electrical-angle compensation is a no-op here
	// too unless a caller's Config supplies one in a future extension.
	f.vAB = transform.InversePark(f.vDQ, f.rotor.theta+f.rotor.compTheta)

	if f.vBus != 0 {
		f.vABSV = transform.AB{Alpha: f.vAB.Alpha / f.vBus, Beta: f.vAB.Beta / f.vBus}
	}

	f.svpwm()
	f.peripheral.SetPWM(f.cfg.Periph.pwmPeriodCount, f.pwmDuty)
}
