// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package foc

import "code.hybscloud.com/motorrt/foc/transform"

// obsIAB dispatches the alpha-beta-frame sensorless observer (SMO, in
// the original; unimplemented here — see ObsSMO), mirroring
// foc_obs_i_ab.
func (f *FOC) obsIAB() {
	switch f.obs {
	case ObsSMO:
		// reserved: original_source/obs/smo.h has no implementation.
	default:
	}
}

// obsIDQ dispatches the d-q-frame sensorless observer (HFI), mirroring
// foc_obs_i_dq.
func (f *FOC) obsIDQ() {
	switch f.obs {
	case ObsHFI:
		f.hfi.ExecIDQ(f.iDQ.D, f.iDQ.Q)
		f.rotor.obsTheta = f.hfi.Theta
		f.rotor.obsOmega = f.hfi.Omega
		f.refIDQ.D = f.hfi.ID
	default:
	}
}

// obsVDQ lets the d-q-frame observer inject its own voltage component
// (HFI's carrier), mirroring foc_obs_v_dq.
func (f *FOC) obsVDQ() {
	switch f.obs {
	case ObsHFI:
		f.vDQ.D += f.hfi.Vd
	default:
	}
}

// selectTheta picks which rotor-angle estimate in.rotor.theta/omega
// track, mirroring foc_select_theta.
func (f *FOC) selectTheta() {
	switch f.theta {
	case ThetaForce:
		f.rotor.theta = f.rotor.forceTheta
		f.rotor.omega = f.rotor.forceOmega
	case ThetaSensor:
		f.rotor.theta = f.rotor.sensorTheta
		f.rotor.omega = f.rotor.sensorOmega
	case ThetaSensorless:
		f.rotor.theta = f.rotor.obsTheta
		f.rotor.omega = f.rotor.obsOmega
	case ThetaSensorFusion:
		// original_source leaves this branch empty: the fusion error is
		// computed (rotor.fusionThetaErr) but not yet consumed by a
		// selector — same gap as the C source.
	default:
	}
}

// svpwm converts the stationary-frame voltage command into a clamped
// per-phase PWM duty cycle, mirroring foc_svpwm.
func (f *FOC) svpwm() {
	f.vUVW = transform.InverseClarke(f.vABSV)

	var vMax, vMin float64
	if f.vUVW.U > f.vUVW.V {
		vMax, vMin = f.vUVW.U, f.vUVW.V
	} else {
		vMax, vMin = f.vUVW.V, f.vUVW.U
	}
	if f.vUVW.W < vMin {
		vMin = f.vUVW.W
	} else if f.vUVW.W > vMax {
		vMax = f.vUVW.W
	}
	vAvg := 0.5 * (vMax + vMin)

	duty := transform.UVW{
		U: f.vUVW.U - vAvg,
		V: f.vUVW.V - vAvg,
		W: f.vUVW.W - vAvg,
	}
	duty.U = clamp(duty.U+0.5, f.cfg.Periph.PWMMin, f.cfg.Periph.PWMMax)
	duty.V = clamp(duty.V+0.5, f.cfg.Periph.PWMMin, f.cfg.Periph.PWMMax)
	duty.W = clamp(duty.W+0.5, f.cfg.Periph.PWMMin, f.cfg.Periph.PWMMax)

	periodCount := float64(f.cfg.Periph.pwmPeriodCount)
	f.pwmDuty = DutyUVW{
		U: uint32(duty.U * periodCount),
		V: uint32(duty.V * periodCount),
		W: uint32(duty.W * periodCount),
	}
}

// ready is the holding state awaiting RequestRun, mirroring foc_ready
// (an empty body in the original — the state exists purely as a valid
// transition target between calibration and enable).
func (f *FOC) ready() {}

// disable zeroes the measured/commanded current state and de-energizes
// the drive, mirroring foc_disable.
func (f *FOC) disable() {
	f.peripheral.SetDRV(false)

	f.iAB = transform.AB{}
	f.iDQ = transform.DQ{}
	f.iUVW = transform.UVW{}

	f.vDQ = transform.DQ{}
	f.vAB = transform.AB{}
	f.vABSV = transform.AB{}
	f.vUVW = transform.UVW{}
	f.pwmDuty = DutyUVW{}

	f.idPID.Reset()
	f.iqPID.Reset()
	f.hfi.Reset()
}
