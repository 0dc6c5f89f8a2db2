// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package foc

// adcCali accumulates ADC_CALI_CNT_MAX samples of raw phase-current
// readings with the drive energized but zero reference applied, then
// averages them into the current-sense zero offset. Mirrors
// foc_adc_cali; the original's accumulate-then-shift-right trick only
// works because ADCCaliCountMax is a power-of-two sample count, so this
// port divides directly instead of bit-shifting a bitfield that doesn't
// exist in Go's plain int32.
func (f *FOC) adcCali() bool {
	f.peripheral.SetDRV(true)
	raw := f.peripheral.GetADC()

	f.adcOffset.IU += raw.IU
	f.adcOffset.IV += raw.IV
	f.adcOffset.IW += raw.IW

	f.adcCaliCount++
	if f.adcCaliCount < f.cfg.Periph.ADCCaliCountMax {
		return false
	}

	n := int32(f.cfg.Periph.ADCCaliCountMax)
	f.adcOffset.IU /= n
	f.adcOffset.IV /= n
	f.adcOffset.IW /= n
	f.peripheral.SetDRV(false)
	return true
}

// caliTick runs the Init/CW/CCW/Finish calibration sub-state machine:
// zero the current-sense offset, then force the rotor through one full
// mechanical revolution clockwise and counter-clockwise, averaging the
// sensor's reported electrical angle at each pole-pair boundary to
// derive the sensor-to-electrical-angle offset. Mirrors foc_cali.
func (f *FOC) caliTick() {
	switch f.cali {
	case CaliInit:
		if !f.adcCali() {
			return
		}
		f.refIDQ.D = f.cfg.RefThetaCaliCurrent
		f.rotor.forceOmega = f.cfg.RefThetaCaliOmega
		f.mode = ModeCurrent
		f.theta = ThetaForce
		f.cali = CaliCW

	case CaliCW:
		f.enable()
		if f.rotor.forceTheta >= tau {
			f.rotor.forceTheta = tau
			f.thetaCaliHoldCount++
			if f.thetaCaliHoldCount >= f.cfg.Periph.ThetaCaliCountMax {
				f.thetaOffsetSum += f.rotor.sensorTheta
				f.thetaCaliHoldCount = 0
				f.thetaCaliCount++
				if f.thetaCaliCount >= uint32(f.cfg.Motor.PolePairs) {
					f.cali = CaliCCW
				} else {
					f.rotor.forceTheta = 0
				}
			}
		} else if f.thetaCaliHoldCount == 0 {
			f.rotor.forceTheta += f.rotor.forceOmega / f.cfg.ExecFreqHz
		}

	case CaliCCW:
		f.enable()
		if f.rotor.forceTheta <= 0 {
			f.rotor.forceTheta = 0
			f.thetaCaliHoldCount++
			if f.thetaCaliHoldCount >= f.cfg.Periph.ThetaCaliCountMax {
				f.thetaOffsetSum += f.rotor.sensorTheta
				f.thetaCaliHoldCount = 0
				f.thetaCaliCount++
				if f.thetaCaliCount >= uint32(f.cfg.Motor.PolePairs)*2 {
					f.cali = CaliFinish
				} else {
					f.rotor.forceTheta = tau
				}
			}
		} else if f.thetaCaliHoldCount == 0 {
			f.rotor.forceTheta -= f.rotor.forceOmega / f.cfg.ExecFreqHz
		}

	case CaliFinish:
		f.disable()
		f.thetaOffsetElec = f.thetaOffsetSum / float64(f.thetaCaliCount)
		f.adcCaliCount, f.thetaCaliCount = 0, 0
		f.refIDQ.D = 0
		f.rotor.forceTheta = 0
		f.rotor.forceOmega = 0
		f.mode = ModeNull
		f.theta = ThetaNull
		f.state = StateReady
	}
}
