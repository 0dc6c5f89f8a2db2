// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package foc_test

import (
	"math"
	"testing"

	"code.hybscloud.com/motorrt/foc"
	"code.hybscloud.com/motorrt/foc/ctrl"
	"code.hybscloud.com/motorrt/foc/observer"
)

// fakePeripheral is a deterministic stand-in for real ADC/PWM/DRV
// hardware: zero phase currents, a fixed mid-scale (2048-count) bus-voltage
// reading, and a mechanical angle that never moves on its own (this repo's
// test harness has no motor to spin).
type fakePeripheral struct {
	drvEnabled bool
	lastPWM    foc.DutyUVW
	lastPeriod uint32
}

func (p *fakePeripheral) GetADC() foc.ADCRaw       { return foc.ADCRaw{VBus: 2048} }
func (p *fakePeripheral) GetTheta() float64        { return 0 }
func (p *fakePeripheral) SetDRV(enable bool)       { p.drvEnabled = enable }
func (p *fakePeripheral) SetPWM(period uint32, d foc.DutyUVW) {
	p.lastPeriod = period
	p.lastPWM = d
}

func testConfig() foc.Config {
	return foc.Config{
		ExecFreqHz: 1000,
		Motor: foc.MotorConfig{
			PolePairs: 1,
			Ld:        0.001, Lq: 0.001, Rs: 1, Psi: 0.01,
			Inertia: 0.0001, MaxTorque: 1, Wc: 100,
		},
		Periph: foc.PeripheralConfig{
			CurrentRange: 10, VbusRange: 100, ADCFullCount: 4096,
			TimerFreqHz: 1_000_000, PWMFreqHz: 20_000,
			PWMMin: 0.05, PWMMax: 0.95, ModulationIndex: 1,
			ADCCaliCountMax: 4, ThetaCaliCountMax: 3,
		},
		CurDiv: 1, VelDiv: 1, PosDiv: 1, PDDiv: 1,
		VelPID: ctrl.Config{Kp: 1, OutMax: 10, IntegralMax: 10},
		PosPID: ctrl.Config{Kp: 1, OutMax: 10, IntegralMax: 10},
		PDPID:  ctrl.Config{Kp: 1, Kd: 0.1},

		RefThetaCaliCurrent: 0.1,
		RefThetaCaliOmega:   50,

		HFI: observer.HFIConfig{
			InjectFreqHz: 500, IDLowPassHz: 50, IQLowPassHz: 50,
			BandPassHz: 500, BandPassQ: 0.707,
			PLL: observer.PLLConfig{Wc: 100, Damp: 0.707, LPFCutoffHz: 50},
		},
		Luenberger: observer.LuenbergerConfig{Wc: 50, Damp: 0.707},
		PLL:        observer.PLLConfig{Wc: 100, Damp: 0.707, LPFCutoffHz: 50},
	}
}

func TestNewRejectsNilPeripheral(t *testing.T) {
	if _, err := foc.New(testConfig(), nil); err == nil {
		t.Fatal("expected error for nil peripheral")
	}
}

func TestCalibrationReachesReadyState(t *testing.T) {
	p := &fakePeripheral{}
	f, err := foc.New(testConfig(), p)
	if err != nil {
		t.Fatal(err)
	}

	const maxTicks = 5000
	i := 0
	for ; i < maxTicks; i++ {
		f.Tick()
		if f.State() == foc.StateReady {
			break
		}
	}
	if f.State() != foc.StateReady {
		t.Fatalf("state after %d ticks = %v, want Ready", maxTicks, f.State())
	}
	if !p.drvEnabled == false {
		// disable() at FOC_CALI_FINISH de-energizes the drive; no
		// assertion needed beyond "did not panic", drvEnabled reflects
		// whichever SetDRV call happened last.
		_ = p.drvEnabled
	}
}

func TestEnableProducesFiniteDutyCycle(t *testing.T) {
	p := &fakePeripheral{}
	f, err := foc.New(testConfig(), p)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5000 && f.State() != foc.StateReady; i++ {
		f.Tick()
	}
	if f.State() != foc.StateReady {
		t.Fatal("calibration did not complete")
	}

	f.RequestRun()
	f.SetMode(foc.ModeCurrent)
	f.SetReference(foc.Reference{Current: 0.1})

	for i := 0; i < 10; i++ {
		f.Tick()
	}

	if f.State() != foc.StateEnable {
		t.Fatalf("state = %v, want Enable", f.State())
	}
	if p.lastPeriod == 0 {
		t.Fatal("SetPWM was never called with a nonzero period count")
	}
	for name, v := range map[string]float64{
		"U": float64(p.lastPWM.U), "V": float64(p.lastPWM.V), "W": float64(p.lastPWM.W),
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("duty %s = %v, want finite", name, v)
		}
	}

	fb := f.GetFeedback()
	if math.IsNaN(fb.Velocity) || math.IsNaN(fb.Current) {
		t.Fatalf("feedback = %+v, want finite", fb)
	}
}

func TestRequestStopReturnsToDisable(t *testing.T) {
	p := &fakePeripheral{}
	f, err := foc.New(testConfig(), p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5000 && f.State() != foc.StateReady; i++ {
		f.Tick()
	}
	f.RequestRun()
	if f.State() != foc.StateEnable {
		t.Fatalf("state after RequestRun = %v, want Enable", f.State())
	}
	f.RequestStop()
	if f.State() != foc.StateDisable {
		t.Fatalf("state after RequestStop = %v, want Disable", f.State())
	}
}
