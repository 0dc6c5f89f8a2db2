// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observer_test

import (
	"math"
	"testing"

	"code.hybscloud.com/motorrt/foc/observer"
)

func TestPLLExecThetaTracksConstantRamp(t *testing.T) {
	const sampleHz = 1000.0
	const trueOmega = 20.0 // rad/s
	p := observer.NewPLL(observer.PLLConfig{SampleHz: sampleHz, Wc: 200, Damp: 0.707, LPFCutoffHz: 100})

	theta := 0.0
	var tracked, omega float64
	for i := 0; i < 3000; i++ {
		theta += trueOmega / sampleHz
		tracked, omega = p.ExecTheta(theta)
	}

	wantTheta := math.Mod(theta, 2*math.Pi)
	if d := math.Abs(tracked - wantTheta); d > 0.05 && d < 2*math.Pi-0.05 {
		t.Fatalf("tracked theta = %v, want close to %v", tracked, wantTheta)
	}
	if math.Abs(omega-trueOmega) > 1.0 {
		t.Fatalf("tracked omega = %v, want close to %v", omega, trueOmega)
	}
}

func TestPLLExecABTracksRotatingVector(t *testing.T) {
	const sampleHz = 2000.0
	const trueOmega = 50.0
	p := observer.NewPLL(observer.PLLConfig{SampleHz: sampleHz, Wc: 300, Damp: 0.707, LPFCutoffHz: 150})

	theta := 0.0
	var tracked float64
	for i := 0; i < 4000; i++ {
		theta += trueOmega / sampleHz
		sin, cos := math.Sincos(theta)
		tracked, _ = p.ExecAB(cos, sin)
	}

	wantTheta := math.Mod(theta, 2*math.Pi)
	d := math.Abs(tracked - wantTheta)
	if d > 0.05 && d < 2*math.Pi-0.05 {
		t.Fatalf("tracked theta = %v, want close to %v", tracked, wantTheta)
	}
}

func TestLuenbergerTracksConstantSpeedRamp(t *testing.T) {
	const sampleHz = 2000.0
	const polePairs = 2
	const trueMechOmega = 10.0 // rad/s mechanical

	l := observer.NewLuenberger(observer.LuenbergerConfig{
		SampleHz: sampleHz, PolePairs: polePairs,
		Inertia: 0.001, MaxTorque: 5, Wc: 80, Damp: 0.707,
	})

	theta := 0.0
	for i := 0; i < 6000; i++ {
		theta += trueMechOmega * polePairs / sampleHz
		theta = math.Mod(theta, 2*math.Pi)
		l.Exec(theta, 0)
	}

	// EstOmega is the mechanical speed; only EstTheta is electrical.
	wantOmega := trueMechOmega
	if math.Abs(l.EstOmega-wantOmega) > 1.0 {
		t.Fatalf("EstOmega = %v, want close to %v", l.EstOmega, wantOmega)
	}
}

func TestHFIProducesFiniteOutput(t *testing.T) {
	h := observer.NewHFI(observer.HFIConfig{
		SampleHz: 10000, InjectFreqHz: 500, InjectVd: 2,
		PolarIDCurrent: 1, IDLowPassHz: 50, IQLowPassHz: 50,
		BandPassHz: 500, BandPassQ: 0.707,
		PLL: observer.PLLConfig{SampleHz: 10000, Wc: 100, Damp: 0.707, LPFCutoffHz: 50},
	})

	for i := 0; i < 20000; i++ {
		// Simulate a carrier response proportional to the injected Vd,
		// just enough signal for the band-pass/demodulate chain to have
		// something nonzero to chew on.
		id := 0.01 * h.Vd
		iq := 0.0
		h.ExecIDQ(id, iq)

		if math.IsNaN(h.Theta) || math.IsInf(h.Theta, 0) {
			t.Fatalf("Theta = %v at step %d, want finite", h.Theta, i)
		}
		if math.IsNaN(h.Vd) || math.IsInf(h.Vd, 0) {
			t.Fatalf("Vd = %v at step %d, want finite", h.Vd, i)
		}
	}
}
