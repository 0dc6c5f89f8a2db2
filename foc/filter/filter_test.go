// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter_test

import (
	"math"
	"testing"

	"code.hybscloud.com/motorrt/foc/filter"
)

func TestLPFStepResponseConverges(t *testing.T) {
	f := filter.NewLPF(10, 1000)
	var y float64
	for i := 0; i < 2000; i++ {
		y = f.Exec(1.0)
	}
	if math.Abs(y-1.0) > 1e-3 {
		t.Fatalf("y = %v after settling, want close to 1.0", y)
	}
}

func TestLPFZeroInputStaysZero(t *testing.T) {
	f := filter.NewLPF(50, 1000)
	for i := 0; i < 10; i++ {
		if y := f.Exec(0); y != 0 {
			t.Fatalf("Exec(0) = %v, want 0", y)
		}
	}
}

func sineRMS(f interface{ Exec(float64) float64 }, freqHz, sampleHz float64, n int) float64 {
	var sumSq float64
	settle := n / 2
	for i := 0; i < n; i++ {
		x := math.Sin(2 * math.Pi * freqHz * float64(i) / sampleHz)
		y := f.Exec(x)
		if i >= settle {
			sumSq += y * y
		}
	}
	return math.Sqrt(sumSq / float64(n-settle))
}

func TestIIRLowPassAttenuatesAboveCutoff(t *testing.T) {
	const sampleHz = 10000.0
	low := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 200, Q: 0.707, Order: filter.Order2, Type: filter.LowPass})
	high := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 200, Q: 0.707, Order: filter.Order2, Type: filter.LowPass})

	rmsLow := sineRMS(low, 20, sampleHz, 4000)
	rmsHigh := sineRMS(high, 2000, sampleHz, 4000)

	// An unattenuated unit-amplitude sine has rms 1/sqrt(2).
	if rmsLow < 0.8/math.Sqrt2 {
		t.Fatalf("passband rms = %v, want close to 1/sqrt(2) (unattenuated unit sine)", rmsLow)
	}
	if rmsHigh > 0.3 {
		t.Fatalf("stopband rms = %v, want strongly attenuated", rmsHigh)
	}
}

func TestIIRHighPassAttenuatesBelowCutoff(t *testing.T) {
	const sampleHz = 10000.0
	low := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 500, Q: 0.707, Order: filter.Order2, Type: filter.HighPass})
	high := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 500, Q: 0.707, Order: filter.Order2, Type: filter.HighPass})

	rmsLow := sineRMS(low, 20, sampleHz, 4000)
	rmsHigh := sineRMS(high, 3000, sampleHz, 4000)

	if rmsLow > 0.3 {
		t.Fatalf("stopband rms = %v, want strongly attenuated", rmsLow)
	}
	// An unattenuated unit-amplitude sine has rms 1/sqrt(2).
	if rmsHigh < 0.8/math.Sqrt2 {
		t.Fatalf("passband rms = %v, want close to 1/sqrt(2) (unattenuated unit sine)", rmsHigh)
	}
}

func TestIIRBandPassPassesCenterFreqMoreThanFarFreq(t *testing.T) {
	const sampleHz = 10000.0
	center := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 1000, Q: 5, Order: filter.Order2, Type: filter.BandPass})
	far := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 1000, Q: 5, Order: filter.Order2, Type: filter.BandPass})

	rmsCenter := sineRMS(center, 1000, sampleHz, 6000)
	rmsFar := sineRMS(far, 100, sampleHz, 6000)

	if rmsCenter <= rmsFar {
		t.Fatalf("center-freq rms %v, far-freq rms %v: want center to pass more strongly", rmsCenter, rmsFar)
	}
}

func TestIIROrder1LowPassMonotonicAttenuation(t *testing.T) {
	const sampleHz = 10000.0
	low := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 100, Order: filter.Order1, Type: filter.LowPass})
	high := filter.NewIIR(filter.IIRConfig{SampleHz: sampleHz, CutoffHz: 100, Order: filter.Order1, Type: filter.LowPass})

	rmsLow := sineRMS(low, 10, sampleHz, 4000)
	rmsHigh := sineRMS(high, 3000, sampleHz, 4000)

	if rmsHigh >= rmsLow {
		t.Fatalf("high-freq rms %v should be smaller than low-freq rms %v", rmsHigh, rmsLow)
	}
}

// TestRLSRunsFullUpdateCycle exercises NewRLS/Exec/Reset without
// asserting convergence: RLS starts P as the zero matrix (see the type's
// doc comment), so the very first Exec step is a 0/0 division by design,
// carried forward from the original rather than silently fixed. This
// only checks the full update loop runs for every tap without panicking.
func TestRLSRunsFullUpdateCycle(t *testing.T) {
	r := filter.NewRLS(filter.RLSConfig{Order: 4, Lambda: 0.99, Delta: 100})
	for i := 0; i < 20; i++ {
		r.Exec(float64(i)*0.1, float64(i)*0.1)
	}
	r.Reset()
	r.Exec(1, 1)
}
