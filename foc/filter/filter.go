// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package filter implements the low-pass and biquad IIR filters the foc
// package's observers (HFI's current band-pass stages, PLL's loop filter)
// are built from.
//
// Grounded on original_source/filter/lpf.h (first-order exponential
// low-pass) and original_source/filter/iir.h (RBJ-cookbook biquad,
// order 1 or 2, low/high/band-pass). Pure math, no third-party numeric
// dependency — see the package doc in foc/transform for why.
package filter

import "math"

// LPF is a first-order exponential low-pass filter, y(n) = a*x(n) +
// (1-a)*y(n-1), mirroring lpf_exec.
type LPF struct {
	alpha float64
	y     float64
}

// NewLPF constructs an LPF with cutoff fc and sample rate fs, both in Hz.
func NewLPF(fc, fs float64) *LPF {
	rc := 1.0 / (2 * math.Pi * fc)
	return &LPF{alpha: 1.0 / (1.0 + rc*fs)}
}

// Exec filters one sample and returns the new output.
func (f *LPF) Exec(x float64) float64 {
	f.y = f.alpha*x + (1-f.alpha)*f.y
	return f.y
}

// Reset clears the filter's output history, so the next Exec starts as
// if from a freshly constructed LPF.
func (f *LPF) Reset() {
	f.y = 0
}

// Order selects a first- or second-order IIR section.
type Order int

const (
	Order1 Order = 1
	Order2 Order = 2
)

// Type selects the IIR section's response.
type Type int

const (
	LowPass Type = iota
	HighPass
	BandPass
)

// IIRConfig parametrizes an IIR biquad (or first-order) section.
type IIRConfig struct {
	SampleHz, CutoffHz, Q float64
	Order                 Order
	Type                  Type
}

// IIR is a first- or second-order IIR filter section, coefficients
// computed RBJ-cookbook style for Order2, mirroring iir_init/iir_exec.
type IIR struct {
	cfg IIRConfig

	b0, b1, b2 float64
	a1, a2     float64 // normalized, a0 == 1

	x1, x2, y1, y2 float64
}

// NewIIR constructs an IIR section from cfg.
func NewIIR(cfg IIRConfig) *IIR {
	f := &IIR{cfg: cfg}
	switch cfg.Order {
	case Order1:
		rc := 1.0 / (2 * math.Pi * cfg.CutoffHz)
		alpha := 1.0 / (1.0 + rc*cfg.SampleHz)
		switch cfg.Type {
		case HighPass:
			f.b0, f.b1 = 1-alpha, -(1 - alpha)
			f.a1 = -(1 - alpha)
		default: // LowPass
			f.b0, f.b1 = alpha, 0
			f.a1 = -(1 - alpha)
		}
	default: // Order2
		w0 := 2 * math.Pi * cfg.CutoffHz / cfg.SampleHz
		sinW0, cosW0 := math.Sincos(w0)
		alpha := sinW0 / (2 * cfg.Q)

		var b0, b1, b2, a0, a1, a2 float64
		switch cfg.Type {
		case HighPass:
			b0 = (1 + cosW0) / 2
			b1 = -b0 * 2
			b2 = b0
			a0, a1, a2 = 1+alpha, -2*cosW0, 1-alpha
		case BandPass:
			b0, b1, b2 = alpha, 0, -alpha
			a0, a1, a2 = 1+alpha, -2*cosW0, 1-alpha
		default: // LowPass
			b0 = (1 - cosW0) / 2
			b1 = b0 * 2
			b2 = b0
			a0, a1, a2 = 1+alpha, -2*cosW0, 1-alpha
		}
		f.b0, f.b1, f.b2 = b0/a0, b1/a0, b2/a0
		f.a1, f.a2 = a1/a0, a2/a0
	}
	return f
}

// Exec filters one sample and returns the new output.
func (f *IIR) Exec(x float64) float64 {
	var y float64
	switch f.cfg.Order {
	case Order1:
		y = f.b0*x + f.b1*f.x1 - f.a1*f.y1
		f.x1 = x
		f.y1 = y
	default:
		y = f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
		f.x2 = f.x1
		f.x1 = x
		f.y2 = f.y1
		f.y1 = y
	}
	return y
}

// Reset clears the section's delay line, so the next Exec starts as if
// from a freshly constructed IIR. Coefficients are config-derived and
// untouched.
func (f *IIR) Reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
