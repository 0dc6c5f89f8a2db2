// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ctrl implements the PID controller the foc package's current,
// velocity, position, and PD loops are built from.
//
// Grounded on original_source/ctl/pid.h: a parallel-form PID with clamped
// integral windup and output saturation, executed at a caller-supplied
// sample rate. ADRC (original_source/ctl/adrc.h) is intentionally not
// ported — the foc package's Mode enum carries an Adrc value marked
// reserved/unimplemented, matching adrc.h itself, which stubs the type
// without a working controller body.
package ctrl

// Config parametrizes a PID loop: sample rate, gains, and output limits.
type Config struct {
	SampleHz  float64
	Kp, Ki, Kd float64
	// IntegralMax clamps the integral term's contribution (symmetric).
	IntegralMax float64
	// OutMax clamps the final output (symmetric).
	OutMax float64
}

// PID is a single-axis PID controller. The zero value is not usable;
// construct with New.
type PID struct {
	cfg Config

	prevErr  float64
	integral float64

	// Out is the most recent computed output, mirroring pid_out_t.val so
	// callers can read it without a separate accessor.
	Out float64
}

// New constructs a PID controller from cfg.
func New(cfg Config) *PID {
	return &PID{cfg: cfg}
}

// Config returns the PID's current configuration, for callers that
// hot-patch a subset of fields (e.g. only the output limits) via
// Reconfigure.
func (p *PID) Config() Config {
	return p.cfg
}

// Reconfigure swaps in new gains/limits without resetting accumulated
// state, mirroring original_source's CFG_CHECK re-init-on-change pattern
// used by callers that hot-adjust gains (the foc package's Enable stage,
// which re-clamps the current loops to the bus-voltage limit every tick,
// is the concrete case).
func (p *PID) Reconfigure(cfg Config) {
	p.cfg = cfg
}

// Reset clears accumulated integral and derivative-history state, e.g.
// when the foc package disables the drive and later re-enables it.
func (p *PID) Reset() {
	p.prevErr = 0
	p.integral = 0
	p.Out = 0
}

func clamp(v, lo, hi float64) float64 {
	if v <= lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Exec runs one control step given reference, feedback, and feedforward
// inputs, returning the saturated output. Mirrors pid_exec_in.
func (p *PID) Exec(ref, fdb, ffd float64) float64 {
	err := ref - fdb

	kpOut := p.cfg.Kp * err
	p.integral += p.cfg.Ki * err / p.cfg.SampleHz
	p.integral = clamp(p.integral, -p.cfg.IntegralMax, p.cfg.IntegralMax)
	kdOut := p.cfg.Kd * (err - p.prevErr) * p.cfg.SampleHz
	p.prevErr = err

	out := kpOut + p.integral + kdOut + ffd
	out = clamp(out, -p.cfg.OutMax, p.cfg.OutMax)
	p.Out = out
	return out
}
