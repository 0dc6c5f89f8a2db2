// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ctrl_test

import (
	"math"
	"testing"

	"code.hybscloud.com/motorrt/foc/ctrl"
)

func TestExecConvergesToReference(t *testing.T) {
	p := ctrl.New(ctrl.Config{
		SampleHz: 1000, Kp: 0.5, Ki: 50,
		IntegralMax: 10, OutMax: 10,
	})

	// A simple first-order plant: fdb moves toward out each step.
	fdb := 0.0
	for i := 0; i < 2000; i++ {
		out := p.Exec(1.0, fdb, 0)
		fdb += (out - fdb) * 0.05
	}
	if math.Abs(fdb-1.0) > 0.01 {
		t.Fatalf("fdb = %v after settling, want close to 1.0", fdb)
	}
}

func TestExecSaturatesAtOutMax(t *testing.T) {
	p := ctrl.New(ctrl.Config{SampleHz: 1000, Kp: 100, IntegralMax: 5, OutMax: 5})
	out := p.Exec(10, 0, 0)
	if out != 5 {
		t.Fatalf("out = %v, want clamped to 5", out)
	}
}

func TestResetClearsIntegralHistory(t *testing.T) {
	p := ctrl.New(ctrl.Config{SampleHz: 1000, Ki: 100, IntegralMax: 100, OutMax: 100})
	for i := 0; i < 100; i++ {
		p.Exec(1, 0, 0)
	}
	if p.Out == 0 {
		t.Fatalf("expected nonzero accumulated output before reset")
	}
	p.Reset()
	out := p.Exec(0, 0, 0)
	if out != 0 {
		t.Fatalf("out after reset + zero-error step = %v, want 0", out)
	}
}

func TestReconfigurePreservesAccumulatedIntegral(t *testing.T) {
	p := ctrl.New(ctrl.Config{SampleHz: 1000, Ki: 10, IntegralMax: 100, OutMax: 100})
	p.Exec(1, 0, 0)
	before := p.Out

	p.Reconfigure(ctrl.Config{SampleHz: 1000, Ki: 10, IntegralMax: 1, OutMax: 1})
	after := p.Exec(0, 0, 0)

	if before == 0 {
		t.Fatalf("expected nonzero output before reconfigure")
	}
	if after != before {
		t.Fatalf("out after Reconfigure + zero-error step = %v, want accumulated integral %v preserved", after, before)
	}
	if after > 1 {
		t.Fatalf("out after tighter Reconfigure = %v, want clamped to <= 1", after)
	}
}
