// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package observer

import (
	"math"

	"code.hybscloud.com/motorrt/foc/filter"
)

// PolarState is the HFI polarity-identification sub-state, mirroring
// polar_idf_e: a brief high-current injection at startup disambiguates
// the rotor's N/S magnetic polarity, which pure injection cannot resolve
// on its own.
type PolarState int

const (
	PolarReady PolarState = iota
	PolarPositive
	PolarNegative
	PolarFinish
)

// HFIConfig parametrizes the high-frequency-injection observer.
type HFIConfig struct {
	SampleHz        float64
	InjectFreqHz    float64 // fh: the injected carrier frequency
	InjectVd        float64 // hfi_vd: injected d-axis voltage amplitude
	PolarIDCurrent  float64 // hfi_id: d-axis current used for polarity probing
	IDLowPassHz     float64
	IQLowPassHz     float64
	BandPassHz      float64
	BandPassQ       float64
	PLL             PLLConfig
}

// HFI is a high-frequency-injection sensorless observer for salient-pole
// machines at standstill/low speed, mirroring obs/hfi.h.
type HFI struct {
	cfg HFIConfig

	idBPF *filter.IIR
	iqBPF *filter.IIR
	pll   *PLL

	hfiTheta     float64
	lpfID        float64
	hfiThetaErr  float64
	idLPFAlpha   float64
	iqLPFAlpha   float64

	polar      PolarState
	polarCnt   uint32
	polarCntMax uint32
	idPos, idNeg float64
	polarOffset  float64

	// Theta and Omega are the observer's latest electrical-angle and
	// angular-rate estimates.
	Theta, Omega float64
	// ID is the d-axis current reference polarity identification requests:
	// +PolarIDCurrent in the positive window, -PolarIDCurrent in the
	// negative one, 0 otherwise (foc_select's ref_i_dq.d source during
	// polarity identification).
	ID float64
	// Vd is the injected d-axis voltage the caller must add into its
	// voltage command.
	Vd float64
}

// NewHFI constructs an HFI observer from cfg, mirroring hfi_init.
func NewHFI(cfg HFIConfig) *HFI {
	h := &HFI{cfg: cfg}
	h.idBPF = filter.NewIIR(filter.IIRConfig{SampleHz: cfg.SampleHz, CutoffHz: cfg.BandPassHz, Q: cfg.BandPassQ, Order: filter.Order2, Type: filter.BandPass})
	h.iqBPF = filter.NewIIR(filter.IIRConfig{SampleHz: cfg.SampleHz, CutoffHz: cfg.BandPassHz, Q: cfg.BandPassQ, Order: filter.Order2, Type: filter.BandPass})
	h.pll = NewPLL(cfg.PLL)
	h.polarCntMax = uint32(cfg.SampleHz / 3.0)

	idRC := 1.0 / (2 * math.Pi * cfg.IDLowPassHz)
	h.idLPFAlpha = 1.0 / (1.0 + idRC*cfg.SampleHz)
	iqRC := 1.0 / (2 * math.Pi * cfg.IQLowPassHz)
	h.iqLPFAlpha = 1.0 / (1.0 + iqRC*cfg.SampleHz)
	return h
}

func (h *HFI) polarIdentify() {
	switch h.polar {
	case PolarReady:
		if h.polarCnt == h.polarCntMax {
			h.polar = PolarPositive
		}
	case PolarPositive:
		h.ID = h.cfg.PolarIDCurrent
		h.idPos += math.Abs(h.lpfID)
		if h.polarCnt == h.polarCntMax*2 {
			h.polar = PolarNegative
		}
	case PolarNegative:
		h.ID = -h.cfg.PolarIDCurrent
		h.idNeg += math.Abs(h.lpfID)
		if h.polarCnt == h.polarCntMax*3 {
			if math.Abs(h.idPos) > math.Abs(h.idNeg) {
				h.polarOffset = 0
			} else {
				h.polarOffset = math.Pi
			}
			h.polar = PolarFinish
		}
	case PolarFinish:
		h.ID = 0
		h.polarCnt = 0
		return
	}
	h.polarCnt++
}

// ExecIDQ runs one HFI step given the measured d-q current, mirroring
// hfi_exec_in.
func (h *HFI) ExecIDQ(id, iq float64) {
	const tau = 2 * math.Pi

	idFiltered := h.idBPF.Exec(id)
	sinTheta, cosTheta := math.Sincos(h.hfiTheta)
	hfiID := idFiltered * sinTheta
	h.lpfID = h.idLPFAlpha*hfiID + (1-h.idLPFAlpha)*h.lpfID

	h.polarIdentify()

	h.hfiTheta += tau * h.cfg.InjectFreqHz / h.cfg.SampleHz
	h.hfiTheta = warpTau(h.hfiTheta)
	h.Vd = h.cfg.InjectVd * cosTheta

	iqFiltered := h.iqBPF.Exec(iq)
	hfiIQ := iqFiltered * sinTheta
	h.hfiThetaErr = h.iqLPFAlpha*hfiIQ + (1-h.iqLPFAlpha)*h.hfiThetaErr

	theta, omega := h.pll.ExecThetaErr(h.hfiThetaErr)
	h.Theta = warpTau(theta + h.polarOffset)
	h.Omega = omega
}

// Reset clears all of the observer's runtime state — injected-angle
// accumulator, demodulation filters, polarity-identification progress,
// and the embedded PLL — mirroring a freshly zeroed hfi_lo_t. It must be
// called whenever the drive is disabled, so a later re-enable does not
// carry over stale polarity or angle-tracking history. Config derived
// from cfg (including idLPFAlpha, iqLPFAlpha, polarCntMax) is untouched.
func (h *HFI) Reset() {
	h.idBPF.Reset()
	h.iqBPF.Reset()
	h.pll.Reset()

	h.hfiTheta = 0
	h.lpfID = 0
	h.hfiThetaErr = 0

	h.polar = PolarReady
	h.polarCnt = 0
	h.idPos, h.idNeg = 0, 0
	h.polarOffset = 0

	h.Theta, h.Omega = 0, 0
	h.ID = 0
	h.Vd = 0
}
