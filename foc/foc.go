// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package foc drives a field-oriented-control state machine for a single
// motor: rotor-angle tracking, a calibration sub-state machine, and
// current/velocity/position control loops feeding an SVPWM duty-cycle
// output.
//
// Grounded on original_source/foc/focdef.h (type layout), foc/foc.h (the
// top-level foc_init/foc_rotor_cal/foc_exec driver), foc/foccali.h (the
// Init/CW/CCW/Finish calibration sub-states), and foc/focstate.h (the
// per-state Ready/Disable/Enable bodies plus SVPWM and theta-source
// selection). Sub-packages transform, ctrl, filter, and observer supply
// the pure-function/stateful-filter collaborators this package wires
// together every Tick.
package foc

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"code.hybscloud.com/motorrt/foc/ctrl"
	"code.hybscloud.com/motorrt/foc/observer"
	"code.hybscloud.com/motorrt/foc/transform"
)

// ErrInvalidArgument is returned for malformed Config or nil Peripheral.
var ErrInvalidArgument = errors.New("foc: invalid argument")

// State is the top-level FOC run state, mirroring foc_state_e.
type State int

const (
	StateNull State = iota
	StateCali
	StateReady
	StateDisable
	StateEnable
)

func (s State) String() string {
	switch s {
	case StateCali:
		return "cali"
	case StateReady:
		return "ready"
	case StateDisable:
		return "disable"
	case StateEnable:
		return "enable"
	default:
		return "null"
	}
}

// ThetaSource selects which rotor-angle estimate drives the control
// loops, mirroring foc_theta_e.
type ThetaSource int

const (
	ThetaNull ThetaSource = iota
	ThetaForce
	ThetaSensor
	ThetaSensorless
	ThetaSensorFusion
)

// Observer selects the sensorless angle-estimation strategy dispatched
// each Enable tick, mirroring foc_obs_e.
type Observer int

const (
	ObsNull Observer = iota
	// ObsSMO is reserved: original_source/obs/smo.h declares the type but
	// carries no implementation, so this value is accepted by
	// configuration but never dispatches an estimator.
	ObsSMO
	ObsHFI
	ObsLBG
)

// CaliState is the calibration sub-state, mirroring foc_cali_e.
type CaliState int

const (
	CaliInit CaliState = iota
	CaliCW
	CaliCCW
	CaliFinish
)

// Mode selects the active control loop during StateEnable, mirroring
// foc_mode_e.
type Mode int

const (
	ModeNull Mode = iota
	ModeVoltage
	ModeCurrent
	ModeVelocity
	ModePosition
	ModePD
	// ModeAdrc is reserved, unimplemented: original_source/ctl/adrc.h
	// declares the ADRC controller type but ships no working controller
	// body for it, matching ObsSMO's status.
	ModeAdrc
)

// MotorConfig carries the motor's electrical and mechanical parameters.
type MotorConfig struct {
	PolePairs int
	Ld, Lq, Rs, Psi float64
	Inertia   float64
	MaxTorque float64
	Wc        float64 // current-loop bandwidth target (rad/s)
}

// PeripheralConfig carries ADC/PWM scaling and calibration tunables.
type PeripheralConfig struct {
	CurrentRange, VbusRange float64
	ADCFullCount            float64
	TimerFreqHz, PWMFreqHz  float64
	PWMMin, PWMMax          float64
	ModulationIndex         float64
	ADCCaliCountMax         uint32
	ThetaCaliCountMax       uint32

	// computed by New from the fields above, mirroring foc_init's
	// adc2cur/adc2vbus/pwm_full_cnt derivation.
	adcToCurrent, adcToVbus float64
	pwmPeriodCount          uint32
}

// Config configures a FOC instance.
type Config struct {
	ExecFreqHz float64
	Motor      MotorConfig
	Periph     PeripheralConfig

	CurDiv, VelDiv, PosDiv, PDDiv uint32

	VelPID, PosPID, PDPID ctrl.Config

	RefThetaCaliCurrent float64
	RefThetaCaliOmega   float64
	SensorThetaCompGain float64

	HFI        observer.HFIConfig
	Luenberger observer.LuenbergerConfig
	PLL        observer.PLLConfig
}

// ADCRaw is one raw ADC sample set, mirroring adc_raw_t.
type ADCRaw struct {
	IU, IV, IW int32
	VBus       int32
}

// DutyUVW is a three-phase PWM duty-cycle count, mirroring
// svpwm_t.u32_pwm_duty.
type DutyUVW struct {
	U, V, W uint32
}

// Peripheral is the hardware boundary a FOC instance drives.
type Peripheral interface {
	GetADC() ADCRaw
	GetTheta() float64
	SetPWM(periodCount uint32, dutyUVW DutyUVW)
	SetDRV(enable bool)
}

type rotor struct {
	theta, compTheta, omega       float64
	forceTheta, forceOmega        float64
	sensorTheta, sensorCompTheta, sensorOmega float64
	obsTheta, obsOmega             float64
	fusionThetaErr                 float64

	mechCycleCount               int
	mechTheta, mechPrevTheta      float64
	mechTotalTheta, mechOmega     float64
}

type referencePVCT struct {
	pos, ffdVel float64
	vel, ffdCur float64
	cur         float64
	tor         float64
}

type feedbackPVCT struct {
	pos, vel, cur float64
	elecTor, loadTor float64
}

// FOC drives one motor's field-oriented-control state machine. The zero
// value is not usable; construct with New.
type FOC struct {
	cfg        Config
	peripheral Peripheral

	mu sync.Mutex

	state State
	theta ThetaSource
	obs   Observer
	cali  CaliState
	mode, lastMode Mode

	rotor rotor

	adcOffset ADCRaw
	thetaOffsetElec float64

	execCount uint64
	adcCaliCount, thetaCaliCount, thetaCaliHoldCount uint32
	thetaOffsetSum float64

	refPVCT referencePVCT
	fdbPVCT feedbackPVCT

	refIDQ, compIDQ transform.DQ
	ffdVDQ          transform.DQ

	vBus float64
	iUVW transform.UVW
	iAB  transform.AB
	iDQ  transform.DQ

	vDQ   transform.DQ
	vAB   transform.AB
	vABSV transform.AB
	vUVW  transform.UVW
	pwmDuty DutyUVW

	idPID, iqPID     *ctrl.PID
	velPID, posPID, pdPID *ctrl.PID

	pll  *observer.PLL
	hfi  *observer.HFI
	lbg  *observer.Luenberger
}

// New constructs a FOC instance from cfg, driving peripheral. Mirrors
// foc_init's peripheral-scale derivation and per-controller/observer
// initialization.
func New(cfg Config, peripheral Peripheral) (*FOC, error) {
	if peripheral == nil {
		return nil, fmt.Errorf("%w: nil peripheral", ErrInvalidArgument)
	}
	if cfg.ExecFreqHz <= 0 {
		return nil, fmt.Errorf("%w: non-positive exec frequency", ErrInvalidArgument)
	}
	if cfg.Motor.PolePairs <= 0 {
		return nil, fmt.Errorf("%w: non-positive pole pair count", ErrInvalidArgument)
	}

	cfg.Periph.adcToCurrent = cfg.Periph.CurrentRange / cfg.Periph.ADCFullCount
	cfg.Periph.adcToVbus = cfg.Periph.VbusRange / cfg.Periph.ADCFullCount
	cfg.Periph.pwmPeriodCount = uint32(cfg.Periph.TimerFreqHz / cfg.Periph.PWMFreqHz)

	div := func(d uint32) uint32 {
		if d == 0 {
			return 1
		}
		return d
	}
	curFs := cfg.ExecFreqHz / float64(div(cfg.CurDiv))
	cfg.VelPID.SampleHz = cfg.ExecFreqHz / float64(div(cfg.VelDiv))
	cfg.PosPID.SampleHz = cfg.ExecFreqHz / float64(div(cfg.PosDiv))
	cfg.PDPID.SampleHz = cfg.ExecFreqHz / float64(div(cfg.PDDiv))

	curPIDCfg := ctrl.Config{
		SampleHz: curFs,
		Kp:       cfg.Motor.Wc * cfg.Motor.Ld,
		Ki:       cfg.Motor.Wc * cfg.Motor.Rs,
	}

	f := &FOC{
		cfg:        cfg,
		peripheral: peripheral,
		state:      StateCali,
		cali:       CaliInit,

		idPID:  ctrl.New(curPIDCfg),
		iqPID:  ctrl.New(curPIDCfg),
		velPID: ctrl.New(cfg.VelPID),
		posPID: ctrl.New(cfg.PosPID),
		pdPID:  ctrl.New(cfg.PDPID),
	}

	pllCfg := cfg.PLL
	pllCfg.SampleHz = cfg.ExecFreqHz
	f.pll = observer.NewPLL(pllCfg)

	hfiCfg := cfg.HFI
	hfiCfg.SampleHz = cfg.ExecFreqHz
	hfiCfg.PLL.SampleHz = cfg.ExecFreqHz
	f.hfi = observer.NewHFI(hfiCfg)

	lbgCfg := cfg.Luenberger
	lbgCfg.SampleHz = cfg.ExecFreqHz
	lbgCfg.PolePairs = cfg.Motor.PolePairs
	lbgCfg.Inertia = cfg.Motor.Inertia
	lbgCfg.MaxTorque = cfg.Motor.MaxTorque
	f.lbg = observer.NewLuenberger(lbgCfg)

	return f, nil
}

// State returns the FOC instance's current top-level state.
func (f *FOC) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// RequestRun transitions Ready or Disable into Enable — original_source
// leaves this transition to a command layer outside the headers this
// package ports (foc_ready is an empty body; nothing in foc.h/focstate.h
// ever sets e_state to FOC_STATE_ENABLE itself), so RequestRun is this
// package's explicit equivalent of that missing caller.
func (f *FOC) RequestRun() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateReady || f.state == StateDisable {
		f.state = StateEnable
	}
}

// RequestStop transitions Ready or Enable back to Disable.
func (f *FOC) RequestStop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateReady || f.state == StateEnable {
		f.state = StateDisable
	}
}

// SetMode changes the active control loop. Switching mode resets the
// loop's integral/derivative state so a stale accumulator from the
// previous mode cannot leak a transient into the new one.
func (f *FOC) SetMode(m Mode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastMode = f.mode
	f.mode = m
	switch m {
	case ModeVelocity:
		f.velPID.Reset()
	case ModePosition:
		f.posPID.Reset()
		f.velPID.Reset()
	case ModePD:
		f.pdPID.Reset()
	}
}

// SetObserver selects the sensorless angle estimator dispatched each
// Enable tick.
func (f *FOC) SetObserver(o Observer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = o
}

// SetThetaSource selects which rotor-angle estimate drives Park/inverse
// Park each Enable tick.
func (f *FOC) SetThetaSource(s ThetaSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.theta = s
}

// Reference is the set of targets SetReference accepts, one per Mode:
// Position/Velocity/Current feedforwards and a direct PD target.
type Reference struct {
	Position, FeedforwardVelocity float64
	Velocity, FeedforwardCurrent  float64
	Current                       float64
	Torque                        float64
}

// SetReference updates the active mode's reference inputs.
func (f *FOC) SetReference(r Reference) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refPVCT = referencePVCT{
		pos: r.Position, ffdVel: r.FeedforwardVelocity,
		vel: r.Velocity, ffdCur: r.FeedforwardCurrent,
		cur: r.Current,
		tor: r.Torque,
	}
}

// Feedback is a snapshot of the FOC instance's most recent position,
// velocity, and current feedback, mirroring foc_fdb_pvct_t.
type Feedback struct {
	Position, Velocity, Current float64
	ElecTorque, LoadTorque       float64
}

// GetFeedback returns the FOC instance's latest feedback snapshot.
func (f *FOC) GetFeedback() Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Feedback{
		Position: f.fdbPVCT.pos, Velocity: f.fdbPVCT.vel, Current: f.fdbPVCT.cur,
		ElecTorque: f.fdbPVCT.elecTor, LoadTorque: f.fdbPVCT.loadTor,
	}
}

const tau = 2 * math.Pi

func warpPI(rad float64) float64 {
	if math.Abs(rad) > tau {
		rad = math.Mod(rad, tau)
	}
	if rad > math.Pi {
		rad -= tau
	} else if rad < -math.Pi {
		rad += tau
	}
	return rad
}

func warpTau(rad float64) float64 {
	if math.Abs(rad) > tau {
		rad = math.Mod(rad, tau)
	}
	if rad < 0 {
		rad += tau
	}
	return rad
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

// rotorCal updates the mechanical and electrical rotor-angle estimates
// from the peripheral's raw angle sensor, mirroring foc_rotor_cal.
func (f *FOC) rotorCal() {
	r := &f.rotor
	mechTheta := f.peripheral.GetTheta()

	diff := mechTheta - r.mechPrevTheta
	if diff < -tau*0.5 {
		r.mechCycleCount++
	} else if diff > tau*0.5 {
		r.mechCycleCount--
	}
	r.mechTotalTheta = float64(r.mechCycleCount)*tau + mechTheta
	r.mechPrevTheta = mechTheta
	r.mechTheta = mechTheta

	npp := float64(f.cfg.Motor.PolePairs)
	r.sensorCompTheta = f.cfg.SensorThetaCompGain * r.sensorOmega / f.cfg.ExecFreqHz
	r.sensorTheta = warpTau(mechTheta*npp - f.thetaOffsetElec + r.sensorCompTheta)

	theta, omega := f.pll.ExecTheta(r.sensorTheta)
	r.sensorOmega = omega
	_ = theta

	r.mechOmega = r.sensorOmega / npp

	if f.theta == ThetaSensor {
		r.theta = r.sensorTheta
		r.omega = r.sensorOmega
	}
}

// getFeedback snapshots position/velocity/current feedback from the
// rotor and d-q current state, mirroring foc_get_fdb.
func (f *FOC) getFeedback() {
	f.fdbPVCT.pos = f.rotor.mechTotalTheta
	f.fdbPVCT.vel = f.rotor.mechOmega
	f.fdbPVCT.cur = f.iDQ.Q
}

// Tick runs one execution step: rotor-angle update, state dispatch, and
// a feedback snapshot. Mirrors foc_exec.
func (f *FOC) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.execCount++
	f.rotorCal()

	switch f.state {
	case StateCali:
		f.caliTick()
	case StateReady:
		f.ready()
	case StateDisable:
		f.disable()
	case StateEnable:
		f.enable()
	}

	f.getFeedback()
}
