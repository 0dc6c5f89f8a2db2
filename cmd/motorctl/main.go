// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command motorctl wires a scheduler, a FOC instance, a log arena, and a
// flush goroutine together for manual exercise of the full runtime, the
// way original_source/test/sched_test.c, scheduler_test.c and
// mpsc_test.c each drive one subsystem from a small standalone main.
// There is no real ADC/PWM/DRV hardware here — simPeripheral stands in
// for it, the way a host-side simulation harness would during bring-up.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"code.hybscloud.com/motorrt/foc"
	"code.hybscloud.com/motorrt/foc/ctrl"
	"code.hybscloud.com/motorrt/foc/observer"
	"code.hybscloud.com/motorrt/logsink"
	"code.hybscloud.com/motorrt/mpsclog"
	"code.hybscloud.com/motorrt/sched"
	"code.hybscloud.com/motorrt/timebase"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		duration   time.Duration
		execHz     float64
		refCurrent float64
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "motorctl",
		Short: "Exercise the motorrt runtime against a simulated peripheral",
		Long: `motorctl runs a FOC instance on a simulated current-mode plant, driven by
a cooperative scheduler task, with telemetry pushed through an mpsclog
arena and drained to stdout by a logsink flush goroutine.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			return run(cmd.Context(), runOpts{
				duration:   duration,
				execHz:     execHz,
				refCurrent: refCurrent,
				level:      level,
			})
		},
	}

	root.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to run before exiting")
	root.Flags().Float64Var(&execHz, "exec-hz", 8000, "FOC tick frequency in Hz")
	root.Flags().Float64Var(&refCurrent, "ref-current", 0.5, "q-axis current reference once Enable is reached")
	root.Flags().StringVar(&logLevel, "log-level", "info", "data|debug|info|warn|error")

	return root
}

func parseLevel(s string) (logsink.Level, error) {
	switch s {
	case "data":
		return logsink.LevelData, nil
	case "debug":
		return logsink.LevelDebug, nil
	case "info":
		return logsink.LevelInfo, nil
	case "warn":
		return logsink.LevelWarn, nil
	case "error":
		return logsink.LevelError, nil
	default:
		return 0, fmt.Errorf("motorctl: unknown log level %q", s)
	}
}

type runOpts struct {
	duration   time.Duration
	execHz     float64
	refCurrent float64
	level      logsink.Level
}

func run(ctx context.Context, o runOpts) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := timebase.New(timebase.Micro, time.Millisecond)
	defer clock.Stop()

	log, err := mpsclog.New(make([]byte, 1<<16), make([]mpsclog.Producer, 4))
	if err != nil {
		return fmt.Errorf("motorctl: mpsclog.New: %w", err)
	}
	logger, err := logsink.New(log, 0, o.level, clock.WallClockUnixNano)
	if err != nil {
		return fmt.Errorf("motorctl: logsink.New: %w", err)
	}
	defer logger.Close()

	drainCtx, cancelDrain := context.WithCancel(context.Background())
	defer cancelDrain()
	drainDone := make(chan error, 1)
	go func() { drainDone <- logsink.Drain(drainCtx, log, os.Stdout) }()

	f, err := foc.New(focConfig(o.execHz), newSimPeripheral())
	if err != nil {
		return fmt.Errorf("motorctl: foc.New: %w", err)
	}

	sc, err := sched.New(sched.Config{Algorithm: sched.CFS, TickUnit: timebase.Micro}, clock)
	if err != nil {
		return fmt.Errorf("motorctl: sched.New: %w", err)
	}

	focArg := &focTaskState{foc: f, logger: logger, refCurrent: o.refCurrent}
	if _, err := sc.AddTask(sched.TaskConfig{
		Priority: 0,
		FreqHz:   o.execHz,
		Callback: focTick,
		Arg:      focArg,
	}); err != nil {
		return fmt.Errorf("motorctl: AddTask: %w", err)
	}

	_ = logger.Info([]byte("motorctl: starting run"))

	runCtx, cancelRun := context.WithTimeout(ctx, o.duration)
	defer cancelRun()

	// Run only reports the worker goroutine's startup error (e.g. a
	// failed CPU pin); the goroutine itself keeps ticking until runCtx
	// is done, so wait on the context directly rather than on Run.
	if err := sc.Run(runCtx); err != nil {
		_ = logger.Error([]byte("motorctl: scheduler failed to start: " + err.Error()))
		cancelDrain()
		<-drainDone
		return err
	}
	<-runCtx.Done()

	fb := f.GetFeedback()
	_ = logger.Info(fmt.Appendf(nil, "motorctl: final state=%s current=%.4f velocity=%.4f",
		f.State(), fb.Current, fb.Velocity))

	cancelDrain()
	<-drainDone

	return nil
}

// focTaskState is the scheduler task's argument, advancing the FOC state
// machine from Cali through Ready into Enable once calibration settles.
type focTaskState struct {
	foc        *foc.FOC
	logger     *logsink.Logger
	refCurrent float64
	requested  bool
}

func focTick(arg any) {
	st := arg.(*focTaskState)
	st.foc.Tick()

	if !st.requested && st.foc.State() == foc.StateReady {
		st.foc.RequestRun()
		st.foc.SetMode(foc.ModeCurrent)
		st.foc.SetReference(foc.Reference{Current: st.refCurrent})
		st.requested = true
		_ = st.logger.Info([]byte("motorctl: calibration complete, current loop enabled"))
	}
}

func focConfig(execHz float64) foc.Config {
	return foc.Config{
		ExecFreqHz: execHz,
		Motor: foc.MotorConfig{
			PolePairs: 7,
			Ld:        0.0003, Lq: 0.0003, Rs: 0.2, Psi: 0.01,
			Inertia: 0.00005, MaxTorque: 2, Wc: 2 * math.Pi * 200,
		},
		Periph: foc.PeripheralConfig{
			CurrentRange: 20, VbusRange: 60, ADCFullCount: 4096,
			TimerFreqHz: 80_000_000, PWMFreqHz: 20_000,
			PWMMin: 0.02, PWMMax: 0.98, ModulationIndex: 1,
			ADCCaliCountMax: 256, ThetaCaliCountMax: 64,
		},
		CurDiv: 1, VelDiv: 10, PosDiv: 10, PDDiv: 1,
		VelPID: ctrl.Config{Kp: 0.01, Ki: 0.5, OutMax: 2, IntegralMax: 2},
		PosPID: ctrl.Config{Kp: 10, OutMax: 50, IntegralMax: 10},
		PDPID:  ctrl.Config{Kp: 5, Kd: 0.2},

		RefThetaCaliCurrent: 1.0,
		RefThetaCaliOmega:   2 * math.Pi * 2,
		SensorThetaCompGain: 1,

		HFI: observer.HFIConfig{
			SampleHz: execHz, InjectFreqHz: 1000, InjectVd: 4,
			PolarIDCurrent: 2, IDLowPassHz: 100, IQLowPassHz: 100,
			BandPassHz: 1000, BandPassQ: 0.707,
			PLL: observer.PLLConfig{SampleHz: execHz, Wc: 2 * math.Pi * 100, Damp: 0.707, LPFCutoffHz: 100},
		},
		Luenberger: observer.LuenbergerConfig{
			SampleHz: execHz, PolePairs: 7, Inertia: 0.00005, MaxTorque: 2,
			Wc: 2 * math.Pi * 50, Damp: 0.707,
		},
		PLL: observer.PLLConfig{SampleHz: execHz, Wc: 2 * math.Pi * 100, Damp: 0.707, LPFCutoffHz: 100},
	}
}

// simPeripheral is a bare current-mode plant simulation: phase current
// chases the last commanded duty cycle, scaled crudely into the ADC's
// raw count space, with no electromagnetic model beyond that first-order
// lag. It exists so motorctl can exercise the full FOC pipeline without
// real hardware, the way original_source's own test mains never modeled
// a plant either (they drove these subsystems standalone).
type simPeripheral struct {
	theta      float64
	iu, iv, iw float64
	vbus       int32
}

func newSimPeripheral() *simPeripheral {
	return &simPeripheral{vbus: 2048}
}

func (p *simPeripheral) GetADC() foc.ADCRaw {
	return foc.ADCRaw{
		IU: int32(p.iu), IV: int32(p.iv), IW: int32(p.iw),
		VBus: p.vbus,
	}
}

func (p *simPeripheral) GetTheta() float64 { return p.theta }

func (p *simPeripheral) SetPWM(_ uint32, d foc.DutyUVW) {
	const lag = 0.02
	const center = 2048.0
	p.iu += (float64(d.U) - center - p.iu) * lag
	p.iv += (float64(d.V) - center - p.iv) * lag
	p.iw += (float64(d.W) - center - p.iw) * lag
}

func (p *simPeripheral) SetDRV(enable bool) {
	if !enable {
		p.iu, p.iv, p.iw = 0, 0, 0
	}
}
