// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched is a fixed-capacity task scheduler offering two dispatch
// algorithms: round-robin FCFS and an earliest-deadline-with-priority-
// tiebreak CFS backed by a red-black tree.
//
// Grounded on original_source/sched/sched.h (task table, tick algorithm,
// FCFS/CFS dispatch ops) and original_source/sched/thread.h (worker-thread
// spawn and CPU pinning), generalized to the teacher's atomix/spin
// concurrency idiom: the tick path touches no OS lock, matching the
// no-blocking invariant carried over from the distilled spec. AddTask is
// a one-time setup-phase operation — every task must be registered before
// Run starts — so the per-task counters Tick mutates (state, exec count,
// elapsed time, next deadline) are atomix-guarded values rather than
// mutex-protected ones: Tick only ever writes its own task's counters
// from the single worker goroutine, and Status reads them lock-free from
// any other goroutine. AddTask itself still serializes through a private
// mutex (never touched by Tick) since concurrent registration is rare
// and not on any hot path.
package sched

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/atomix"

	"code.hybscloud.com/motorrt/internal/affinity"
	"code.hybscloud.com/motorrt/internal/rbtree"
	"code.hybscloud.com/motorrt/timebase"
)

// State is a task's run state.
type State int

const (
	StateRunning State = iota
	StateSleeping
	StateStopped
	StateDead
)

// Algorithm selects the dispatch policy.
type Algorithm int

const (
	FCFS Algorithm = iota
	CFS
)

var (
	// ErrNoWork is returned by Tick when there is no eligible task —
	// the dispatch candidate is absent or has no callback.
	ErrNoWork = errors.New("sched: no work")
	// ErrTaskTableFull is returned by AddTask once the fixed-size task
	// table is exhausted.
	ErrTaskTableFull = errors.New("sched: task table full")
	// ErrInvalidArgument is returned for malformed construction or task
	// configuration.
	ErrInvalidArgument = errors.New("sched: invalid argument")
)

// TaskID indexes a task within a Scheduler's fixed task table.
type TaskID int32

// TaskConfig describes a task at AddTask time.
type TaskConfig struct {
	Priority     uint32 // lower value = higher priority
	FreqHz       float64
	MaxExecCount uint64 // 0 = unlimited
	Delay        uint64 // ticks to wait, relative to create time, before first run
	Callback     func(arg any)
	Arg          any
}

// Status is a snapshot of a task's runtime bookkeeping.
type Status struct {
	State      State
	ExecCount  uint64
	ElapsedUS  float64
	CreateTS   uint64
	NextExecTS uint64
}

// taskStatus is the live, mutable counterpart of Status: every field Tick
// writes is an atomix value so Status can read a consistent snapshot
// without a lock, and so Tick never has to take one either. createTS is
// the one exception — AddTask sets it once, before Run starts, and
// nothing ever writes it again, so a plain field is already race-free.
type taskStatus struct {
	state      atomix.Uint64
	execCount  atomix.Uint64
	elapsedUS  atomix.Uint64 // math.Float64bits/Float64frombits
	createTS   uint64
	nextExecTS atomix.Uint64
}

func (ts *taskStatus) snapshot() Status {
	return Status{
		State:      State(ts.state.LoadRelaxed()),
		ExecCount:  ts.execCount.LoadRelaxed(),
		ElapsedUS:  math.Float64frombits(ts.elapsedUS.LoadRelaxed()),
		CreateTS:   ts.createTS,
		NextExecTS: ts.nextExecTS.LoadRelaxed(),
	}
}

type task struct {
	cfg    TaskConfig
	status taskStatus

	// inTree is touched only by AddTask (setup phase, before Run) and by
	// Tick (running phase, single worker goroutine) — the two phases
	// never overlap, so this needs no synchronization of its own.
	inTree bool
}

// Config configures a Scheduler.
type Config struct {
	Algorithm Algorithm
	TickUnit  timebase.Unit
	CPUID     int    // only consulted if Pin is true
	Pin       bool
	MaxTasks  int
}

// Scheduler dispatches a fixed set of tasks according to its configured
// Algorithm. The zero value is not usable; construct with New.
//
// AddTask must be called only before Run starts: once running is true,
// AddTask refuses further registrations rather than racing the tick path.
type Scheduler struct {
	cfg   Config
	clock *timebase.Clock

	addMu   sync.Mutex    // serializes AddTask only; Tick never takes this
	running atomix.Uint64 // 0/1; set by Run, AddTask refuses once nonzero

	tasks    []task
	ntasks   int
	fcfsNext int

	tree      *rbtree.Tree
	treeNodes []rbtree.Node
}

// New constructs a Scheduler with a fixed task table of cfg.MaxTasks
// slots (default 8, mirroring original_source's SCHED_TASK_MAX).
func New(cfg Config, clock *timebase.Clock) (*Scheduler, error) {
	if clock == nil {
		return nil, fmt.Errorf("%w: nil clock", ErrInvalidArgument)
	}
	maxTasks := cfg.MaxTasks
	if maxTasks <= 0 {
		maxTasks = 8
	}

	s := &Scheduler{
		cfg:   cfg,
		clock: clock,
		tasks: make([]task, maxTasks),
	}
	if cfg.Algorithm == CFS {
		s.treeNodes = make([]rbtree.Node, maxTasks)
		s.tree = rbtree.New(s.treeNodes, s.less)
	}
	return s, nil
}

func (s *Scheduler) less(a, b int32) bool {
	ta, tb := s.tasks[a].status.nextExecTS.LoadRelaxed(), s.tasks[b].status.nextExecTS.LoadRelaxed()
	if ta != tb {
		return ta < tb
	}
	if s.tasks[a].cfg.Priority != s.tasks[b].cfg.Priority {
		return s.tasks[a].cfg.Priority < s.tasks[b].cfg.Priority
	}
	return a < b
}

// hz2tick converts cfg.FreqHz into the scheduler's configured TickUnit,
// mirroring original_source/sched/sched.h's sched_hz2tick.
func (s *Scheduler) hz2tick(hz float64) uint64 {
	if hz <= 0 {
		return 0
	}
	switch s.cfg.TickUnit {
	case timebase.Milli:
		return uint64(1.0 / hz * 1000)
	default:
		return uint64(1.0 / hz * 1_000_000)
	}
}

// AddTask registers a new task and returns its TaskID. Under CFS it is
// inserted into the dispatch tree immediately.
//
// AddTask must not be called once Run has started; doing so returns
// ErrInvalidArgument rather than racing the worker goroutine's Tick loop.
// Register every task during setup, then call Run.
func (s *Scheduler) AddTask(cfg TaskConfig) (TaskID, error) {
	if cfg.Callback == nil {
		return 0, fmt.Errorf("%w: nil callback", ErrInvalidArgument)
	}
	if s.running.LoadAcquire() != 0 {
		return 0, fmt.Errorf("%w: AddTask called after Run started", ErrInvalidArgument)
	}

	s.addMu.Lock()
	defer s.addMu.Unlock()

	if s.running.LoadAcquire() != 0 {
		return 0, fmt.Errorf("%w: AddTask called after Run started", ErrInvalidArgument)
	}
	if s.ntasks >= len(s.tasks) {
		return 0, ErrTaskTableFull
	}
	id := TaskID(s.ntasks)
	now := s.clock.Now()

	t := &s.tasks[id]
	t.cfg = cfg
	t.status.state.StoreRelaxed(uint64(StateRunning))
	t.status.execCount.StoreRelaxed(0)
	t.status.elapsedUS.StoreRelaxed(0)
	t.status.createTS = now
	t.status.nextExecTS.StoreRelaxed(now + cfg.Delay)
	s.ntasks++

	if s.cfg.Algorithm == CFS {
		s.tree.Insert(int32(id))
		t.inTree = true
	}
	return id, nil
}

// fcfsGetTask scans the task table starting after the last dispatched
// index and returns the first Running task whose deadline has passed,
// mirroring sched_fcfs_get_task. If no Running task is due it returns the
// first Running task found without moving the cursor; Tick then reports
// it as not yet due.
func (s *Scheduler) fcfsGetTask(now uint64) (TaskID, bool) {
	first, found := TaskID(0), false
	for i := 0; i < s.ntasks; i++ {
		idx := (s.fcfsNext + i) % s.ntasks
		st := &s.tasks[idx].status
		if State(st.state.LoadRelaxed()) != StateRunning {
			continue
		}
		if now >= st.nextExecTS.LoadRelaxed() {
			s.fcfsNext = idx + 1
			return TaskID(idx), true
		}
		if !found {
			first, found = TaskID(idx), true
		}
	}
	return first, found
}

func (s *Scheduler) cfsGetTask() (TaskID, bool) {
	first := s.tree.First()
	if first == rbtree.Nil {
		return 0, false
	}
	return TaskID(first), true
}

// Tick performs one scheduling step: pick a candidate, check its delay
// and deadline, run it if due, then reschedule or retire it. Mirrors
// original_source/sched/sched.h's sched_exec step-by-step.
//
// Tick acquires no lock: it is meant to run from a single worker
// goroutine (directly, or via Run), and every task it touches was
// registered by AddTask before that goroutine started.
func (s *Scheduler) Tick() error {
	if s.ntasks == 0 {
		return ErrNoWork
	}

	now := s.clock.Now()

	var (
		id TaskID
		ok bool
	)
	if s.cfg.Algorithm == CFS {
		id, ok = s.cfsGetTask()
	} else {
		id, ok = s.fcfsGetTask(now)
	}
	if !ok {
		return ErrNoWork
	}

	t := &s.tasks[id]
	if t.cfg.Callback == nil {
		return ErrNoWork
	}

	if now-t.status.createTS < t.cfg.Delay {
		return nil
	}
	if now < t.status.nextExecTS.LoadRelaxed() {
		return nil
	}

	if s.cfg.Algorithm == CFS && t.inTree {
		s.tree.Erase(int32(id))
		t.inTree = false
	}

	cb, arg := t.cfg.Callback, t.cfg.Arg

	begin := now
	cb(arg)
	end := s.clock.Now()

	execCount := t.status.execCount.LoadRelaxed() + 1
	t.status.execCount.StoreRelaxed(execCount)
	t.status.elapsedUS.StoreRelaxed(math.Float64bits(float64(end - begin)))

	if t.cfg.MaxExecCount == 0 || execCount < t.cfg.MaxExecCount {
		t.status.nextExecTS.StoreRelaxed(end + s.hz2tick(t.cfg.FreqHz))
		if s.cfg.Algorithm == CFS {
			s.tree.Insert(int32(id))
			t.inTree = true
		}
	} else {
		t.status.state.StoreRelaxed(uint64(StateDead))
	}

	return nil
}

// Status returns a snapshot of task id's runtime bookkeeping. Safe to
// call from any goroutine while Run's worker goroutine is ticking: every
// field it reads is an atomix value Tick writes without a lock.
func (s *Scheduler) Status(id TaskID) (Status, error) {
	if int(id) < 0 || int(id) >= s.ntasks {
		return Status{}, fmt.Errorf("%w: task id %d out of range", ErrInvalidArgument, id)
	}
	return s.tasks[id].status.snapshot(), nil
}

// Run spawns a worker goroutine that calls Tick in a loop until ctx is
// canceled, optionally pinning its backing OS thread to cfg.CPUID.
// Mirrors original_source/sched/thread.h's sched_thread_exec plus
// sched_bind_thread_to_cpu.
//
// Run marks the scheduler as running before spawning the goroutine, so
// any AddTask call that starts afterward is rejected instead of racing
// Tick over the task table.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwapAcqRel(0, 1) {
		return fmt.Errorf("%w: Run called more than once", ErrInvalidArgument)
	}

	errc := make(chan error, 1)
	go func() {
		if s.cfg.Pin {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			if err := affinity.Bind(s.cfg.CPUID); err != nil {
				errc <- fmt.Errorf("sched: bind to cpu %d: %w", s.cfg.CPUID, err)
				return
			}
		}
		errc <- nil
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if err := s.Tick(); err != nil && !errors.Is(err, ErrNoWork) {
				return
			}
			if s.ntasks == 0 {
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return <-errc
}
