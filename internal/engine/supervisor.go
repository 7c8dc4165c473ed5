package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devharness/relaunch/internal/runtime"
)

const (
	defaultWaitBeforeRestart = time.Second
	defaultWaitForTerminate  = 5 * time.Second
	defaultWaitForKill       = 5 * time.Second
)

// State enumerates the supervisor lifecycle states.
type State int32

const (
	// StateStopped means no child is running; the supervisor is idle or
	// awaiting a scheduled restart.
	StateStopped State = iota
	// StateRunning means a child process is active and believed healthy.
	StateRunning
	// StateStopping means a graceful signal has been sent and the
	// supervisor is waiting for the child to exit.
	StateStopping
	// StateKilling means a forceful signal has been sent and the
	// supervisor is waiting for the child to exit, or will give up.
	StateKilling
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateKilling:
		return "killing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

type timerKind int

const (
	timerNone timerKind = iota
	timerRestart
	timerTerminate
	timerKill
)

// Options configures a Supervisor.
type Options struct {
	// Name identifies the supervised service in events and metrics.
	Name string

	// Command, Dir and Env describe the child process to launch.
	Command []string
	Dir     string
	Env     map[string]string

	// WaitBeforeRestart is the debounce window between a restart request
	// and the actual relaunch.
	WaitBeforeRestart time.Duration
	// WaitForTerminate bounds how long a gracefully signalled child may
	// take to exit before the forceful signal is sent.
	WaitForTerminate time.Duration
	// WaitForKill bounds how long a forcefully signalled child may take to
	// exit before the supervisor gives up waiting for it.
	WaitForKill time.Duration

	// Runtime launches child processes.
	Runtime runtime.Runtime

	// Events receives lifecycle and log notifications.
	Events chan<- Event
}

// Supervisor owns the lifecycle of a single supervised command across
// repeated rebuild cycles. All state lives in a single reaction loop that
// processes exactly one event at a time: OS exit notifications, timer
// firings and rebuild-completed notifications. No locks guard the state
// because nothing outside the loop ever touches it.
type Supervisor struct {
	name string
	spec runtime.StartSpec
	rt   runtime.Runtime

	waitBeforeRestart time.Duration
	waitForTerminate  time.Duration
	waitForKill       time.Duration

	events chan<- Event

	rebuilds chan struct{}

	now func() time.Time

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	observed atomic.Int32

	// Loop-owned state. Only the run goroutine reads or writes these.
	state        State
	failed       bool
	shuttingDown bool
	handle       runtime.Handle
	exitC        <-chan error
	logsC        <-chan runtime.LogEntry

	timer     *time.Timer
	timerC    <-chan time.Time
	timerKind timerKind

	restart restartScheduler
}

// New constructs a supervisor for the command described by opts. Zero
// durations fall back to defaults.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		name: opts.Name,
		spec: runtime.StartSpec{
			Name:    opts.Name,
			Command: append([]string(nil), opts.Command...),
			Dir:     opts.Dir,
			Env:     opts.Env,
		},
		rt:                opts.Runtime,
		waitBeforeRestart: opts.WaitBeforeRestart,
		waitForTerminate:  opts.WaitForTerminate,
		waitForKill:       opts.WaitForKill,
		events:            opts.Events,
		rebuilds:          make(chan struct{}, 1),
		done:              make(chan struct{}),
		now:               time.Now,
	}
	if s.waitBeforeRestart <= 0 {
		s.waitBeforeRestart = defaultWaitBeforeRestart
	}
	if s.waitForTerminate <= 0 {
		s.waitForTerminate = defaultWaitForTerminate
	}
	if s.waitForKill <= 0 {
		s.waitForKill = defaultWaitForKill
	}
	return s
}

// Start launches the reaction loop and spawns the initial child.
func (s *Supervisor) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.run()
}

// State reports the most recently committed state. Safe from any goroutine.
func (s *Supervisor) State() State {
	return State(s.observed.Load())
}

// OnRebuildCompleted notifies the supervisor that an incremental build has
// finished. Never blocks: a notification already pending covers this one,
// because the restart deadline is computed when the pending notification is
// processed.
func (s *Supervisor) OnRebuildCompleted() {
	select {
	case s.rebuilds <- struct{}{}:
	default:
	}
}

// Stop drives the shutdown sequence for any running child and waits for the
// supervisor to go idle, or for ctx to expire.
func (s *Supervisor) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) run() {
	defer close(s.done)
	defer s.clearTimer()

	s.scheduleRestart(0)

	ctxDone := s.ctx.Done()
	for {
		select {
		case <-ctxDone:
			ctxDone = nil
			s.shuttingDown = true
			if s.state == StateStopped {
				s.clearTimer()
				return
			}
			s.requestStop()
		case <-s.rebuilds:
			s.handleRebuild()
		case <-s.timerC:
			s.handleTimer()
		case err := <-s.exitC:
			s.handleExit(err)
		case entry, ok := <-s.logsC:
			if !ok {
				s.logsC = nil
				continue
			}
			s.forwardLog(entry)
		}
		if s.shuttingDown && s.state == StateStopped {
			return
		}
	}
}

func (s *Supervisor) setState(next State) {
	s.state = next
	s.observed.Store(int32(next))
}

// handleRebuild reacts to a completed incremental build: the failure latch is
// cleared, and either a debounced restart is scheduled (idle) or the running
// child is asked to stop so the subsequent idle entry schedules the restart.
func (s *Supervisor) handleRebuild() {
	if s.shuttingDown {
		return
	}
	s.failed = false
	if s.state == StateStopped {
		s.scheduleRestart(s.waitBeforeRestart)
		return
	}
	s.requestStop()
}

// requestStop initiates the termination sequence for the current child. A
// no-op when already idle or when a stop is in flight.
func (s *Supervisor) requestStop() {
	switch s.state {
	case StateStopped, StateStopping, StateKilling:
		return
	case StateRunning:
	default:
		panic("engine: stop requested in " + s.state.String())
	}

	if !s.rt.GroupSignals() {
		// Graceful delivery cannot reach the whole child tree here, so
		// skip straight to the forceful phase.
		s.kill()
		return
	}

	if err := s.handle.SignalGraceful(); err != nil {
		s.emit(EventTypeStopping, "warn", "terminate signal failed, escalating", err)
		s.kill()
		return
	}
	s.setState(StateStopping)
	s.armTimer(timerTerminate, s.waitForTerminate)
	s.emit(EventTypeStopping, "info", "sent terminate signal", nil)
}

// kill sends the forceful signal and arms the abandonment timer.
func (s *Supervisor) kill() {
	if err := s.handle.SignalForceful(); err != nil {
		s.emit(EventTypeKilling, "warn", "kill signal failed", err)
	}
	s.setState(StateKilling)
	s.armTimer(timerKill, s.waitForKill)
	s.emit(EventTypeKilling, "warn", "sent kill signal", nil)
}

func (s *Supervisor) handleTimer() {
	kind := s.timerKind
	s.timer = nil
	s.timerC = nil
	s.timerKind = timerNone

	switch kind {
	case timerRestart:
		s.restart.consume()
		if s.state != StateStopped {
			// Raced with a stop in progress; the next idle entry
			// schedules a fresh restart.
			return
		}
		s.startChild()
	case timerTerminate:
		if s.state != StateStopping {
			panic("engine: terminate timer fired in " + s.state.String())
		}
		s.emit(EventTypeStopping, "warn", "graceful shutdown timed out", nil)
		s.kill()
	case timerKill:
		if s.state != StateKilling {
			panic("engine: kill timer fired in " + s.state.String())
		}
		s.abandon()
	default:
		panic("engine: timer fired with no pending kind")
	}
}

func (s *Supervisor) handleExit(err error) {
	s.exitC = nil
	s.handle = nil

	switch s.state {
	case StateRunning:
		// Nobody asked this child to exit.
		s.failed = true
		s.emit(EventTypeCrashed, "warn", "service exited unexpectedly", err)
		s.enterStopped()
	case StateStopping, StateKilling:
		s.enterStopped()
	default:
		panic("engine: exit notification in " + s.state.String())
	}
}

// abandon gives up waiting for a child that survived the full escalation
// sequence. The process may still be alive; the supervisor only stops
// watching it.
func (s *Supervisor) abandon() {
	pid := 0
	if s.handle != nil {
		pid = s.handle.Pid()
	}
	s.handle = nil
	s.exitC = nil
	s.logsC = nil
	s.emit(EventTypeAbandoned, "error", fmt.Sprintf("process %d did not exit after kill, abandoning", pid), nil)
	s.enterStopped()
}

// enterStopped commits the idle state and, unless the last child failed or a
// shutdown is in progress, schedules the next restart.
func (s *Supervisor) enterStopped() {
	s.clearTimer()
	s.setState(StateStopped)
	s.emit(EventTypeStopped, "info", "service stopped", nil)
	if s.shuttingDown || s.failed {
		return
	}
	s.scheduleRestart(s.waitBeforeRestart)
}

func (s *Supervisor) scheduleRestart(delay time.Duration) {
	fireIn := s.restart.schedule(s.now(), delay)
	s.armTimer(timerRestart, fireIn)
	s.emit(EventTypeScheduled, "debug", fmt.Sprintf("restart scheduled in %s", fireIn), nil)
}

func (s *Supervisor) startChild() {
	if s.state != StateStopped {
		panic("engine: start requested in " + s.state.String())
	}
	s.clearTimer()
	s.emit(EventTypeStarting, "info", "starting service", nil)

	handle, err := s.rt.Start(s.ctx, s.spec)
	if err != nil {
		s.failed = true
		s.emit(EventTypeCrashed, "error", "start failed", err)
		return
	}

	s.handle = handle
	s.exitC = handle.Done()
	s.logsC = handle.Logs()
	s.setState(StateRunning)
	s.emit(EventTypeStarted, "info", "service started", nil)
}

// armTimer replaces any pending timer; exactly zero or one timers are armed
// at any instant.
func (s *Supervisor) armTimer(kind timerKind, d time.Duration) {
	s.clearTimer()
	if d < 0 {
		d = 0
	}
	s.timer = time.NewTimer(d)
	s.timerC = s.timer.C
	s.timerKind = kind
}

func (s *Supervisor) clearTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerC = nil
	s.timerKind = timerNone
}
