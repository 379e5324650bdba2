// Package timer implements the focus countdown/stopwatch engine.
package timer

import (
	"sync"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

// State is the lifecycle state of a Timer
type State int

const (
	Idle State = iota
	Running
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Mode selects whether a Timer counts down or up
type Mode int

const (
	Countdown Mode = iota
	Stopwatch
)

// Ticker is the subset of time.Ticker the engine depends on
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker firing every d
type TickerFunc func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

// NewStdTicker is the default TickerFunc backed by time.NewTicker
func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Snapshot is a consistent view of the timer at one instant. All values are seconds.
type Snapshot struct {
	State     State
	Mode      Mode
	Duration  int
	Remaining int
	Elapsed   int
}

// Options configures a Timer
type Options struct {
	Mode     Mode
	Duration time.Duration // countdown length, truncated to whole seconds

	// OnTick receives the remaining seconds (countdown) or elapsed seconds (stopwatch).
	OnTick func(value int)

	// OnComplete fires once per run when a countdown reaches zero or a
	// stopwatch is finished.
	//
	// Callbacks may call Close; it then returns without waiting for the tick
	// goroutine, which exits once the callback returns.
	OnComplete func(Snapshot)

	NewTicker TickerFunc
	Interval  time.Duration
}

// Timer is a countdown or stopwatch driven by a one-second tick. It is safe
// for concurrent use; callbacks run on the tick goroutine without the lock held.
type Timer struct {
	mu   sync.Mutex
	opts Options

	state     State
	initial   int
	remaining int
	elapsed   int
	fired     bool
	calling   bool // tick goroutine is running callbacks

	gen  uint64
	stop chan struct{}
	done chan struct{}
}

// New creates an idle timer.
func New(opts Options) *Timer {
	if opts.NewTicker == nil {
		opts.NewTicker = NewStdTicker
	}
	if opts.Interval <= 0 {
		opts.Interval = constants.TickInterval
	}
	t := &Timer{opts: opts}
	t.initial = seconds(opts.Duration)
	t.remaining = t.initial
	return t
}

// Start begins ticking from idle or paused. Starting a running timer is a
// no-op; starting a completed timer begins a fresh run.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case Running:
		return
	case Completed:
		t.rewindLocked()
	case Idle:
		t.fired = false
	}
	t.state = Running
	t.gen++
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(t.opts.NewTicker(t.opts.Interval), t.gen, t.stop, t.done)
}

// Pause cancels the tick of a running timer. It is a no-op otherwise.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Running {
		return
	}
	t.cancelLocked()
	t.state = Paused
}

// Reset cancels any tick and restores the configured duration.
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	t.rewindLocked()
	t.state = Idle
}

// SetDuration changes the configured duration. An idle or completed timer
// shows the new duration immediately without starting; a running or paused
// timer keeps its run but never displays more than the new duration.
func (t *Timer) SetDuration(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.opts.Duration = d
	t.initial = seconds(d)
	switch t.state {
	case Idle, Completed:
		t.rewindLocked()
		t.state = Idle
	default:
		if t.remaining > t.initial {
			t.remaining = t.initial
		}
	}
}

// Finish ends a stopwatch run and fires OnComplete. It has no effect on a
// countdown, which completes on its own.
func (t *Timer) Finish() {
	t.mu.Lock()
	if t.opts.Mode != Stopwatch || (t.state != Running && t.state != Paused) {
		t.mu.Unlock()
		return
	}
	t.cancelLocked()
	t.state = Completed
	snap, fire := t.completeLocked()
	t.mu.Unlock()

	if fire {
		t.opts.OnComplete(snap)
	}
}

// Snapshot returns the current timer values.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Close stops the tick goroutine and waits for it to exit, unless it is
// called while a tick callback is running.
func (t *Timer) Close() {
	t.mu.Lock()
	done := t.done
	if t.calling {
		done = nil
	}
	t.cancelLocked()
	if t.state == Running {
		t.state = Paused
	}
	t.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (t *Timer) loop(tk Ticker, gen uint64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			t.tick(gen)
		}
	}
}

// tick advances the timer by one unit. Ticks from a cancelled run are ignored.
func (t *Timer) tick(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != Running {
		t.mu.Unlock()
		return
	}

	var (
		value    int
		snap     Snapshot
		complete bool
	)
	if t.opts.Mode == Stopwatch {
		t.elapsed++
		value = t.elapsed
	} else if t.remaining <= 1 {
		t.remaining = 0
		t.elapsed = t.initial
		t.cancelLocked()
		t.state = Completed
		snap, complete = t.completeLocked()
	} else {
		t.remaining--
		t.elapsed = t.initial - t.remaining
		value = t.remaining
	}
	t.calling = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.calling = false
		t.mu.Unlock()
	}()
	if t.opts.OnTick != nil {
		t.opts.OnTick(value)
	}
	if complete {
		t.opts.OnComplete(snap)
	}
}

func (t *Timer) completeLocked() (Snapshot, bool) {
	if t.fired || t.opts.OnComplete == nil {
		t.fired = true
		return Snapshot{}, false
	}
	t.fired = true
	return t.snapshotLocked(), true
}

func (t *Timer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}

func (t *Timer) rewindLocked() {
	t.remaining = t.initial
	t.elapsed = 0
	t.fired = false
}

func (t *Timer) snapshotLocked() Snapshot {
	return Snapshot{
		State:     t.state,
		Mode:      t.opts.Mode,
		Duration:  t.initial,
		Remaining: t.remaining,
		Elapsed:   t.elapsed,
	}
}

// seconds truncates d to whole seconds, treating invalid durations as zero.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}
