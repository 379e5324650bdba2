package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/syncer"
	"github.com/julianstephens/tempo/internal/timer"
)

// Store is the part of the application store the focus screen drives
type Store interface {
	Preferences() models.Preferences
	Stats() models.FocusStats
	Today() string
	CompleteSession(c app.Completion) (app.RecordResult, error)
	Habits() []models.Habit
	ToggleHabit(ref, date string) (models.Habit, bool, error)
	Tasks(includeDeleted bool) []models.Task
	StartTask(ref string) (models.Task, error)
	StopTask(ref string) (models.Task, error)
	SyncStatus() (app.SyncStatus, error)
	Drain(ctx context.Context) (syncer.DrainResult, error)
}

// Notifier delivers the end-of-session notification
type Notifier interface {
	Notify(ctx context.Context, title, text string) error
}

type ViewState int

const (
	StateFocus ViewState = iota
	StateTasks
	StateHabits
	StateReview
)

var tabNames = []string{"Focus", "Tasks", "Habits"}

// timer callbacks are bridged into the program through this channel
type timerEvent struct {
	gen      int
	complete bool
	snap     timer.Snapshot
}

type timerMsg timerEvent

type recordedMsg struct {
	res app.RecordResult
	err error
}

type syncedMsg struct {
	status app.SyncStatus
	err    error
}

// reviewForm holds the values bound to the post-session form
type reviewForm struct {
	rating  int
	tags    string
	snap    timer.Snapshot
	mode    constants.SessionMode
	started time.Time
}

// Options configures NewModel
type Options struct {
	Mode     constants.SessionMode
	Notifier Notifier // nil disables notifications
	Now      func() time.Time

	// NewTicker overrides the timer's tick source
	NewTicker timer.TickerFunc
}

type Model struct {
	store    Store
	notifier Notifier
	now      func() time.Time
	newTick  timer.TickerFunc

	state    ViewState
	keys     KeyMap
	help     help.Model
	progress progress.Model

	mode    constants.SessionMode
	minutes int
	timer   *timer.Timer
	gen     int
	events  chan timerEvent
	started time.Time

	form   *huh.Form
	review *reviewForm

	cursor   int
	lastRun  *app.RecordResult
	sync     app.SyncStatus
	message  string
	errMsg   string
	width    int
	quitting bool
}

func NewModel(store Store, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	mode := opts.Mode
	if mode == "" {
		mode = constants.ModePomodoro
	}

	m := Model{
		store:    store,
		notifier: opts.Notifier,
		now:      opts.Now,
		newTick:  opts.NewTicker,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
		events:   make(chan timerEvent, 64),
	}
	m.setMode(mode)
	if st, err := store.SyncStatus(); err == nil {
		m.sync = st
	}
	return m
}

// setMode replaces the running timer with a fresh one for mode
func (m *Model) setMode(mode constants.SessionMode) {
	if m.timer != nil {
		m.timer.Close()
	}
	m.mode = mode
	m.minutes = m.store.Preferences().DurationFor(mode)
	m.gen++
	m.timer = m.newTimer()
	m.started = time.Time{}
}

func (m *Model) newTimer() *timer.Timer {
	gen, events := m.gen, m.events
	send := func(ev timerEvent) {
		select {
		case events <- ev:
		default:
		}
	}
	// ticks only trigger a redraw, so one queued tick is enough
	tick := func(ev timerEvent) {
		if len(events) == 0 {
			send(ev)
		}
	}

	opts := timer.Options{
		Mode:      timer.Countdown,
		Duration:  time.Duration(m.minutes) * time.Minute,
		NewTicker: m.newTick,
		OnTick: func(int) {
			tick(timerEvent{gen: gen})
		},
		OnComplete: func(s timer.Snapshot) {
			send(timerEvent{gen: gen, complete: true, snap: s})
		},
	}
	if m.mode == constants.ModeAmbient {
		opts.Mode = timer.Stopwatch
		opts.Duration = 0
	}
	return timer.New(opts)
}

func waitForTimer(events <-chan timerEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return timerMsg(ev)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForTimer(m.events)
}

// Close stops the timer goroutine. The model must not be used afterwards.
func (m Model) Close() {
	if m.timer != nil {
		m.timer.Close()
	}
	close(m.events)
}

func nextMode(mode constants.SessionMode) constants.SessionMode {
	modes := constants.Modes
	for i, md := range modes {
		if md == mode {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}
