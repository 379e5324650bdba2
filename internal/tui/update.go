package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/logger"
	"github.com/julianstephens/tempo/internal/timer"
)

const (
	adjustStep = 5
	minMinutes = 5
	maxMinutes = 240
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateReview {
		return m.updateReview(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-8, 60)
		m.help.Width = msg.Width
		return m, nil

	case timerMsg:
		cmds := []tea.Cmd{waitForTimer(m.events)}
		if msg.gen != m.gen || !msg.complete {
			return m, tea.Batch(cmds...)
		}
		cmds = append(cmds, m.startReview(msg.snap))
		return m, tea.Batch(cmds...)

	case recordedMsg:
		return m.handleRecorded(msg), nil

	case syncedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.sync = msg.status
			m.errMsg = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		m.state = (m.state + 1) % ViewState(len(tabNames))
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.Sync):
		return m, m.syncNow()
	}

	switch m.state {
	case StateTasks:
		return m.handleTaskKey(msg), nil
	case StateHabits:
		return m.handleHabitKey(msg), nil
	}
	return m.handleFocusKey(msg)
}

func (m Model) handleFocusKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.timer.Snapshot()

	switch {
	case key.Matches(msg, m.keys.Toggle):
		if snap.State == timer.Running {
			m.timer.Pause()
			return m, nil
		}
		if snap.State != timer.Paused {
			m.started = m.now()
		}
		m.timer.Start()
		m.message = ""

	case key.Matches(msg, m.keys.Reset):
		m.timer.Reset()
		m.started = time.Time{}

	case key.Matches(msg, m.keys.Finish):
		if snap.State != timer.Running && snap.State != timer.Paused {
			return m, nil
		}
		if snap.Mode == timer.Stopwatch {
			// completion arrives through the event channel
			m.timer.Finish()
			return m, nil
		}
		m.timer.Reset()
		return m, m.startReview(snap)

	case key.Matches(msg, m.keys.Mode):
		if snap.State == timer.Running {
			m.message = "Pause or reset the timer before switching mode"
			return m, nil
		}
		m.setMode(nextMode(m.mode))

	case key.Matches(msg, m.keys.Longer), key.Matches(msg, m.keys.Shorter):
		if m.mode == constants.ModeAmbient {
			return m, nil
		}
		delta := adjustStep
		if key.Matches(msg, m.keys.Shorter) {
			delta = -adjustStep
		}
		m.minutes = max(minMinutes, min(maxMinutes, m.minutes+delta))
		m.timer.SetDuration(time.Duration(m.minutes) * time.Minute)
	}
	return m, nil
}

func (m Model) handleTaskKey(msg tea.KeyMsg) Model {
	tasks := m.store.Tasks(false)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Toggle):
		if m.cursor >= len(tasks) {
			return m
		}
		t := tasks[m.cursor]
		var err error
		if t.IsActive() {
			_, err = m.store.StopTask(t.ID)
		} else {
			_, err = m.store.StartTask(t.ID)
		}
		m.setErr(err)
	}
	return m
}

func (m Model) handleHabitKey(msg tea.KeyMsg) Model {
	habits := m.store.Habits()
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(habits)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Toggle):
		if m.cursor >= len(habits) {
			return m
		}
		_, _, err := m.store.ToggleHabit(habits[m.cursor].ID, m.store.Today())
		m.setErr(err)
	}
	return m
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
}

// startReview opens the rating form for a finished run
func (m *Model) startReview(snap timer.Snapshot) tea.Cmd {
	if snap.Elapsed < 60 {
		m.message = "Session shorter than a minute, not recorded"
		return nil
	}
	started := m.started
	if started.IsZero() {
		started = m.now().Add(-time.Duration(snap.Elapsed) * time.Second)
	}
	m.review = &reviewForm{snap: snap, mode: m.mode, started: started}
	m.form = NewReviewForm(m.review)
	m.state = StateReview
	return m.form.Init()
}

func (m Model) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if _, ok := msg.(timerMsg); ok {
		// keep listening while the form is open
		return m, waitForTimer(m.events)
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		cmds = append(cmds, m.finishReview(true)...)
	case huh.StateAborted:
		cmds = append(cmds, m.finishReview(false)...)
	}
	return m, tea.Batch(cmds...)
}

// finishReview records the reviewed session, with rating and tags only when
// the form was submitted.
func (m *Model) finishReview(submitted bool) []tea.Cmd {
	r := m.review
	c := app.Completion{
		Mode:      r.mode,
		Minutes:   r.snap.Elapsed / 60,
		StartedAt: r.started,
	}
	if submitted {
		if r.rating > 0 {
			rating := r.rating
			c.Rating = &rating
		}
		c.Tags = splitTags(r.tags)
	}

	m.state = StateFocus
	m.form = nil
	m.review = nil
	m.started = time.Time{}
	m.timer.Reset()

	cmds := []tea.Cmd{recordSession(m.store, c)}
	if m.notifier != nil && m.store.Preferences().Notifications {
		cmds = append(cmds, notify(m.notifier, c))
	}
	return cmds
}

func (m Model) handleRecorded(msg recordedMsg) Model {
	if msg.err != nil {
		m.errMsg = msg.err.Error()
		return m
	}
	m.errMsg = ""
	if msg.res.Skipped {
		m.message = "Duplicate completion ignored"
		return m
	}
	res := msg.res
	m.lastRun = &res
	m.message = fmt.Sprintf("Recorded %d min of %s", res.Session.DurationMinutes, res.Session.Mode)
	if st, err := m.store.SyncStatus(); err == nil {
		m.sync = st
	}
	return m
}

func recordSession(store Store, c app.Completion) tea.Cmd {
	return func() tea.Msg {
		res, err := store.CompleteSession(c)
		return recordedMsg{res: res, err: err}
	}
}

func notify(n Notifier, c app.Completion) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		text := fmt.Sprintf("%d minute %s session complete", c.Minutes, c.Mode)
		if err := n.Notify(ctx, "Session complete", text); err != nil {
			logger.Debug("Notification not delivered", "error", err)
		}
		return nil
	}
}

func (m Model) syncNow() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), constants.RemoteRequestTimeout)
		defer cancel()
		if _, err := store.Drain(ctx); err != nil &&
			!errors.Is(err, app.ErrNoRemote) && !errors.Is(err, app.ErrNotSignedIn) {
			return syncedMsg{err: err}
		}
		st, err := store.SyncStatus()
		return syncedMsg{status: st, err: err}
	}
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
