package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/syncer"
	"github.com/julianstephens/tempo/internal/timer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	prefs       models.Preferences
	completions []app.Completion
	habits      []models.Habit
	tasks       []models.Task
	toggled     []string
	started     []string
	stopped     []string
}

func newFakeStore() *fakeStore {
	prefs := models.DefaultPreferences()
	prefs.Notifications = true
	return &fakeStore{prefs: prefs}
}

func (f *fakeStore) Preferences() models.Preferences { return f.prefs }
func (f *fakeStore) Stats() models.FocusStats        { return models.FocusStats{DailyGoalMinutes: 240} }
func (f *fakeStore) Today() string                   { return "2026-03-31" }

func (f *fakeStore) CompleteSession(c app.Completion) (app.RecordResult, error) {
	f.completions = append(f.completions, c)
	return app.RecordResult{
		Session: models.Session{Mode: c.Mode, DurationMinutes: c.Minutes},
		Awards:  []models.Award{{Rule: "focus_minutes", XP: c.Minutes}},
	}, nil
}

func (f *fakeStore) Habits() []models.Habit { return f.habits }

func (f *fakeStore) ToggleHabit(ref, date string) (models.Habit, bool, error) {
	f.toggled = append(f.toggled, ref+"@"+date)
	return models.Habit{ID: ref}, true, nil
}

func (f *fakeStore) Tasks(bool) []models.Task { return f.tasks }

func (f *fakeStore) StartTask(ref string) (models.Task, error) {
	f.started = append(f.started, ref)
	return models.Task{ID: ref}, nil
}

func (f *fakeStore) StopTask(ref string) (models.Task, error) {
	f.stopped = append(f.stopped, ref)
	return models.Task{ID: ref}, nil
}

func (f *fakeStore) SyncStatus() (app.SyncStatus, error) {
	return app.SyncStatus{Status: syncer.Status{State: constants.SyncIdle}}, nil
}

func (f *fakeStore) Drain(context.Context) (syncer.DrainResult, error) {
	return syncer.DrainResult{}, app.ErrNoRemote
}

type fakeNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *fakeNotifier) Notify(_ context.Context, _, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type manualTicker struct{ ch chan time.Time }

func (m manualTicker) C() <-chan time.Time { return m.ch }
func (m manualTicker) Stop()               {}

// tickers hands out one shared manual tick channel
type tickers struct{ ch chan time.Time }

func (tk *tickers) New(time.Duration) timer.Ticker { return manualTicker{ch: tk.ch} }

func (tk *tickers) tick(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case tk.ch <- now:
		case <-time.After(time.Second):
			t.Fatalf("tick %d was not consumed", i)
		}
	}
}

type harness struct {
	m     Model
	store *fakeStore
	note  *fakeNotifier
	tick  *tickers
}

func newHarness(t *testing.T, mode constants.SessionMode) *harness {
	t.Helper()
	h := &harness{
		store: newFakeStore(),
		note:  &fakeNotifier{},
		tick:  &tickers{ch: make(chan time.Time)},
	}
	h.m = NewModel(h.store, Options{
		Mode:      mode,
		Notifier:  h.note,
		Now:       func() time.Time { return now },
		NewTicker: h.tick.New,
	})
	t.Cleanup(func() { h.m.Close() })
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) press(keys string) tea.Cmd {
	var msg tea.KeyMsg
	switch keys {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	return h.send(msg)
}

// waitElapsed blocks until the timer has processed n ticks
func (h *harness) waitElapsed(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.m.timer.Snapshot().Elapsed < n {
		if time.Now().After(deadline) {
			t.Fatalf("elapsed = %d, want %d", h.m.timer.Snapshot().Elapsed, n)
		}
		time.Sleep(time.Millisecond)
	}
}

// completion waits for the next completion event from the timer
func (h *harness) completion(t *testing.T) timerMsg {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-h.m.events:
			if ev.complete {
				return timerMsg(ev)
			}
		case <-deadline:
			t.Fatal("no completion event")
			return timerMsg{}
		}
	}
}

func TestNewModelUsesPreferredDuration(t *testing.T) {
	h := newHarness(t, "")
	if h.m.mode != constants.ModePomodoro {
		t.Errorf("mode = %s, want pomodoro", h.m.mode)
	}
	snap := h.m.timer.Snapshot()
	want := constants.DefaultPomodoroMin * 60
	if snap.Duration != want || snap.State != timer.Idle {
		t.Errorf("snapshot = %+v, want idle %ds", snap, want)
	}
}

func TestModeCycle(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)

	var seen []constants.SessionMode
	for range constants.Modes {
		h.press("m")
		seen = append(seen, h.m.mode)
	}
	want := []constants.SessionMode{
		constants.ModeDeepWork, constants.ModeFlow, constants.ModeAmbient,
		constants.ModeCustom, constants.ModePomodoro,
	}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("mode cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestModeChangeRefusedWhileRunning(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	h.press(" ")
	h.press("m")
	if h.m.mode != constants.ModePomodoro {
		t.Errorf("mode changed to %s while running", h.m.mode)
	}
	if h.m.message == "" {
		t.Error("expected a hint about pausing first")
	}
}

func TestAdjustDuration(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	base := h.m.minutes

	h.press("+")
	if h.m.minutes != base+adjustStep {
		t.Errorf("minutes = %d, want %d", h.m.minutes, base+adjustStep)
	}
	if got := h.m.timer.Snapshot().Duration; got != (base+adjustStep)*60 {
		t.Errorf("timer duration = %d", got)
	}

	for i := 0; i < 100; i++ {
		h.press("-")
	}
	if h.m.minutes != minMinutes {
		t.Errorf("minutes = %d, want clamp at %d", h.m.minutes, minMinutes)
	}
}

func TestAmbientIgnoresAdjust(t *testing.T) {
	h := newHarness(t, constants.ModeAmbient)
	h.press("+")
	if snap := h.m.timer.Snapshot(); snap.Mode != timer.Stopwatch || snap.Duration != 0 {
		t.Errorf("ambient snapshot = %+v", snap)
	}
}

func TestStartPauseResume(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)

	h.press(" ")
	h.tick.tick(t, 3)
	h.waitElapsed(t, 3)
	h.press(" ")
	snap := h.m.timer.Snapshot()
	if snap.State != timer.Paused || snap.Elapsed != 3 {
		t.Errorf("after pause = %+v", snap)
	}

	h.press(" ")
	if h.m.timer.Snapshot().State != timer.Running {
		t.Error("timer did not resume")
	}
	if !h.m.started.Equal(now) {
		t.Errorf("started = %v, want %v", h.m.started, now)
	}

	h.press("r")
	if snap := h.m.timer.Snapshot(); snap.State != timer.Idle || snap.Elapsed != 0 {
		t.Errorf("after reset = %+v", snap)
	}
}

func TestShortSessionNotRecorded(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	h.press(" ")
	h.tick.tick(t, 10)
	h.press("f")

	if h.m.state != StateFocus {
		t.Fatalf("state = %v, want focus", h.m.state)
	}
	if !strings.Contains(h.m.message, "not recorded") {
		t.Errorf("message = %q", h.m.message)
	}
}

func TestCountdownCompletionOpensReview(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	for h.m.minutes > minMinutes {
		h.press("-")
	}

	h.press(" ")
	h.tick.tick(t, minMinutes*60)
	h.send(h.completion(t))

	if h.m.state != StateReview || h.m.review == nil {
		t.Fatalf("state = %v, want review", h.m.state)
	}
	if h.m.review.snap.Elapsed != minMinutes*60 {
		t.Errorf("reviewed elapsed = %d", h.m.review.snap.Elapsed)
	}
	if !strings.Contains(h.m.View(), "complete") {
		t.Error("review view missing title")
	}
}

func TestStaleCompletionIgnored(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	h.send(timerMsg{gen: h.m.gen - 1, complete: true, snap: timer.Snapshot{Elapsed: 600}})
	if h.m.state != StateFocus {
		t.Errorf("stale completion changed state to %v", h.m.state)
	}
}

func TestAmbientFinishRecordsSession(t *testing.T) {
	h := newHarness(t, constants.ModeAmbient)

	h.press(" ")
	h.tick.tick(t, 125)
	h.waitElapsed(t, 125)
	h.press("f")
	h.send(h.completion(t))
	if h.m.state != StateReview {
		t.Fatalf("state = %v, want review", h.m.state)
	}

	h.m.review.rating = 4
	h.m.review.tags = "Go, deep ,"
	cmds := h.m.finishReview(true)
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want record and notify", len(cmds))
	}
	h.send(cmds[0]())
	cmds[1]()

	if len(h.store.completions) != 1 {
		t.Fatalf("completions = %d", len(h.store.completions))
	}
	c := h.store.completions[0]
	if c.Mode != constants.ModeAmbient || c.Minutes != 2 || c.Rating == nil || *c.Rating != 4 {
		t.Errorf("completion = %+v", c)
	}
	if diff := cmp.Diff([]string{"Go", "deep"}, c.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if !c.StartedAt.Equal(now) {
		t.Errorf("StartedAt = %v", c.StartedAt)
	}

	if h.m.state != StateFocus || h.m.lastRun == nil {
		t.Errorf("state = %v, lastRun = %v", h.m.state, h.m.lastRun)
	}
	if !strings.Contains(h.m.message, "Recorded 2 min") {
		t.Errorf("message = %q", h.m.message)
	}
	if len(h.note.texts) != 1 || !strings.Contains(h.note.texts[0], "ambient") {
		t.Errorf("notifications = %v", h.note.texts)
	}
}

func TestAbortedReviewDropsRatingAndTags(t *testing.T) {
	h := newHarness(t, constants.ModeAmbient)
	h.store.prefs.Notifications = false

	h.press(" ")
	h.tick.tick(t, 60)
	h.waitElapsed(t, 60)
	h.press("f")
	h.send(h.completion(t))

	h.m.review.rating = 5
	h.m.review.tags = "ignored"
	cmds := h.m.finishReview(false)
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want record only", len(cmds))
	}
	h.send(cmds[0]())

	c := h.store.completions[0]
	if c.Rating != nil || len(c.Tags) != 0 || c.Minutes != 1 {
		t.Errorf("completion = %+v", c)
	}
}

func TestTaskAndHabitTabs(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	active := now.UnixMilli()
	h.store.tasks = []models.Task{
		{ID: "t1", Text: "write"},
		{ID: "t2", Text: "review", LastActiveStart: &active},
	}
	h.store.habits = []models.Habit{{ID: "h1", Name: "Read"}}

	h.press("tab")
	if h.m.state != StateTasks {
		t.Fatalf("state = %v, want tasks", h.m.state)
	}
	h.press("enter")
	h.press("j")
	h.press("enter")
	if diff := cmp.Diff([]string{"t1"}, h.store.started); diff != "" {
		t.Errorf("started mismatch:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"t2"}, h.store.stopped); diff != "" {
		t.Errorf("stopped mismatch:\n%s", diff)
	}

	h.press("tab")
	h.press("x")
	if diff := cmp.Diff([]string{"h1@2026-03-31"}, h.store.toggled); diff != "" {
		t.Errorf("toggled mismatch:\n%s", diff)
	}
	if !strings.Contains(h.m.View(), "Read") {
		t.Error("habits view missing habit")
	}

	h.press("tab")
	if h.m.state != StateFocus {
		t.Errorf("tab did not wrap to focus, got %v", h.m.state)
	}
}

func TestSyncWithoutRemote(t *testing.T) {
	h := newHarness(t, constants.ModePomodoro)
	cmd := h.press("s")
	if cmd == nil {
		t.Fatal("sync key returned no command")
	}
	h.send(cmd())
	if h.m.errMsg != "" {
		t.Errorf("errMsg = %q, want none when offline", h.m.errMsg)
	}
	if !strings.Contains(h.m.View(), "offline") {
		t.Error("view does not show offline status")
	}
}

func TestSplitTags(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b c"}, splitTags(" a,, b c ,")); diff != "" {
		t.Errorf("splitTags mismatch:\n%s", diff)
	}
	if got := splitTags(""); got != nil {
		t.Errorf("splitTags(\"\") = %v", got)
	}
}
