package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/timer"
	"github.com/julianstephens/tempo/internal/utils"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateFocus:
		content = m.viewFocus()
	case StateTasks:
		content = m.viewTasks()
	case StateHabits:
		content = m.viewHabits()
	case StateReview:
		content = m.viewReview()
	}

	var footer []string
	if m.errMsg != "" {
		footer = append(footer, dangerStyle.Render("Error: "+m.errMsg))
	} else if m.message != "" {
		footer = append(footer, warningStyle.Render(m.message))
	}
	footer = append(footer, m.viewSync(), m.help.View(m.keys))

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		"",
		content,
		"",
		strings.Join(footer, "\n"),
	))
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, name := range tabNames {
		if ViewState(i) == m.state || (m.state == StateReview && i == int(StateFocus)) {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewFocus() string {
	snap := m.timer.Snapshot()

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", statLabelStyle.Render("mode"), statValueStyle.Render(string(m.mode)))

	value := snap.Remaining
	if snap.Mode == timer.Stopwatch {
		value = snap.Elapsed
	}
	b.WriteString(clockStyle.Render(utils.FormatClock(value)))
	b.WriteString("\n")
	if snap.Mode == timer.Countdown && snap.Duration > 0 {
		b.WriteString(m.progress.ViewAs(float64(snap.Elapsed) / float64(snap.Duration)))
		b.WriteString("\n")
	}
	b.WriteString(stateStyle.Render(snap.State.String()))
	b.WriteString("\n\n")
	b.WriteString(m.viewStats())
	return b.String()
}

func (m Model) viewStats() string {
	st := m.store.Stats()
	rows := []string{
		stat("today", fmt.Sprintf("%d/%d min (%d%%)", st.TodayMinutes, st.DailyGoalMinutes, st.TodayScore)),
		stat("streak", fmt.Sprintf("%d days (best %d)", st.Streak.Current, st.Streak.Best)),
		stat("level", fmt.Sprintf("%d (%d xp)", st.XP.Level, st.XP.Total)),
	}
	if m.lastRun != nil && len(m.lastRun.Awards) > 0 {
		var awards []string
		for _, a := range m.lastRun.Awards {
			awards = append(awards, fmt.Sprintf("+%d %s", a.XP, a.Rule))
		}
		rows = append(rows, awardStyle.Render(strings.Join(awards, "  ")))
	}
	return strings.Join(rows, "\n")
}

func stat(label, value string) string {
	return fmt.Sprintf("%-8s %s", statLabelStyle.Render(label), statValueStyle.Render(value))
}

func (m Model) viewTasks() string {
	tasks := m.store.Tasks(false)
	if len(tasks) == 0 {
		return pendingStyle.Render("No tasks. Add one with 'tempo task add'.")
	}
	now := m.now()
	var b strings.Builder
	for i, t := range tasks {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s %s", t.Text, pendingStyle.Render(utils.FormatClock(int(t.ElapsedAt(now).Seconds()))))
		switch {
		case t.Completed:
			line = doneStyle.Render("✓ " + line)
		case t.IsActive():
			line = awardStyle.Render("▶ ") + line
		default:
			line = "  " + line
		}
		b.WriteString(marker + line + "\n")
	}
	return b.String()
}

func (m Model) viewHabits() string {
	habits := m.store.Habits()
	if len(habits) == 0 {
		return pendingStyle.Render("No habits. Add one with 'tempo habit add'.")
	}
	today := m.store.Today()
	var b strings.Builder
	for i, h := range habits {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		check := pendingStyle.Render("[ ]")
		if h.IsDoneOn(today) {
			check = doneStyle.Render("[x]")
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, check, h.Name)
	}
	return b.String()
}

func (m Model) viewReview() string {
	if m.form == nil {
		return ""
	}
	title := statValueStyle.Render(fmt.Sprintf("%d min of %s complete", m.review.snap.Elapsed/60, m.review.mode))
	return lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View())
}

func (m Model) viewSync() string {
	if !m.sync.Remote {
		return pendingStyle.Render("offline")
	}
	if m.sync.User == "" {
		return pendingStyle.Render("signed out")
	}
	label := fmt.Sprintf("%s · %s", m.sync.User, m.sync.State)
	if m.sync.Pending > 0 {
		label += fmt.Sprintf(" · %d pending", m.sync.Pending)
	}
	if m.sync.State == constants.SyncError {
		return dangerStyle.Render(label)
	}
	return pendingStyle.Render(label)
}
