// Package gamification derives focus statistics, streaks and experience from
// recorded sessions.
package gamification

import (
	"math"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

// XP per level.
const XPPerLevel = 100

// Award rule names.
const (
	RuleFocusMinutes = "focus_minutes"
	RuleFirstSession = "first_session_of_day"
	RuleDeepWork     = "deep_work_bonus"
	RuleFlow         = "flow_bonus"
	RuleManual       = "manual"
)

// maxAchievements bounds the award log kept on the stats singleton.
const maxAchievements = 50

type milestone struct {
	rule      string
	threshold int
	xp        int
}

var streakMilestones = []milestone{
	{"streak_7", 7, 50},
	{"streak_14", 14, 100},
	{"streak_30", 30, 250},
}

// goal thresholds are percentages of the daily goal
var goalMilestones = []milestone{
	{"goal_50", 50, 10},
	{"goal_75", 75, 15},
	{"goal_100", 100, 25},
	{"goal_125", 125, 15},
	{"goal_150", 150, 20},
}

var modeBonus = map[constants.SessionMode]milestone{
	constants.ModeDeepWork: {rule: RuleDeepWork, xp: 20},
	constants.ModeFlow:     {rule: RuleFlow, xp: 15},
}

// State is the snapshot the reducer operates on.
type State struct {
	Sessions []models.Session
	Stats    models.FocusStats
}

// Record appends session to the history and derives the new statistics,
// streak and experience in one step. prev is not modified.
func Record(prev State, session models.Session, now time.Time, loc *time.Location, goal int) (State, []models.Award) {
	today := utils.DateIn(now, loc)
	if session.Date == "" {
		session.Date = today
	}
	if session.DurationMinutes < 0 {
		session.DurationMinutes = 0
	}

	next := State{
		Sessions: make([]models.Session, 0, len(prev.Sessions)+1),
		Stats:    prev.Stats,
	}
	next.Sessions = append(next.Sessions, prev.Sessions...)
	next.Sessions = append(next.Sessions, session)
	next.Stats.Achievements = append([]models.Award(nil), prev.Stats.Achievements...)

	// first-session and goal awards count against the session's own day
	day := session.Date
	before, hadSession := minutesOn(prev.Sessions, day)
	after := before + session.DurationMinutes
	todayMinutes, _ := minutesOn(next.Sessions, today)

	st := &next.Stats
	st.TodayDate = today
	st.TodayMinutes = todayMinutes
	st.DailyGoalMinutes = goal
	st.TodayScore = Score(todayMinutes, goal)
	st.TotalFocusMinutes += session.DurationMinutes
	st.TotalSessions++

	var awards []models.Award
	grant := func(rule string, xp int) {
		if xp <= 0 {
			return
		}
		awards = append(awards, models.Award{Rule: rule, XP: xp, Date: today})
	}

	grant(RuleFocusMinutes, session.DurationMinutes)
	if !hadSession {
		grant(RuleFirstSession, 10)
	}

	prevStreak := st.Streak.Current
	st.Streak = advanceStreak(st.Streak, day, next.Sessions)
	for _, m := range streakMilestones {
		if prevStreak < m.threshold && st.Streak.Current >= m.threshold {
			grant(m.rule, m.xp)
		}
	}

	if goal > 0 {
		beforePct := before * 100 / goal
		afterPct := after * 100 / goal
		for _, m := range goalMilestones {
			if beforePct < m.threshold && afterPct >= m.threshold {
				grant(m.rule, m.xp)
			}
		}
	}

	if b, ok := modeBonus[session.Mode]; ok {
		grant(b.rule, b.xp)
	}

	for _, a := range awards {
		st.XP.Total += a.XP
		if a.Rule != RuleFocusMinutes {
			st.Achievements = append(st.Achievements, a)
		}
	}
	st.XP.Level = Level(st.XP.Total)
	st.Achievements = trimAchievements(st.Achievements)

	return next, awards
}

// CheckDayBoundary breaks the streak when the last active day is neither
// today nor yesterday and rolls the today aggregate over to the current day.
func CheckDayBoundary(st State, now time.Time, loc *time.Location) State {
	today := utils.DateIn(now, loc)
	yesterday := utils.YesterdayIn(now, loc)

	last := st.Stats.Streak.LastActiveDate
	if last != today && last != yesterday {
		st.Stats.Streak.Current = 0
	}
	if st.Stats.TodayDate != today {
		minutes, _ := minutesOn(st.Sessions, today)
		st.Stats.TodayDate = today
		st.Stats.TodayMinutes = minutes
		st.Stats.TodayScore = Score(minutes, st.Stats.DailyGoalMinutes)
	}
	return st
}

// AwardXP grants xp outside of session recording.
func AwardXP(st State, xp int, rule string, now time.Time, loc *time.Location) (State, models.Award) {
	if rule == "" {
		rule = RuleManual
	}
	award := models.Award{Rule: rule, XP: xp, Date: utils.DateIn(now, loc)}
	st.Stats.XP.Total += xp
	if st.Stats.XP.Total < 0 {
		st.Stats.XP.Total = 0
	}
	st.Stats.XP.Level = Level(st.Stats.XP.Total)
	st.Stats.Achievements = trimAchievements(append(append([]models.Award(nil), st.Stats.Achievements...), award))
	return st, award
}

// Level is floor(xp/100)+1.
func Level(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Score is the share of the daily goal reached, as a percentage in [0,100].
func Score(minutes, goal int) int {
	if goal <= 0 {
		return 0
	}
	pct := int(math.Round(float64(minutes) / float64(goal) * 100))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}

// advanceStreak folds an active day into s. LastActiveDate never moves
// backwards; a day before it only counts when it joins the run ending there.
func advanceStreak(s models.Streak, day string, sessions []models.Session) models.Streak {
	last := s.LastActiveDate
	switch {
	case last == "" || day > last:
		if last != "" && utils.PrevDate(day) == last {
			s.Current++
		} else {
			s.Current = 1
		}
		s.LastActiveDate = day
	case day == last:
		if s.Current == 0 {
			s.Current = 1
		}
	default:
		if run := runEndingOn(sessions, last); run > s.Current {
			s.Current = run
		}
	}
	if s.Current > s.Best {
		s.Best = s.Current
	}
	return s
}

// runEndingOn counts the consecutive active days in sessions ending on day.
func runEndingOn(sessions []models.Session, day string) int {
	active := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		active[s.Date] = true
	}
	n := 0
	for d := day; active[d]; d = utils.PrevDate(d) {
		n++
	}
	return n
}

func minutesOn(sessions []models.Session, day string) (int, bool) {
	total, found := 0, false
	for _, s := range sessions {
		if s.Date == day {
			total += s.DurationMinutes
			found = true
		}
	}
	return total, found
}

func trimAchievements(a []models.Award) []models.Award {
	if len(a) > maxAchievements {
		return a[len(a)-maxAchievements:]
	}
	return a
}
