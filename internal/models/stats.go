package models

// Streak tracks consecutive active days
type Streak struct {
	Current        int    `json:"current"`
	Best           int    `json:"best"`
	LastActiveDate string `json:"last_active_date,omitempty"` // YYYY-MM-DD format
}

// Experience is the accumulated XP and the level derived from it
type Experience struct {
	Total int `json:"total"`
	Level int `json:"level"`
}

// Award is a single XP grant produced by an achievement rule
type Award struct {
	Rule string `json:"rule"`
	XP   int    `json:"xp"`
	Date string `json:"date"` // YYYY-MM-DD format
}

// FocusStats is the derived gamification singleton
type FocusStats struct {
	TodayDate         string     `json:"today_date"`
	TodayMinutes      int        `json:"today_minutes"`
	TodayScore        int        `json:"today_score"`
	DailyGoalMinutes  int        `json:"daily_goal_minutes"`
	TotalFocusMinutes int        `json:"total_focus_minutes"`
	TotalSessions     int        `json:"total_sessions"`
	Streak            Streak     `json:"streak"`
	XP                Experience `json:"xp"`
	Achievements      []Award    `json:"achievements,omitempty"`
}
