package constants

const (
	// Preference defaults
	DefaultPomodoroMin      = 25
	DefaultDeepWorkMin      = 90
	DefaultFlowMin          = 50
	DefaultCustomMin        = 30
	DefaultShortBreakMin    = 5
	DefaultLongBreakMin     = 15
	DefaultDailyGoalMinutes = 240
	DefaultTimezone         = "Local" // Use system local timezone by default
	DefaultWallpaper        = "none"
	DefaultClockFont        = "mono"

	// Preference keys accepted by `tempo prefs set`
	PrefWallpaper        = "wallpaper"
	PrefClockFont        = "clock_font"
	PrefPomodoroMin      = "pomodoro_min"
	PrefDeepWorkMin      = "deep_work_min"
	PrefFlowMin          = "flow_min"
	PrefCustomMin        = "custom_min"
	PrefShortBreakMin    = "short_break_min"
	PrefLongBreakMin     = "long_break_min"
	PrefDailyGoalMinutes = "daily_goal_minutes"
	PrefTimezone         = "timezone"
	PrefNotifications    = "notifications"
)
