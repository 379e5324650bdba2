package models

import "github.com/julianstephens/tempo/internal/constants"

// TimerDurations holds the default length in minutes of every preset
type TimerDurations struct {
	Pomodoro   int `json:"pomodoro"`
	DeepWork   int `json:"deep_work"`
	Flow       int `json:"flow"`
	Custom     int `json:"custom"`
	ShortBreak int `json:"short_break"`
	LongBreak  int `json:"long_break"`
}

// Preferences is the user's synced singleton document
type Preferences struct {
	Wallpaper        string          `json:"wallpaper"`
	ClockFont        string          `json:"clock_font"`
	Durations        TimerDurations  `json:"durations"`
	DailyGoalMinutes int             `json:"daily_goal_minutes"`
	Timezone         string          `json:"timezone"`
	Notifications    bool            `json:"notifications"`
	Features         map[string]bool `json:"features,omitempty"`
	Quotes           []string        `json:"quotes,omitempty"`
	UpdatedAt        string          `json:"updated_at,omitempty"` // RFC3339 timestamp
}

// DurationFor returns the configured length of mode in minutes.
// Ambient sessions count up and have no fixed length.
func (p Preferences) DurationFor(mode constants.SessionMode) int {
	switch mode {
	case constants.ModePomodoro:
		return p.Durations.Pomodoro
	case constants.ModeDeepWork:
		return p.Durations.DeepWork
	case constants.ModeFlow:
		return p.Durations.Flow
	case constants.ModeCustom:
		return p.Durations.Custom
	default:
		return 0
	}
}

// FeatureEnabled reports whether a named feature flag is on
func (p Preferences) FeatureEnabled(name string) bool {
	return p.Features[name]
}
