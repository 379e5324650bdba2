package models

import (
	"fmt"
	"strconv"

	"github.com/julianstephens/tempo/internal/constants"
)

// DefaultPreferences returns the preferences of a fresh install.
func DefaultPreferences() Preferences {
	p := Preferences{Notifications: true}
	ApplyDefaultPreferences(&p)
	return p
}

// ApplyDefaultPreferences applies default values to missing preferences.
func ApplyDefaultPreferences(p *Preferences) {
	if p.Wallpaper == "" {
		p.Wallpaper = constants.DefaultWallpaper
	}
	if p.ClockFont == "" {
		p.ClockFont = constants.DefaultClockFont
	}
	if p.Durations.Pomodoro <= 0 {
		p.Durations.Pomodoro = constants.DefaultPomodoroMin
	}
	if p.Durations.DeepWork <= 0 {
		p.Durations.DeepWork = constants.DefaultDeepWorkMin
	}
	if p.Durations.Flow <= 0 {
		p.Durations.Flow = constants.DefaultFlowMin
	}
	if p.Durations.Custom <= 0 {
		p.Durations.Custom = constants.DefaultCustomMin
	}
	if p.Durations.ShortBreak <= 0 {
		p.Durations.ShortBreak = constants.DefaultShortBreakMin
	}
	if p.Durations.LongBreak <= 0 {
		p.Durations.LongBreak = constants.DefaultLongBreakMin
	}
	if p.DailyGoalMinutes <= 0 {
		p.DailyGoalMinutes = constants.DefaultDailyGoalMinutes
	}
	if p.Timezone == "" {
		p.Timezone = constants.DefaultTimezone
	}
}

// SetPreference parses value and assigns it to the preference named key.
func SetPreference(p *Preferences, key, value string) error {
	switch key {
	case constants.PrefWallpaper:
		p.Wallpaper = value
	case constants.PrefClockFont:
		p.ClockFont = value
	case constants.PrefTimezone:
		p.Timezone = value
	case constants.PrefNotifications:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		p.Notifications = b
	case constants.PrefPomodoroMin, constants.PrefDeepWorkMin, constants.PrefFlowMin,
		constants.PrefCustomMin, constants.PrefShortBreakMin, constants.PrefLongBreakMin,
		constants.PrefDailyGoalMinutes:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
		if n <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
		*minutesField(p, key) = n
	default:
		return fmt.Errorf("unknown preference %q", key)
	}
	return nil
}

// PreferencesToMap converts preferences to displayable key-value pairs.
func PreferencesToMap(p Preferences) map[string]string {
	return map[string]string{
		constants.PrefWallpaper:        p.Wallpaper,
		constants.PrefClockFont:        p.ClockFont,
		constants.PrefPomodoroMin:      strconv.Itoa(p.Durations.Pomodoro),
		constants.PrefDeepWorkMin:      strconv.Itoa(p.Durations.DeepWork),
		constants.PrefFlowMin:          strconv.Itoa(p.Durations.Flow),
		constants.PrefCustomMin:        strconv.Itoa(p.Durations.Custom),
		constants.PrefShortBreakMin:    strconv.Itoa(p.Durations.ShortBreak),
		constants.PrefLongBreakMin:     strconv.Itoa(p.Durations.LongBreak),
		constants.PrefDailyGoalMinutes: strconv.Itoa(p.DailyGoalMinutes),
		constants.PrefTimezone:         p.Timezone,
		constants.PrefNotifications:    strconv.FormatBool(p.Notifications),
	}
}

func minutesField(p *Preferences, key string) *int {
	switch key {
	case constants.PrefPomodoroMin:
		return &p.Durations.Pomodoro
	case constants.PrefDeepWorkMin:
		return &p.Durations.DeepWork
	case constants.PrefFlowMin:
		return &p.Durations.Flow
	case constants.PrefCustomMin:
		return &p.Durations.Custom
	case constants.PrefShortBreakMin:
		return &p.Durations.ShortBreak
	case constants.PrefLongBreakMin:
		return &p.Durations.LongBreak
	default:
		return &p.DailyGoalMinutes
	}
}
