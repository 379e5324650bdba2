package optimizer

import (
	"fmt"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
)

// OptimizationType represents the type of optimization suggested
type OptimizationType string

const (
	OptimizationReduceDuration   OptimizationType = "reduce_duration"
	OptimizationIncreaseDuration OptimizationType = "increase_duration"
)

const (
	// DefaultSessionLimit is how many recent rated sessions per mode are analyzed
	DefaultSessionLimit = 20

	minRated       = 3
	minDuration    = 10
	maxDuration    = 240
	increaseStep   = 5
	lowRatingMax   = 2
	highRatingMin  = 4
	lowPercentMin  = 50.0
	highPercentMin = 70.0
)

// Optimization is a suggested change to a mode's preset duration
type Optimization struct {
	Mode           constants.SessionMode `json:"mode"`
	PrefKey        string                `json:"pref_key"`
	Type           OptimizationType      `json:"type"`
	Reason         string                `json:"reason"`
	CurrentValue   int                   `json:"current_value"`
	SuggestedValue int                   `json:"suggested_value"`
}

// SessionSource supplies recorded sessions and the current presets
type SessionSource interface {
	Sessions() []models.Session
	Preferences() models.Preferences
}

// DurationAnalyzer reads session ratings and suggests preset durations
type DurationAnalyzer struct {
	source SessionSource
}

// NewDurationAnalyzer creates a new DurationAnalyzer
func NewDurationAnalyzer(source SessionSource) *DurationAnalyzer {
	return &DurationAnalyzer{source: source}
}

// prefKeys maps timed modes to the preference holding their preset
var prefKeys = map[constants.SessionMode]string{
	constants.ModePomodoro: constants.PrefPomodoroMin,
	constants.ModeDeepWork: constants.PrefDeepWorkMin,
	constants.ModeFlow:     constants.PrefFlowMin,
	constants.ModeCustom:   constants.PrefCustomMin,
}

// AnalyzeMode looks at the most recent rated sessions of mode, newest
// first, up to limit
func (da *DurationAnalyzer) AnalyzeMode(mode constants.SessionMode, limit int) (*Optimization, error) {
	key, ok := prefKeys[mode]
	if !ok {
		return nil, fmt.Errorf("mode %q has no preset duration", mode)
	}
	current := da.source.Preferences().DurationFor(mode)

	// Sessions are stored oldest first
	sessions := da.source.Sessions()
	var rated []models.Session
	for i := len(sessions) - 1; i >= 0 && (limit <= 0 || len(rated) < limit); i-- {
		if s := sessions[i]; s.Mode == mode && s.Rating != nil {
			rated = append(rated, s)
		}
	}

	// Too little feedback means no optimizations
	if len(rated) < minRated {
		return nil, nil
	}

	lowCount, highCount, fullCount := 0, 0, 0
	for _, s := range rated {
		switch r := *s.Rating; {
		case r <= lowRatingMax:
			lowCount++
		case r >= highRatingMin:
			highCount++
			if s.DurationMinutes >= current {
				fullCount++
			}
		}
	}
	total := float64(len(rated))
	lowPercent := float64(lowCount) / total * 100
	highPercent := float64(highCount) / total * 100

	// Mostly poor sessions: cut the preset by a quarter
	if lowPercent > lowPercentMin && current > minDuration {
		suggested := max(minDuration, roundTo5(current*3/4))
		return &Optimization{
			Mode:           mode,
			PrefKey:        key,
			Type:           OptimizationReduceDuration,
			Reason:         fmt.Sprintf("%.0f%% of the last %d rated %s sessions were rated %d or lower", lowPercent, len(rated), mode, lowRatingMax),
			CurrentValue:   current,
			SuggestedValue: suggested,
		}, nil
	}

	// Mostly good sessions that ran the full preset: stretch it
	if highPercent >= highPercentMin && fullCount*2 >= highCount && current < maxDuration {
		return &Optimization{
			Mode:           mode,
			PrefKey:        key,
			Type:           OptimizationIncreaseDuration,
			Reason:         fmt.Sprintf("%.0f%% of the last %d rated %s sessions were rated %d or higher", highPercent, len(rated), mode, highRatingMin),
			CurrentValue:   current,
			SuggestedValue: min(maxDuration, current+increaseStep),
		}, nil
	}

	return nil, nil
}

// AnalyzeAllModes analyzes every mode that has a preset duration
func (da *DurationAnalyzer) AnalyzeAllModes(limit int) ([]Optimization, error) {
	var all []Optimization
	for _, mode := range constants.Modes {
		if _, ok := prefKeys[mode]; !ok {
			continue
		}
		opt, err := da.AnalyzeMode(mode, limit)
		if err != nil {
			return nil, err
		}
		if opt != nil {
			all = append(all, *opt)
		}
	}
	return all, nil
}

func roundTo5(n int) int {
	return (n + 2) / 5 * 5
}
