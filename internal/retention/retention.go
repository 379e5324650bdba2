// Package retention holds the single rolling-window policy applied to dated
// records, both when loading and when sweeping.
package retention

import (
	"time"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/utils"
)

// Dated is anything the policy can judge. An empty date is never expired.
type Dated interface {
	RetentionDate() string
}

// Policy keeps records dated within the last Days days.
type Policy struct {
	Days int
	Loc  *time.Location
}

// Default returns the 30 day policy for loc.
func Default(loc *time.Location) Policy {
	return Policy{Days: constants.RetentionDays, Loc: loc}
}

// Cutoff is the oldest date still kept, as YYYY-MM-DD.
func (p Policy) Cutoff(now time.Time) string {
	loc := p.Loc
	if loc == nil {
		loc = time.Local
	}
	return utils.DaysBefore(now, loc, p.Days)
}

// Keep reports whether date survives at now. The cutoff day itself is kept.
func (p Policy) Keep(date string, now time.Time) bool {
	return date == "" || date >= p.Cutoff(now)
}

// Filter returns the items of in that survive, preserving order, and the
// number dropped.
func Filter[T Dated](p Policy, in []T, now time.Time) ([]T, int) {
	cutoff := p.Cutoff(now)
	out := make([]T, 0, len(in))
	for _, item := range in {
		if d := item.RetentionDate(); d == "" || d >= cutoff {
			out = append(out, item)
		}
	}
	return out, len(in) - len(out)
}
