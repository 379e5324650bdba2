package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

type SessionCmd struct {
	Record SessionRecordCmd `cmd:"" help:"Record a completed focus session."`
	List   SessionListCmd   `cmd:"" help:"List recorded sessions." default:"1"`
}

type SessionRecordCmd struct {
	Mode    string   `arg:"" enum:"pomodoro,deep_work,flow,ambient,custom" help:"Session mode (${enum})."`
	Minutes int      `arg:"" help:"Focused minutes."`
	Date    string   `short:"d" help:"Date of the session (YYYY-MM-DD), defaults to today."`
	Start   string   `short:"s" help:"Start time (HH:MM) on the session date."`
	Rating  int      `short:"r" help:"Rating from 1 to 5."`
	Tags    []string `short:"t" help:"Comma-separated tags." sep:","`
}

func (c *SessionRecordCmd) Validate() error {
	if c.Minutes <= 0 {
		return fmt.Errorf("minutes must be greater than zero")
	}
	if c.Rating != 0 && (c.Rating < 1 || c.Rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	if c.Date != "" && !utils.ValidateDate(c.Date) {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %s", c.Date)
	}
	if c.Start != "" {
		if _, err := time.Parse(constants.TimeFormat, c.Start); err != nil {
			return fmt.Errorf("invalid start time (expected HH:MM): %s", c.Start)
		}
	}
	return nil
}

func (c *SessionRecordCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	session := models.Session{
		Date:            c.Date,
		DurationMinutes: c.Minutes,
		Mode:            constants.SessionMode(c.Mode),
		Tags:            c.Tags,
	}
	if c.Rating != 0 {
		rating := c.Rating
		session.Rating = &rating
	}
	if c.Start != "" {
		date := c.Date
		if date == "" {
			date = store.Today()
		}
		loc := utils.LocationOrLocal(store.Preferences().Timezone)
		start, err := time.ParseInLocation(constants.DateFormat+" "+constants.TimeFormat, date+" "+c.Start, loc)
		if err != nil {
			return fmt.Errorf("invalid start time: %w", err)
		}
		session.StartTime = start.UTC().Format(time.RFC3339)
	}

	res, err := store.RecordSession(session)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Recorded %d min of %s on %s (id: %s)\n",
		res.Session.DurationMinutes, res.Session.Mode, res.Session.Date, cli.ShortID(res.Session.ID))
	printAwards(ctx, res)
	return nil
}

func printAwards(ctx *cli.Context, res app.RecordResult) {
	for _, a := range res.Awards {
		ctx.Printf("  +%d XP  %s\n", a.XP, a.Rule)
	}
	st := res.Stats
	ctx.Printf("  Level %d (%d XP), streak %d, today %d%% of goal\n",
		st.XP.Level, st.XP.Total, st.Streak.Current, st.TodayScore)
}

type SessionListCmd struct {
	Date  string `short:"d" help:"Only show sessions on this date (YYYY-MM-DD or 'today')."`
	Limit int    `short:"n" help:"Maximum number of sessions to show." default:"20"`
}

func (c *SessionListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	var list []models.Session
	switch c.Date {
	case "":
		list = store.Sessions()
	case "today":
		list = store.SessionsOn(store.Today())
	default:
		if !utils.ValidateDate(c.Date) {
			return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %s", c.Date)
		}
		list = store.SessionsOn(c.Date)
	}

	if len(list) == 0 {
		ctx.Println("No sessions recorded.")
		return nil
	}
	if c.Limit > 0 && len(list) > c.Limit {
		list = list[:c.Limit]
	}

	loc := utils.LocationOrLocal(store.Preferences().Timezone)
	for _, s := range list {
		start := "--:--"
		if t, err := time.Parse(time.RFC3339, s.StartTime); err == nil {
			start = t.In(loc).Format(constants.TimeFormat)
		}
		line := fmt.Sprintf("%s  %s  %s  %-9s %4d min", cli.ShortID(s.ID), s.Date, start, s.Mode, s.DurationMinutes)
		if s.Rating != nil {
			line += fmt.Sprintf("  %s", strings.Repeat("★", *s.Rating))
		}
		if len(s.Tags) > 0 {
			line += "  #" + strings.Join(s.Tags, " #")
		}
		ctx.Println(line)
	}
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	st := store.Stats()

	ctx.Printf("Today (%s)\n", st.TodayDate)
	ctx.Printf("  Focus:    %d / %d min (%d%%)\n", st.TodayMinutes, st.DailyGoalMinutes, st.TodayScore)
	ctx.Println("Progress")
	ctx.Printf("  Level:    %d (%d XP)\n", st.XP.Level, st.XP.Total)
	ctx.Printf("  Streak:   %d days (best %d)\n", st.Streak.Current, st.Streak.Best)
	ctx.Printf("  Total:    %d min over %d sessions\n", st.TotalFocusMinutes, st.TotalSessions)
	if len(st.Achievements) > 0 {
		ctx.Println("Recent awards")
		n := min(len(st.Achievements), 5)
		for _, a := range st.Achievements[len(st.Achievements)-n:] {
			ctx.Printf("  %s  +%d XP  %s\n", a.Date, a.XP, a.Rule)
		}
	}
	return nil
}
