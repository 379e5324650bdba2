package habits

import (
	"fmt"
	"strings"

	"github.com/julianstephens/tempo/internal/cli"
)

type HabitCmd struct {
	Add    HabitAddCmd    `cmd:"" help:"Add a new habit."`
	List   HabitListCmd   `cmd:"" help:"List habits with the last seven days." default:"1"`
	Toggle HabitToggleCmd `cmd:"" help:"Mark a habit done or undone for a day."`
	Rename HabitRenameCmd `cmd:"" help:"Rename a habit."`
	Delete HabitDeleteCmd `cmd:"" help:"Delete a habit and its history."`
}

type HabitAddCmd struct {
	Name  string `arg:"" help:"Habit name."`
	Color string `short:"c" help:"Display color." default:"#7c3aed"`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	h, err := store.AddHabit(c.Name, c.Color)
	if err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}
	ctx.Printf("✓ Added habit %q (id: %s)\n", h.Name, cli.ShortID(h.ID))
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	habits := store.Habits()
	if len(habits) == 0 {
		ctx.Println("No habits yet. Add one with 'tempo habit add <name>'.")
		return nil
	}

	week := store.HabitWeek()
	var header strings.Builder
	for _, d := range week {
		header.WriteString(d[8:] + " ")
	}
	ctx.Printf("%-8s  %-24s %s streak\n", "id", "habit", header.String())

	for _, h := range habits {
		var row strings.Builder
		for _, d := range week {
			if h.IsDoneOn(d) {
				row.WriteString(" ✓ ")
			} else {
				row.WriteString(" · ")
			}
		}
		streak, err := store.HabitStreak(h.ID)
		if err != nil {
			return err
		}
		ctx.Printf("%-8s  %-24s %s %d\n", cli.ShortID(h.ID), h.Name, row.String(), streak)
	}
	return nil
}

type HabitToggleCmd struct {
	Ref  string `arg:"" help:"Habit id or id prefix."`
	Date string `short:"d" help:"Date (YYYY-MM-DD), defaults to today."`
}

func (c *HabitToggleCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	h, done, err := store.ToggleHabit(c.Ref, c.Date)
	if err != nil {
		return err
	}
	date := c.Date
	if date == "" {
		date = store.Today()
	}
	if done {
		ctx.Printf("✓ %s done on %s\n", h.Name, date)
	} else {
		ctx.Printf("○ %s undone on %s\n", h.Name, date)
	}
	return nil
}

type HabitRenameCmd struct {
	Ref  string `arg:"" help:"Habit id or id prefix."`
	Name string `arg:"" help:"New name."`
}

func (c *HabitRenameCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	h, err := store.RenameHabit(c.Ref, c.Name)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Renamed habit to %q\n", h.Name)
	return nil
}

type HabitDeleteCmd struct {
	Ref string `arg:"" help:"Habit id or id prefix."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	h, err := store.DeleteHabit(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Deleted habit %q\n", h.Name)
	return nil
}
