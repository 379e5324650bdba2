package events

import (
	"fmt"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/utils"
)

type EventCmd struct {
	Add    EventAddCmd    `cmd:"" help:"Add a calendar event."`
	List   EventListCmd   `cmd:"" help:"List calendar events." default:"1"`
	Edit   EventEditCmd   `cmd:"" help:"Edit a calendar event."`
	Delete EventDeleteCmd `cmd:"" help:"Delete a calendar event."`
}

type EventAddCmd struct {
	Title string `arg:"" help:"Event title."`
	Date  string `short:"d" help:"Date (YYYY-MM-DD), defaults to today."`
	Type  string `short:"t" help:"Event type, e.g. exam or deadline." default:"event"`
	Color string `short:"c" help:"Display color." default:"#2563eb"`
}

func (c *EventAddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	e, err := store.AddEvent(models.CalendarEvent{Title: c.Title, Date: c.Date, Type: c.Type, Color: c.Color})
	if err != nil {
		return fmt.Errorf("failed to add event: %w", err)
	}
	ctx.Printf("✓ Added %q on %s (id: %s)\n", e.Title, e.Date, cli.ShortID(e.ID))
	return nil
}

type EventListCmd struct {
	Date string `short:"d" help:"Only show events on this date (YYYY-MM-DD)."`
}

func (c *EventListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	var list []models.CalendarEvent
	if c.Date != "" {
		if !utils.ValidateDate(c.Date) {
			return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %s", c.Date)
		}
		list = store.EventsOn(c.Date)
	} else {
		list = store.Events()
	}

	if len(list) == 0 {
		ctx.Println("No events.")
		return nil
	}
	for _, e := range list {
		ctx.Printf("%s  %s  %-10s %s\n", cli.ShortID(e.ID), e.Date, e.Type, e.Title)
	}
	return nil
}

type EventEditCmd struct {
	Ref   string  `arg:"" help:"Event id or id prefix."`
	Title *string `help:"New title."`
	Date  *string `help:"New date (YYYY-MM-DD)."`
	Type  *string `help:"New type."`
	Color *string `help:"New color."`
}

func (c *EventEditCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	e, err := store.UpdateEvent(c.Ref, func(e *models.CalendarEvent) {
		if c.Title != nil {
			e.Title = *c.Title
		}
		if c.Date != nil {
			e.Date = *c.Date
		}
		if c.Type != nil {
			e.Type = *c.Type
		}
		if c.Color != nil {
			e.Color = *c.Color
		}
	})
	if err != nil {
		return err
	}
	ctx.Printf("✓ Updated %q on %s\n", e.Title, e.Date)
	return nil
}

type EventDeleteCmd struct {
	Ref string `arg:"" help:"Event id or id prefix."`
}

func (c *EventDeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	e, err := store.DeleteEvent(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Deleted %q\n", e.Title)
	return nil
}
