package settings

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/optimizer"
)

type PrefsCmd struct {
	Show    PrefsShowCmd    `cmd:"" help:"Show current preferences." default:"1"`
	Set     PrefsSetCmd     `cmd:"" help:"Change one preference."`
	Suggest PrefsSuggestCmd `cmd:"" help:"Suggest preset durations from session ratings."`
}

type PrefsShowCmd struct{}

func (c *PrefsShowCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	prefs := store.Preferences()
	values := models.PreferencesToMap(prefs)

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ctx.Println("Current Preferences:")
	for _, k := range keys {
		ctx.Printf("  %-20s %s\n", k, values[k])
	}
	if prefs.UpdatedAt != "" {
		ctx.Printf("\nLast changed: %s\n", prefs.UpdatedAt)
	}
	return nil
}

type PrefsSetCmd struct {
	Key   string `arg:"" help:"Preference key (see 'tempo prefs show')."`
	Value string `arg:"" help:"New value."`
}

func (c *PrefsSetCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	prefs, err := store.SetPreference(c.Key, c.Value)
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}
	ctx.Printf("✓ %s = %s\n", c.Key, models.PreferencesToMap(prefs)[c.Key])
	return nil
}

type PrefsSuggestCmd struct {
	Limit int  `short:"n" help:"Rated sessions per mode to analyze." default:"20"`
	Apply bool `help:"Apply the suggested durations."`
}

func (c *PrefsSuggestCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	opts, err := optimizer.NewDurationAnalyzer(store).AnalyzeAllModes(c.Limit)
	if err != nil {
		return err
	}
	if len(opts) == 0 {
		ctx.Println("No suggestions. Rate more sessions to get some.")
		return nil
	}

	for _, o := range opts {
		ctx.Printf("%-10s %3d -> %3d min  %s\n", o.Mode, o.CurrentValue, o.SuggestedValue, o.Reason)
	}
	if !c.Apply {
		ctx.Println("\nRun with --apply to use these durations.")
		return nil
	}
	for _, o := range opts {
		if _, err := store.SetPreference(o.PrefKey, strconv.Itoa(o.SuggestedValue)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", o.PrefKey, err)
		}
	}
	ctx.Printf("✓ Applied %d suggestion(s)\n", len(opts))
	return nil
}
