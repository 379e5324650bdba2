package system

import (
	"path/filepath"
	"sort"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/constants"
)

// SweepCmd applies the retention window now
type SweepCmd struct{}

func (c *SweepCmd) Run(ctx *cli.Context) error {
	ctx.SkipSweep = true
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	res, err := store.Sweep()
	if err != nil {
		return err
	}
	if res.Total() == 0 {
		ctx.Printf("Nothing older than %s (%d-day window).\n", res.Cutoff, constants.RetentionDays)
		return nil
	}

	if res.Backup != "" {
		ctx.Printf("✓ Backup created: %s\n", filepath.Base(res.Backup))
	}
	names := make([]string, 0, len(res.Removed))
	for name := range res.Removed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if n := res.Removed[name]; n > 0 {
			ctx.Printf("  %-8s %d removed\n", name, n)
		}
	}
	ctx.Printf("Removed %d item(s) dated before %s.\n", res.Total(), res.Cutoff)
	return nil
}
