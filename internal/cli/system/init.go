package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/config"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting the existing local store before initialization."`
	Source string `help:"Local store (SQLite or .json) to copy data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	store := ctx.Local()
	dbPath := store.GetConfigPath()

	if c.Force {
		if c.Source != "" {
			absDbPath, err := filepath.Abs(dbPath)
			if err == nil {
				dbPath = absDbPath
			}
			absSource, err := filepath.Abs(config.ExpandHome(c.Source))
			if err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := store.Close(); err != nil {
				return fmt.Errorf("failed to close existing store: %w", err)
			}
			for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
				if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("failed to delete existing store: %w", err)
				}
			}
			ctx.Printf("Deleted existing store at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing store: %w", err)
		}
	}

	if err := store.Init(); err != nil {
		return err
	}
	ctx.Printf("Initialized tempo storage at: %s\n", store.GetConfigPath())

	if ctx.ConfigPath != "" {
		if _, err := os.Stat(ctx.ConfigPath); errors.Is(err, os.ErrNotExist) {
			if err := ctx.Config.Save(ctx.ConfigPath); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			ctx.Printf("Wrote default config to: %s\n", ctx.ConfigPath)
		}
	}

	if c.Source != "" {
		ctx.Printf("Copying data from: %s\n", c.Source)
		n, err := c.copyData(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		ctx.Printf("Copied %d record(s).\n", n)
	}
	return nil
}

// copyData copies every stored envelope from the source store. Outbox
// entries are not copied.
func (c *InitCmd) copyData(ctx *cli.Context) (int, error) {
	source := cli.OpenLocal(c.Source)
	if err := source.Load(); err != nil {
		return 0, fmt.Errorf("failed to load source store: %w", err)
	}
	defer source.Close()

	keys, err := source.Keys()
	if err != nil {
		return 0, fmt.Errorf("failed to list source keys: %w", err)
	}
	sort.Strings(keys)

	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		v, err := source.Get(k)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", k, err)
		}
		values[k] = v
		ctx.Printf("  %s\n", k)
	}
	if err := ctx.Local().PutMany(values); err != nil {
		return 0, fmt.Errorf("failed to write destination: %w", err)
	}
	return len(values), nil
}
