package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/tempo/internal/cli"
)

// MigrateCmd applies pending schema migrations to the local store and, when
// one is configured, the remote.
type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	// Load applies pending migrations
	if err := ctx.Local().Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	if s, ok := ctx.Local().(schemaReporter); ok {
		if err := reportSchema(ctx, "Local", s); err != nil {
			return err
		}
	} else {
		ctx.Println("Local: JSON store, no schema to migrate.")
	}

	remote, err := ctx.OpenRemote(context.Background())
	if err != nil {
		return fmt.Errorf("remote migration failed: %w", err)
	}
	if s, ok := remote.(schemaReporter); ok {
		return reportSchema(ctx, "Remote", s)
	}
	return nil
}

func reportSchema(ctx *cli.Context, label string, s schemaReporter) error {
	st, err := s.SchemaStatus()
	if err != nil {
		return fmt.Errorf("failed to read %s schema version: %w", label, err)
	}
	if len(st.Pending) > 0 {
		return fmt.Errorf("%s schema has %d pending migration(s)", label, len(st.Pending))
	}
	ctx.Printf("%s: schema version %d, up to date.\n", label, st.Current)
	return nil
}
