package system

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/keyring"
	"github.com/julianstephens/tempo/internal/migration"
	"github.com/julianstephens/tempo/internal/storage/sqlite"
	"github.com/julianstephens/tempo/internal/utils"
	"github.com/julianstephens/tempo/internal/validation"
)

type DoctorCmd struct{}

// check is one diagnostic. warn marks checks whose failure does not fail the run.
type check struct {
	name  string
	warn  bool
	needs bool // requires a reachable store
	run   func(ctx *cli.Context) error
}

var doctorChecks = []check{
	{name: "Schema version", needs: true, run: checkSchemaVersion},
	{name: "Migrations complete", needs: true, run: checkMigrationsComplete},
	{name: "Backups present", warn: true, run: checkBackupsPresent},
	{name: "SQLite integrity", needs: true, run: checkIntegrity},
	{name: "Data validation", needs: true, run: checkValidation},
	{name: "Retention", warn: true, needs: true, run: checkRetention},
	{name: "Timezone", needs: true, run: checkTimezone},
	{name: "System clock", run: func(ctx *cli.Context) error { return checkClock(now(ctx)) }},
	{name: "Outbox", warn: true, needs: true, run: checkOutbox},
	{name: "Remote reachable", warn: true, run: checkRemote},
	{name: "OS keyring", warn: true, run: checkKeyring},
}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	// diagnostics must not delete anything
	ctx.SkipSweep = true

	ctx.Println("Running diagnostics...")
	ctx.Println()

	hasError := false
	dbReachable := true

	if err := ctx.Local().Load(); err != nil {
		ctx.Printf("❌ Database reachable: FAIL\n")
		ctx.Printf("   Error: %v\n", err)
		hasError = true
		dbReachable = false
	} else {
		ctx.Printf("✓ Database reachable: OK\n")
	}

	for _, c := range doctorChecks {
		if c.needs && !dbReachable {
			ctx.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			ctx.Printf("✓ %s: OK\n", c.name)
		case c.warn:
			ctx.Printf("⚠ %s: WARNING\n", c.name)
			ctx.Printf("   %v\n", err)
		default:
			ctx.Printf("❌ %s: FAIL\n", c.name)
			ctx.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.Println()
	if hasError {
		ctx.Println("Some checks failed. Please review the errors above.")
		return errors.New("diagnostics failed")
	}
	ctx.Println("All critical checks passed!")
	return nil
}

type schemaReporter interface {
	SchemaStatus() (migration.Status, error)
}

func schemaStatus(ctx *cli.Context) (migration.Status, bool, error) {
	s, ok := ctx.Local().(schemaReporter)
	if !ok {
		return migration.Status{}, false, nil
	}
	st, err := s.SchemaStatus()
	return st, true, err
}

func checkSchemaVersion(ctx *cli.Context) error {
	st, ok, err := schemaStatus(ctx)
	if err != nil || !ok {
		return err
	}
	if st.Current > st.Latest {
		return fmt.Errorf("schema version %d is newer than supported version %d", st.Current, st.Latest)
	}
	if st.Current == 0 {
		return fmt.Errorf("schema version is not set")
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	st, ok, err := schemaStatus(ctx)
	if err != nil || !ok {
		return err
	}
	if len(st.Pending) > 0 {
		return fmt.Errorf("%d pending migration(s), current version %d, latest %d", len(st.Pending), st.Current, st.Latest)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr, err := ctx.BackupManager()
	if err != nil {
		if errors.Is(err, cli.ErrNoBackups) {
			return nil
		}
		return err
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with 'tempo backup create'")
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	result := validation.New().Validate(validation.Data{
		Sessions: store.Sessions(),
		Habits:   store.Habits(),
		Tasks:    store.Tasks(true),
		Events:   store.Events(),
	})
	if result.HasConflicts() {
		return errors.New(strings.TrimSpace(result.FormatReport()))
	}
	return nil
}

// checkRetention reports history older than the retention window, which the
// next sweep will remove.
func checkRetention(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	cutoff := utils.DaysBefore(now(ctx), utils.LocationOrLocal(store.Preferences().Timezone), constants.RetentionDays)
	stale := 0
	for _, s := range store.Sessions() {
		if s.Date < cutoff {
			stale++
		}
	}
	for _, e := range store.Events() {
		if e.Date < cutoff {
			stale++
		}
	}
	if stale > 0 {
		return fmt.Errorf("%d item(s) older than %s will be removed by 'tempo sweep'", stale, cutoff)
	}
	return nil
}

func checkTimezone(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	tz := store.Preferences().Timezone
	if !utils.ValidateTimezone(tz) {
		return fmt.Errorf("invalid timezone %q", tz)
	}
	return nil
}

func checkClock(now time.Time) error {
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkOutbox(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	st, err := store.SyncStatus()
	if err != nil {
		return err
	}
	if st.Dead > 0 {
		return fmt.Errorf("%d change(s) failed to sync - retry with 'tempo sync retry'", st.Dead)
	}
	return nil
}

func checkRemote(ctx *cli.Context) error {
	dsn, _, err := ctx.RemoteDSN()
	if err != nil || dsn == "" {
		return err
	}
	c, cancel := context.WithTimeout(context.Background(), constants.RemoteRequestTimeout)
	defer cancel()
	remote, err := ctx.OpenRemote(c)
	if err != nil {
		return err
	}
	return remote.Ping(c)
}

func checkKeyring(*cli.Context) error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available; use TEMPO_REMOTE_DSN for the remote connection string")
	}
	return nil
}

func checkIntegrity(ctx *cli.Context) error {
	s, ok := ctx.Local().(*sqlite.Store)
	if !ok {
		return nil
	}
	db := s.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

func now(ctx *cli.Context) time.Time {
	if ctx.Now != nil {
		return ctx.Now()
	}
	return time.Now()
}
