package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/cli/account"
	"github.com/julianstephens/tempo/internal/cli/backups"
	"github.com/julianstephens/tempo/internal/cli/events"
	"github.com/julianstephens/tempo/internal/cli/habits"
	"github.com/julianstephens/tempo/internal/cli/sessions"
	"github.com/julianstephens/tempo/internal/cli/settings"
	"github.com/julianstephens/tempo/internal/cli/system"
	"github.com/julianstephens/tempo/internal/cli/tasks"
	"github.com/julianstephens/tempo/internal/config"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/errors"
	"github.com/julianstephens/tempo/internal/logger"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Path to config.yaml." type:"path" default:"${config_path}"`
	DB      string `name:"db" help:"Local database path (*.json selects the JSON file store). Overrides config."`
	Remote  string `help:"Remote store: a PostgreSQL connection string without password, or \"memory\". Overrides config and keyring."`
	Debug   bool   `help:"Mirror debug logs to stderr."`

	Init    system.InitCmd      `cmd:"" help:"Initialize tempo storage."`
	Migrate system.MigrateCmd   `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd    `cmd:"" help:"Run health checks and diagnostics."`
	Focus   system.FocusCmd     `cmd:"" help:"Launch the focus timer." default:"1"`
	Session sessions.SessionCmd `cmd:"" help:"Record and list focus sessions."`
	Stats   sessions.StatsCmd   `cmd:"" help:"Show XP, level, streak and awards."`
	Habit   habits.HabitCmd     `cmd:"" help:"Manage habits and daily check-ins."`
	Task    tasks.TaskCmd       `cmd:"" help:"Manage tasks and task timers."`
	Event   events.EventCmd     `cmd:"" help:"Manage calendar events."`
	Prefs   settings.PrefsCmd   `cmd:"" help:"Show or change preferences."`
	Sync    account.SyncCmd     `cmd:"" help:"Sign in and sync with the remote store."`
	Sweep   system.SweepCmd     `cmd:"" help:"Remove records older than the retention window."`
	Backup  struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Settings struct {
		SetDSN   system.ConfigSetDSNCmd   `cmd:"" name:"set-dsn" help:"Store the remote connection string in the OS keyring."`
		ShowDSN  system.ConfigShowDSNCmd  `cmd:"" name:"show-dsn" help:"Show the stored connection string with the password masked." default:"1"`
		ClearDSN system.ConfigClearDSNCmd `cmd:"" name:"clear-dsn" help:"Remove the stored connection string."`
	} `cmd:"" name:"config" help:"Manage the remote connection string."`
	Diagnose system.DebugCmd  `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`
	Notify   system.NotifyCmd `cmd:"" hidden:"" help:"Send a desktop notification (used for testing)."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Focus timer with sessions, habits, tasks and optional sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_path": config.DefaultPath(),
		},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", errors.Format(err))
		os.Exit(1)
	}
	if CLI.DB != "" {
		cfg.DatabasePath = CLI.DB
	}
	if CLI.Debug {
		cfg.Debug = true
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, ConfigDir: cfg.Dir()}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	appCtx := &cli.Context{
		Config:     cfg,
		ConfigPath: CLI.Config,
		Remote:     CLI.Remote,
	}

	err = ctx.Run(appCtx)
	if closeErr := appCtx.Close(); err == nil {
		err = closeErr
	}
	errors.Fatal(err)
}
