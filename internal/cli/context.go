package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/backup"
	"github.com/julianstephens/tempo/internal/config"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/keyring"
	"github.com/julianstephens/tempo/internal/logger"
	"github.com/julianstephens/tempo/internal/storage"
	"github.com/julianstephens/tempo/internal/storage/memory"
	"github.com/julianstephens/tempo/internal/storage/postgres"
	"github.com/julianstephens/tempo/internal/storage/sqlite"
)

// MemoryRemote selects the in-process remote store
const MemoryRemote = "memory"

// ErrNoBackups is returned for backup commands on a non-SQLite local store
var ErrNoBackups = errors.New("backups are only available for SQLite storage")

// Context is shared by every command. The local store, remote and
// application store are opened on first use.
type Context struct {
	Config     config.Config
	ConfigPath string
	Remote     string // --remote override
	Out        io.Writer
	Now        func() time.Time

	// SkipSweep stops the store from applying retention when it opens
	SkipSweep bool

	local  storage.LocalStore
	remote storage.RemoteStore
	store  *app.Store
}

func (c *Context) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}

// Printf writes formatted command output
func (c *Context) Printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

// Print writes command output without a newline
func (c *Context) Print(args ...any) {
	fmt.Fprint(c.out(), args...)
}

// Println writes a line of command output
func (c *Context) Println(args ...any) {
	fmt.Fprintln(c.out(), args...)
}

// OpenLocal picks the local backend from the database path: *.json uses the
// JSON file store, anything else SQLite.
func OpenLocal(path string) storage.LocalStore {
	path = config.ExpandHome(path)
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return storage.NewJSONStore(path)
	}
	return sqlite.NewStore(path)
}

// Local returns the configured local store without loading it
func (c *Context) Local() storage.LocalStore {
	if c.local == nil {
		c.local = OpenLocal(c.Config.DatabasePath)
	}
	return c.local
}

// RemoteDSN resolves the remote connection string from the --remote flag,
// then config and environment, then the OS keyring. fromKeyring reports the
// last case, where embedded passwords are allowed.
func (c *Context) RemoteDSN() (dsn string, fromKeyring bool, err error) {
	if c.Remote != "" {
		return c.Remote, false, nil
	}
	if c.Config.RemoteDSN != "" {
		return c.Config.RemoteDSN, false, nil
	}
	dsn, err = keyring.GetRemoteDSN()
	switch {
	case err == nil:
		return dsn, true, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", false, nil
	default:
		logger.Debug("Keyring lookup failed", "error", err)
		return "", false, nil
	}
}

// OpenRemote connects the configured remote store. It returns nil, nil when
// no remote is configured.
func (c *Context) OpenRemote(ctx context.Context) (storage.RemoteStore, error) {
	if c.remote != nil {
		return c.remote, nil
	}
	dsn, fromKeyring, err := c.RemoteDSN()
	if err != nil || dsn == "" {
		return nil, err
	}
	if dsn == MemoryRemote {
		c.remote = memory.NewRemote()
		return c.remote, nil
	}

	if valid, err := postgres.ValidateConnString(dsn); !valid {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) || !fromKeyring {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("%w: store it with 'tempo config set-dsn' instead", err)
			}
			return nil, err
		}
	}

	pg := postgres.New(dsn)
	openCtx, cancel := context.WithTimeout(ctx, constants.RemoteRequestTimeout)
	defer cancel()
	if err := pg.Open(openCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to remote: %w", err)
	}
	c.remote = pg
	return c.remote, nil
}

// BackupManager returns the backup manager for a SQLite local store
func (c *Context) BackupManager() (*backup.Manager, error) {
	local := c.Local()
	if _, ok := local.(*sqlite.Store); !ok {
		return nil, ErrNoBackups
	}
	var opts []backup.Option
	if c.Now != nil {
		opts = append(opts, backup.WithClock(c.Now))
	}
	return backup.NewManager(local.GetConfigPath(), opts...), nil
}

// Store loads the local store, connects the remote when one is configured
// and opens the application store. A remote that cannot be reached is
// logged and the store works offline.
func (c *Context) Store() (*app.Store, error) {
	if c.store != nil {
		return c.store, nil
	}

	local := c.Local()
	if err := local.Load(); err != nil {
		return nil, err
	}

	remote, err := c.OpenRemote(context.Background())
	if err != nil {
		logger.Warn("Remote unavailable, working offline", "error", err)
		remote = nil
	}

	opts := app.Options{Local: local, Now: c.Now, SkipSweep: c.SkipSweep}
	if remote != nil {
		opts.Remote = remote
	}
	if mgr, err := c.BackupManager(); err == nil {
		opts.Backup = mgr
	}

	s, err := app.Open(opts)
	if err != nil {
		return nil, err
	}
	c.store = s
	return s, nil
}

// Close releases the application store and the local store
func (c *Context) Close() error {
	var errs []error
	if c.store != nil {
		errs = append(errs, c.store.Close())
		c.store = nil
		c.remote = nil
	}
	if c.remote != nil {
		errs = append(errs, c.remote.Close())
		c.remote = nil
	}
	if c.local != nil {
		errs = append(errs, c.local.Close())
		c.local = nil
	}
	return errors.Join(errs...)
}
