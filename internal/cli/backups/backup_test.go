package backups

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/config"
)

func setupTestDB(t *testing.T) (*cli.Context, *bytes.Buffer, *time.Time) {
	t.Helper()
	gokeyring.MockInit()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config: config.Config{DatabasePath: dbPath},
		Out:    out,
		Now:    func() time.Time { return now },
	}
	if err := ctx.Local().Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("failed to close context: %v", err)
		}
	})
	return ctx, out, &now
}

func TestBackupCreateListRestore(t *testing.T) {
	ctx, out, now := setupTestDB(t)

	store, err := ctx.Store()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddTask("before backup"); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}

	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.Contains(out.String(), "Backup created") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	mgr, err := ctx.BackupManager()
	if err != nil {
		t.Fatal(err)
	}
	backups, err := mgr.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %d (err %v)", len(backups), err)
	}
	name := filepath.Base(backups[0].Path)

	out.Reset()
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), name) {
		t.Errorf("list missing %s:\n%s", name, out.String())
	}

	if _, err := store.AddTask("after backup"); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}
	*now = now.Add(time.Minute)

	out.Reset()
	if err := (&BackupRestoreCmd{BackupFile: name, Yes: true}).Run(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if !strings.Contains(out.String(), "Database restored from: "+name) {
		t.Errorf("unexpected restore output:\n%s", out.String())
	}

	store, err = ctx.Store()
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	tasks := store.Tasks(false)
	if len(tasks) != 1 || tasks[0].Text != "before backup" {
		t.Errorf("restore did not roll back tasks: %+v", tasks)
	}
}

func TestBackupRestoreMissing(t *testing.T) {
	ctx, _, _ := setupTestDB(t)

	if err := (&BackupRestoreCmd{BackupFile: "nope.db", Yes: true}).Run(ctx); err == nil {
		t.Error("expected error for missing backup")
	}
	if err := (&BackupRestoreCmd{BackupFile: filepath.Join(os.TempDir(), "nope.db"), Yes: true}).Run(ctx); err == nil {
		t.Error("expected error for missing absolute path")
	}
}

func TestBackupRequiresSQLite(t *testing.T) {
	gokeyring.MockInit()
	ctx := &cli.Context{
		Config: config.Config{DatabasePath: filepath.Join(t.TempDir(), "tempo.json")},
		Out:    &bytes.Buffer{},
	}
	if err := (&BackupCreateCmd{}).Run(ctx); err != cli.ErrNoBackups {
		t.Errorf("err = %v, want ErrNoBackups", err)
	}
}
