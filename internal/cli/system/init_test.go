package system

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
	"github.com/julianstephens/tempo/internal/storage"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

func setupTestInitDB(t *testing.T) (*cli.Context, string, *bytes.Buffer) {
	t.Helper()
	gokeyring.MockInit()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Config: config.Config{DatabasePath: dbPath},
		Out:    out,
		Now:    func() time.Time { return fixedNow },
	}
	t.Cleanup(func() {
		if err := ctx.Close(); err != nil {
			t.Errorf("failed to close context: %v", err)
		}
	})
	return ctx, dbPath, out
}

func TestInitCmd_Success(t *testing.T) {
	ctx, dbPath, _ := setupTestInitDB(t)

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("init command failed: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}
}

func TestInitCmd_Idempotent(t *testing.T) {
	ctx, _, _ := setupTestInitDB(t)

	cmd := &InitCmd{}
	if err := cmd.Run(ctx); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	if err := cmd.Run(ctx); err != nil {
		t.Errorf("second init failed (should be idempotent): %v", err)
	}
}

func TestInitCmd_ForceDeletesExisting(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("initial init failed: %v", err)
	}
	store, err := ctx.Store()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.AddTask("write report"); err != nil {
		t.Fatalf("failed to add task: %v", err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	if err := (&InitCmd{Force: true}).Run(ctx); err != nil {
		t.Fatalf("force init failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted existing store") {
		t.Errorf("expected deletion message, got:\n%s", out.String())
	}

	store, err = ctx.Store()
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	if n := len(store.Tasks(true)); n != 0 {
		t.Errorf("expected empty store after force init, found %d task(s)", n)
	}
}

func TestInitCmd_ForceRefusesSameSource(t *testing.T) {
	ctx, dbPath, _ := setupTestInitDB(t)

	cmd := &InitCmd{Force: true, Source: dbPath}
	if err := cmd.Run(ctx); err == nil {
		t.Error("expected error when source equals destination")
	}
}

func TestInitCmd_WritesDefaultConfig(t *testing.T) {
	ctx, _, _ := setupTestInitDB(t)
	ctx.ConfigPath = filepath.Join(t.TempDir(), "config.yaml")

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	if cfg.DatabasePath != ctx.Config.DatabasePath {
		t.Errorf("DatabasePath = %q, want %q", cfg.DatabasePath, ctx.Config.DatabasePath)
	}
}

func TestInitCmd_CopiesFromSource(t *testing.T) {
	ctx, _, out := setupTestInitDB(t)

	sourcePath := filepath.Join(t.TempDir(), "old.json")
	source := storage.NewJSONStore(sourcePath)
	if err := source.Init(); err != nil {
		t.Fatalf("failed to init source: %v", err)
	}
	payload := map[string][]byte{
		"tasks":  []byte(`[{"id":"t1","text":"read","time_spent":0}]`),
		"habits": []byte(`[]`),
	}
	if err := source.PutMany(payload); err != nil {
		t.Fatalf("failed to seed source: %v", err)
	}
	if err := source.Close(); err != nil {
		t.Fatalf("failed to close source: %v", err)
	}

	if err := (&InitCmd{Source: sourcePath}).Run(ctx); err != nil {
		t.Fatalf("init with source failed: %v", err)
	}
	if !strings.Contains(out.String(), "Copied 2 record(s).") {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	got, err := ctx.Local().Get("tasks")
	if err != nil {
		t.Fatalf("tasks not copied: %v", err)
	}
	if string(got) != string(payload["tasks"]) {
		t.Errorf("tasks = %s, want %s", got, payload["tasks"])
	}
}
