package migration

import (
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestMigrations(t *testing.T, migrations map[string]string) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, content := range migrations {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func newSQLiteRunner(t *testing.T, db *sql.DB, migrations map[string]string) *Runner {
	t.Helper()
	runner, err := NewRunner(db, setupTestMigrations(t, migrations), DriverSQLite)
	if err != nil {
		t.Fatalf("failed to create migration runner: %v", err)
	}
	return runner
}

func TestNewRunnerRejectsUnknownDriver(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewRunner(db, fstest.MapFS{}, Driver("mysql")); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := NewRunner(nil, fstest.MapFS{}, DriverSQLite); err == nil {
		t.Error("expected error for nil database")
	}
}

func TestDriverPlaceholder(t *testing.T) {
	if got := DriverSQLite.placeholder(); got != "?" {
		t.Errorf("sqlite placeholder = %q", got)
	}
	if got := DriverPostgres.placeholder(); got != "$1" {
		t.Errorf("postgres placeholder = %q", got)
	}
}

func TestGetCurrentVersion(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"001_test.sql": "CREATE TABLE test (id INTEGER);",
	})

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}

	if err := runner.SetVersion(5); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	version, err = runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 5 {
		t.Errorf("expected version 5, got %d", version)
	}
}

func TestReadMigrationFiles(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"002_second.sql": "CREATE TABLE b (id INTEGER);",
		"001_first.sql":  "CREATE TABLE a (id INTEGER);",
		"README.md":      "not a migration",
	})

	migrations, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatalf("ReadMigrationFiles failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "first" {
		t.Errorf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "second" {
		t.Errorf("unexpected second migration: %+v", migrations[1])
	}
}

func TestReadMigrationFilesInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"no underscore":     {"001.sql": "SELECT 1;"},
		"non numeric":       {"abc_init.sql": "SELECT 1;"},
		"zero version":      {"000_init.sql": "SELECT 1;"},
		"duplicate version": {"001_a.sql": "SELECT 1;", "1_b.sql": "SELECT 1;"},
	}
	for name, files := range tests {
		t.Run(name, func(t *testing.T) {
			runner := newSQLiteRunner(t, setupTestDB(t), files)
			if _, err := runner.ReadMigrationFiles(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyMigrations(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"001_init.sql":  "CREATE TABLE kv (key TEXT PRIMARY KEY, value BLOB);",
		"002_index.sql": "CREATE INDEX idx_kv_value ON kv(value);",
	})

	var logs []string
	count, err := runner.ApplyMigrations(func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 migrations applied, got %d", count)
	}
	if len(logs) == 0 {
		t.Error("expected progress to be logged")
	}

	if _, err := db.Exec("INSERT INTO kv (key, value) VALUES ('a', 'b')"); err != nil {
		t.Errorf("kv table not usable: %v", err)
	}

	count, err = runner.ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("second ApplyMigrations failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 migrations on second run, got %d", count)
	}
}

func TestApplyMigrationsRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"001_init.sql": "CREATE TABLE ok (id INTEGER);",
		"002_bad.sql":  "CREATE TABLE bad (id INTEGER); THIS IS INVALID SQL;",
	})

	count, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected ApplyMigrations to fail")
	}
	if count != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", count)
	}
	if !strings.Contains(err.Error(), "migration 2") {
		t.Errorf("error does not name the failing migration: %v", err)
	}

	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatalf("GetCurrentVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected version 1 after failed migration, got %d", version)
	}
}

func TestStatus(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"001_init.sql": "CREATE TABLE a (id INTEGER);",
		"002_more.sql": "CREATE TABLE b (id INTEGER);",
	})
	if err := runner.SetVersion(1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	st, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Current != 1 || st.Latest != 2 || len(st.Pending) != 1 || st.Pending[0].Version != 2 {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestValidateVersionNewerDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := newSQLiteRunner(t, db, map[string]string{
		"001_init.sql": "CREATE TABLE a (id INTEGER);",
	})
	if err := runner.SetVersion(3); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}

	if err := runner.ValidateVersion(); err == nil {
		t.Error("expected error for database newer than migrations")
	}
	if _, err := runner.ApplyMigrations(nil); err == nil {
		t.Error("expected ApplyMigrations to refuse a newer database")
	}
}
