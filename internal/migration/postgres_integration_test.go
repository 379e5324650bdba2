package migration

import (
	"database/sql"
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	_ "github.com/lib/pq"

	"github.com/julianstephens/tempo/migrations"
)

const pgTestSchema = "tempo_migration_test"

// openPostgres connects to POSTGRES_TEST_URL with a single connection pinned
// to a scratch schema, so the remote tables never touch real data.
// Example: POSTGRES_TEST_URL="postgres://tempo@localhost:5432/tempo_test?sslmode=disable"
func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open postgres database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping postgres database: %v", err)
	}

	for _, stmt := range []string{
		"DROP SCHEMA IF EXISTS " + pgTestSchema + " CASCADE",
		"CREATE SCHEMA " + pgTestSchema,
		"SET search_path TO " + pgTestSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	t.Cleanup(func() {
		_, _ = db.Exec("DROP SCHEMA IF EXISTS " + pgTestSchema + " CASCADE")
		db.Close()
	})
	return db
}

func remoteMigrations(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		t.Fatalf("failed to open embedded postgres migrations: %v", err)
	}
	return sub
}

// withExtra copies the embedded remote migrations and adds extra files.
func withExtra(t *testing.T, extra map[string]string) fstest.MapFS {
	t.Helper()
	src := remoteMigrations(t)
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		t.Fatalf("failed to list migrations: %v", err)
	}
	out := fstest.MapFS{}
	for _, e := range entries {
		data, err := fs.ReadFile(src, e.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", e.Name(), err)
		}
		out[e.Name()] = &fstest.MapFile{Data: data}
	}
	for name, body := range extra {
		out[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return out
}

func newPostgresRunner(t *testing.T, db *sql.DB, fsys fs.FS) *Runner {
	t.Helper()
	runner, err := NewRunner(db, fsys, DriverPostgres)
	if err != nil {
		t.Fatalf("failed to create migration runner: %v", err)
	}
	if err := runner.EnsureSchemaVersionTable(); err != nil {
		t.Fatalf("failed to ensure schema_version table: %v", err)
	}
	return runner
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`, pgTestSchema, name).Scan(&n)
	if err != nil {
		t.Fatalf("failed to look up table %s: %v", name, err)
	}
	return n == 1
}

func TestPostgresRemoteSchema(t *testing.T) {
	db := openPostgres(t)
	runner := newPostgresRunner(t, db, remoteMigrations(t))

	before, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if before.Current != 0 || before.Latest == 0 || len(before.Pending) != before.Latest {
		t.Fatalf("unexpected status before migrating: %+v", before)
	}

	applied, err := runner.ApplyMigrations(nil)
	if err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	if applied != len(before.Pending) {
		t.Errorf("applied %d migrations, want %d", applied, len(before.Pending))
	}

	after, err := runner.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if after.Current != before.Latest || len(after.Pending) != 0 {
		t.Errorf("unexpected status after migrating: %+v", after)
	}
	for _, table := range []string{"user_items", "user_docs", "schema_version"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing after migration", table)
		}
	}
	if err := runner.ValidateVersion(); err != nil {
		t.Errorf("ValidateVersion failed: %v", err)
	}

	again, err := runner.ApplyMigrations(nil)
	if err != nil || again != 0 {
		t.Errorf("second ApplyMigrations = %d, %v; want 0, nil", again, err)
	}
}

func TestPostgresUserItemsKeyedPerUser(t *testing.T) {
	db := openPostgres(t)
	runner := newPostgresRunner(t, db, remoteMigrations(t))
	if _, err := runner.ApplyMigrations(nil); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}

	upsert := `
		INSERT INTO user_items (user_id, collection, id, date, body)
		VALUES ($1, 'habits', 'h1', '2026-03-10', $2::jsonb)
		ON CONFLICT (user_id, collection, id) DO UPDATE SET body = EXCLUDED.body`
	for _, args := range [][]any{
		{"alice", `{"name":"read"}`},
		{"alice", `{"name":"write"}`},
		{"bob", `{"name":"run"}`},
	} {
		if _, err := db.Exec(upsert, args...); err != nil {
			t.Fatalf("upsert %v failed: %v", args, err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM user_items").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("user_items has %d rows, want 2", count)
	}
	var name string
	err := db.QueryRow(`SELECT body->>'name' FROM user_items WHERE user_id = 'alice'`).Scan(&name)
	if err != nil || name != "write" {
		t.Errorf("alice's habit = %q, %v; want write", name, err)
	}

	if _, err := db.Exec(`INSERT INTO user_docs (user_id, kind, body) VALUES ('alice', 'prefs', '{}')`); err != nil {
		t.Fatalf("insert doc failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO user_docs (user_id, kind, body) VALUES ('alice', 'prefs', '{}')`); err == nil {
		t.Error("expected duplicate (user_id, kind) to be rejected")
	}
}

func TestPostgresNewerSchemaRejected(t *testing.T) {
	db := openPostgres(t)
	runner := newPostgresRunner(t, db, remoteMigrations(t))
	if _, err := runner.ApplyMigrations(nil); err != nil {
		t.Fatalf("ApplyMigrations failed: %v", err)
	}
	st, err := runner.Status()
	if err != nil {
		t.Fatal(err)
	}

	if err := runner.SetVersion(st.Latest + 1); err != nil {
		t.Fatalf("SetVersion failed: %v", err)
	}
	if err := runner.ValidateVersion(); err == nil {
		t.Error("expected a newer remote schema to be rejected")
	}
	if _, err := runner.ApplyMigrations(nil); err == nil {
		t.Error("expected ApplyMigrations to refuse a newer remote schema")
	}
}

func TestPostgresFailedMigrationRollsBack(t *testing.T) {
	db := openPostgres(t)
	fsys := withExtra(t, map[string]string{
		"999_broken.sql": "CREATE TABLE user_tags (id TEXT PRIMARY KEY); SELECT * FROM no_such_table;",
	})
	runner := newPostgresRunner(t, db, fsys)

	applied, err := runner.ApplyMigrations(nil)
	if err == nil {
		t.Fatal("expected the broken migration to fail")
	}

	embedded, err := runner.ReadMigrationFiles()
	if err != nil {
		t.Fatal(err)
	}
	if want := len(embedded) - 1; applied != want {
		t.Errorf("applied %d migrations before the failure, want %d", applied, want)
	}
	version, err := runner.GetCurrentVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != embedded[len(embedded)-2].Version {
		t.Errorf("version = %d, want %d", version, embedded[len(embedded)-2].Version)
	}
	if tableExists(t, db, "user_tags") {
		t.Error("table from the failed migration was not rolled back")
	}
	if !tableExists(t, db, "user_items") {
		t.Error("earlier migrations were lost")
	}
}
