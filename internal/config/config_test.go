package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/julianstephens/tempo/internal/constants"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvDatabasePath, EnvRemoteDSN, EnvTimezone, EnvSyncInterval, EnvDebug} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DatabasePath != constants.DefaultConfigPath {
		t.Errorf("DatabasePath = %q, want default", cfg.DatabasePath)
	}
	if cfg.SyncIntervalDuration() != constants.DefaultSyncInterval {
		t.Errorf("SyncIntervalDuration() = %v, want %v", cfg.SyncIntervalDuration(), constants.DefaultSyncInterval)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	want := Config{
		DatabasePath: "/tmp/tempo.db",
		RemoteDSN:    "postgres://tempo@localhost/tempo",
		Timezone:     "UTC",
		SyncInterval: "45s",
		Debug:        true,
	}
	if err := want.Save(path); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if got.SyncIntervalDuration() != 45*time.Second {
		t.Errorf("SyncIntervalDuration() = %v", got.SyncIntervalDuration())
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvTimezone, "Asia/Tokyo")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Errorf("Timezone = %q, want Asia/Tokyo", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Debug should be enabled by TEMPO_DEBUG")
	}
}

func TestDotEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvRemoteDSN)
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("TEMPO_REMOTE_DSN=memory\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envPath)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RemoteDSN != "memory" {
		t.Errorf("RemoteDSN = %q, want memory", cfg.RemoteDSN)
	}
	os.Unsetenv(EnvRemoteDSN)
}

func TestInvalidSyncInterval(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("sync_interval: soon\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Load() should reject an unparsable sync_interval")
	}
}
