package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	ps "github.com/mitchellh/go-ps"

	"github.com/julianstephens/tempo/internal/constants"
)

type mockProcess struct {
	pid        int
	executable string
}

func (m *mockProcess) Pid() int           { return m.pid }
func (m *mockProcess) PPid() int          { return 0 }
func (m *mockProcess) Executable() string { return m.executable }

func withConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	old := userConfigDirFunc
	userConfigDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { userConfigDirFunc = old })
	return dir
}

func withProcess(t *testing.T, executable string) {
	t.Helper()
	old := findProcessFunc
	findProcessFunc = func(pid int) (ps.Process, error) {
		if executable == "" {
			return nil, nil
		}
		return &mockProcess{pid: pid, executable: executable}, nil
	}
	t.Cleanup(func() { findProcessFunc = old })
}

func TestTrayConfigDir(t *testing.T) {
	base := withConfigDir(t)

	want := filepath.Join(base, constants.TrayAppIdentifier)
	dir, err := TrayConfigDir()
	if err != nil || dir != want {
		t.Fatalf("TrayConfigDir() = %s, %v; want %s", dir, err, want)
	}

	if err := os.MkdirAll(want, 0o755); err != nil {
		t.Fatal(err)
	}
	settings := `{"settings": {"lockfile_dir": "/custom/tempo/dir"}}`
	if err := os.WriteFile(filepath.Join(want, "settings.json"), []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}
	if dir, _ := TrayConfigDir(); dir != "/custom/tempo/dir" {
		t.Errorf("custom lockfile dir ignored, got %s", dir)
	}

	if err := os.WriteFile(filepath.Join(want, "settings.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if dir, _ := TrayConfigDir(); dir != want {
		t.Errorf("unreadable settings should fall back to default, got %s", dir)
	}
}

func TestLocateTray(t *testing.T) {
	lockfile := filepath.Join(t.TempDir(), constants.NotifierLockfileName)

	if _, err := locateTray(lockfile); !errors.Is(err, ErrTrayNotRunning) {
		t.Errorf("missing lockfile = %v, want ErrTrayNotRunning", err)
	}

	tests := []struct {
		name       string
		content    string
		executable string
		wantErr    string
	}{
		{"two parts", "8080|12345", "tempo-tray", "malformed"},
		{"garbage", "invalid", "tempo-tray", "malformed"},
		{"empty secret", "8080|12345|", "tempo-tray", "secret"},
		{"empty port", "|12345|s3cret", "tempo-tray", "port"},
		{"port out of range", "99999|12345|s3cret", "tempo-tray", "range"},
		{"bad pid", "8080|abc|s3cret", "tempo-tray", "process ID"},
		{"process gone", "8080|12345|s3cret", "", "not running"},
		{"wrong executable", "8080|12345|s3cret", "other-app", "not tempo-tray"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withProcess(t, tt.executable)
			if err := os.WriteFile(lockfile, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := locateTray(lockfile)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("locateTray() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}

	withProcess(t, "tempo-tray")
	if err := os.WriteFile(lockfile, []byte(" 8080|12345|s3cret\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ep, err := locateTray(lockfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.port != 8080 || ep.secret != "s3cret" {
		t.Errorf("endpoint = %+v", ep)
	}
}

func trayServer(t *testing.T, got *Payload) (*httptest.Server, int) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("X-Tempo-Secret") != "test-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("Unauthorized"))
			return
		}
		var p Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if p.Text == "fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if got != nil {
			*got = p
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return srv, port
}

func TestPost(t *testing.T) {
	_, port := trayServer(t, nil)
	n := New(nil)
	ctx := context.Background()

	if err := n.post(ctx, endpoint{port, "test-secret"}, Payload{Text: "hello"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := n.post(ctx, endpoint{port, "wrong-secret"}, Payload{Text: "hello"}); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("wrong secret = %v", err)
	}
	if err := n.post(ctx, endpoint{port, "test-secret"}, Payload{Text: "fail"}); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestNotifyDeliversToTray(t *testing.T) {
	var got Payload
	_, port := trayServer(t, &got)

	dir := filepath.Join(withConfigDir(t), constants.TrayAppIdentifier)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	lock := strconv.Itoa(port) + "|4242|test-secret"
	if err := os.WriteFile(filepath.Join(dir, constants.NotifierLockfileName), []byte(lock), 0o644); err != nil {
		t.Fatal(err)
	}
	withProcess(t, "tempo-tray")

	var bell bytes.Buffer
	if err := New(&bell).Notify(context.Background(), "Focus complete", "25 minutes of pomodoro"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got.Title != "Focus complete" || got.DurationMs != constants.NotificationDurationMs {
		t.Errorf("payload = %+v", got)
	}
	if bell.Len() != 0 {
		t.Error("bell rang although the tray accepted the notification")
	}
}

func TestNotifyFallsBackToBell(t *testing.T) {
	withConfigDir(t)

	var bell bytes.Buffer
	n := New(&bell)
	for i := 0; i < 2; i++ {
		if err := n.Notify(context.Background(), "Focus complete", "done"); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}
	if bell.String() != "\a\a" {
		t.Errorf("bell output = %q", bell.String())
	}

	if err := New(nil).Notify(context.Background(), "t", "x"); !errors.Is(err, ErrTrayNotRunning) {
		t.Errorf("Notify without fallback = %v", err)
	}
}
