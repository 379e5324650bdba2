// Package notifier delivers session-complete notifications to the desktop
// tray helper, falling back to the terminal bell.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/logger"
)

// ErrTrayNotRunning is returned when no live tray helper owns the lock file
var ErrTrayNotRunning = errors.New(constants.TrayExecutablePrefix + " is not running")

var (
	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

// Payload is the body posted to the tray helper
type Payload struct {
	Title      string `json:"title"`
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// endpoint is where a running tray helper listens
type endpoint struct {
	port   int
	secret string
}

// Notifier sends notifications. A failed tray delivery rings the bell
// instead; the failure is logged once per Notifier.
type Notifier struct {
	bell   io.Writer
	client *http.Client
	log    *log.Logger

	warnOnce sync.Once
}

// New returns a Notifier that rings bell when the tray is unavailable.
// A nil bell disables the fallback.
func New(bell io.Writer) *Notifier {
	return &Notifier{
		bell:   bell,
		client: &http.Client{Timeout: 2 * time.Second},
		log:    logger.Component("notifier"),
	}
}

// Notify delivers a notification. It only returns an error when neither the
// tray nor the bell could be reached.
func (n *Notifier) Notify(ctx context.Context, title, text string) error {
	err := n.toTray(ctx, Payload{Title: title, Text: text, DurationMs: constants.NotificationDurationMs})
	if err == nil {
		return nil
	}
	n.warnOnce.Do(func() {
		n.log.Warn("Tray notification unavailable, using terminal bell", "error", err)
	})
	if n.bell == nil {
		return err
	}
	if _, werr := io.WriteString(n.bell, "\a"); werr != nil {
		return fmt.Errorf("failed to ring bell: %w", werr)
	}
	return nil
}

func (n *Notifier) toTray(ctx context.Context, p Payload) error {
	dir, err := TrayConfigDir()
	if err != nil {
		return err
	}
	ep, err := locateTray(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}
	return n.post(ctx, ep, p)
}

// TrayConfigDir returns the directory holding the tray helper's lock file.
// The helper may relocate it through lockfile_dir in its settings.json.
func TrayConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	dir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		return dir, nil
	}
	var settings struct {
		Settings struct {
			LockfileDir string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if json.Unmarshal(data, &settings) == nil && settings.Settings.LockfileDir != "" {
		return settings.Settings.LockfileDir, nil
	}
	return dir, nil
}

// locateTray parses a port|pid|secret lock file and checks that pid is a
// live tray helper.
func locateTray(lockfile string) (endpoint, error) {
	content, err := os.ReadFile(lockfile)
	if err != nil {
		return endpoint{}, ErrTrayNotRunning
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return endpoint{}, errors.New("lockfile is malformed")
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid port %q in lockfile", parts[0])
	}
	if port < 1 || port > 65535 {
		return endpoint{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return endpoint{}, fmt.Errorf("invalid process ID %q in lockfile", parts[1])
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return endpoint{}, errors.New("secret in lockfile is empty")
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return endpoint{}, ErrTrayNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayExecutablePrefix) {
		return endpoint{}, fmt.Errorf("process %d is %s, not %s", pid, process.Executable(), constants.TrayExecutablePrefix)
	}
	return endpoint{port: port, secret: secret}, nil
}

func (n *Notifier) post(ctx context.Context, ep endpoint, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	url := "http://127.0.0.1:" + strconv.Itoa(ep.port)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tempo-Secret", ep.secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
}
