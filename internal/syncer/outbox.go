package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/logger"
	"github.com/julianstephens/tempo/internal/models"
	"github.com/julianstephens/tempo/internal/storage"
)

// errPermanent marks entries that can never succeed
var errPermanent = errors.New("permanent failure")

// Status is the user-visible sync state
type Status struct {
	State      constants.SyncState
	Pending    int
	Dead       int
	LastError  string
	LastSynced time.Time
}

// DrainResult counts what one Drain pass did
type DrainResult struct {
	Applied int
	Retried int
	Dead    int
}

// Drainer replays outbox entries against the remote store with exponential
// backoff
type Drainer struct {
	outbox  storage.Outbox
	remote  storage.RemoteStore
	log     *log.Logger
	now     func() time.Time
	batch   int
	timeout time.Duration
	enabled func() bool

	mu         sync.Mutex
	draining   bool
	lastFailed bool
	lastError  string
	lastSynced time.Time
}

// DrainerOption configures a Drainer
type DrainerOption func(*Drainer)

// WithDrainClock overrides the time source.
func WithDrainClock(now func() time.Time) DrainerOption {
	return func(d *Drainer) { d.now = now }
}

// WithGate makes Drain a no-op while enabled reports false.
func WithGate(enabled func() bool) DrainerOption {
	return func(d *Drainer) { d.enabled = enabled }
}

// WithRequestTimeout bounds each remote call.
func WithRequestTimeout(timeout time.Duration) DrainerOption {
	return func(d *Drainer) { d.timeout = timeout }
}

func NewDrainer(outbox storage.Outbox, remote storage.RemoteStore, opts ...DrainerOption) *Drainer {
	d := &Drainer{
		outbox:  outbox,
		remote:  remote,
		log:     logger.Component("outbox"),
		now:     time.Now,
		batch:   constants.OutboxBatchSize,
		timeout: constants.RemoteRequestTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Backoff is the delay before retrying after attempts failures:
// 2^attempts seconds, capped.
func Backoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts >= 10 {
		return constants.OutboxMaxBackoff
	}
	d := time.Duration(1<<attempts) * time.Second
	if d > constants.OutboxMaxBackoff {
		return constants.OutboxMaxBackoff
	}
	return d
}

// Drain applies every due entry once, oldest first. Successful entries are
// removed; failures are rescheduled or, after too many attempts, marked dead.
func (d *Drainer) Drain(ctx context.Context) (DrainResult, error) {
	if d.enabled != nil && !d.enabled() {
		return DrainResult{}, nil
	}
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return DrainResult{}, nil
	}
	d.draining = true
	d.mu.Unlock()

	var (
		res     DrainResult
		lastErr error
	)
	defer func() {
		d.mu.Lock()
		d.draining = false
		switch {
		case lastErr != nil:
			d.lastFailed = true
			d.lastError = lastErr.Error()
		case res.Applied > 0:
			d.lastFailed = false
			d.lastSynced = d.now()
		}
		d.mu.Unlock()
	}()

	for {
		entries, err := d.outbox.DueEntries(d.now(), d.batch)
		if err != nil {
			lastErr = err
			return res, fmt.Errorf("failed to read outbox: %w", err)
		}
		if len(entries) == 0 {
			return res, nil
		}

		progressed := false
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := d.apply(ctx, e); err != nil {
				lastErr = err
				dead, ferr := d.fail(e, err)
				if ferr != nil {
					return res, ferr
				}
				if dead {
					res.Dead++
				} else {
					res.Retried++
				}
				continue
			}
			if err := d.outbox.CompleteEntry(e.ID); err != nil {
				lastErr = err
				return res, fmt.Errorf("failed to complete outbox entry: %w", err)
			}
			res.Applied++
			progressed = true
		}
		// failed entries are rescheduled past now
		if !progressed || len(entries) < d.batch {
			return res, nil
		}
	}
}

func (d *Drainer) fail(e models.OutboxEntry, cause error) (bool, error) {
	attempts := e.Attempts + 1
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = constants.OutboxMaxAttempts
	}
	dead := attempts >= maxAttempts || errors.Is(cause, errPermanent)
	next := d.now().Add(Backoff(attempts))

	switch {
	case dead:
		d.log.Error("Giving up on remote write", "collection", e.Collection, "op", e.Op, "id", e.EntityID, "attempts", attempts, "error", cause)
	case attempts == 1:
		d.log.Warn("Remote write failed", "collection", e.Collection, "op", e.Op, "id", e.EntityID, "retry_at", next, "error", cause)
	default:
		d.log.Debug("Remote write failed, retrying", "collection", e.Collection, "op", e.Op, "id", e.EntityID, "attempts", attempts, "retry_at", next, "error", cause)
	}

	if err := d.outbox.FailEntry(e.ID, attempts, next, dead, cause.Error()); err != nil {
		return dead, fmt.Errorf("failed to reschedule outbox entry: %w", err)
	}
	return dead, nil
}

func (d *Drainer) apply(ctx context.Context, e models.OutboxEntry) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	switch e.Op {
	case constants.OpUpsert:
		return d.remote.PutItem(ctx, e.UserID, e.Collection, storage.RemoteItem{
			ID:   e.EntityID,
			Date: e.Date,
			Body: e.Payload,
		})
	case constants.OpDelete:
		return d.remote.DeleteItem(ctx, e.UserID, e.Collection, e.EntityID)
	case constants.OpPutDoc:
		return d.remote.PutDoc(ctx, e.UserID, e.Collection, e.Payload)
	case constants.OpSweep:
		n, err := d.remote.SweepItems(ctx, e.UserID, e.Collection, e.Date)
		if err == nil && n > 0 {
			d.log.Info("Swept remote items", "collection", e.Collection, "cutoff", e.Date, "count", n)
		}
		return err
	default:
		return fmt.Errorf("%w: unknown outbox op %q", errPermanent, e.Op)
	}
}

// Run drains immediately and then on every tick until ctx is cancelled.
func (d *Drainer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = constants.DefaultSyncInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.Drain(ctx); err != nil && ctx.Err() == nil {
			d.log.Warn("Outbox drain failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Status summarises the outbox for display.
func (d *Drainer) Status() (Status, error) {
	pending, dead, err := d.outbox.CountEntries()
	if err != nil {
		return Status{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	st := Status{
		Pending:    pending,
		Dead:       dead,
		LastError:  d.lastError,
		LastSynced: d.lastSynced,
	}
	st.State = deriveState(pending, dead, d.draining, d.lastFailed)
	return st, nil
}

// RequeueDead gives dead entries a fresh set of attempts.
func (d *Drainer) RequeueDead() (int, error) {
	n, err := d.outbox.RequeueDead(d.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		d.mu.Lock()
		d.lastFailed = false
		d.lastError = ""
		d.mu.Unlock()
	}
	return n, nil
}

// OfflineStatus describes an outbox with no remote attached.
func OfflineStatus(outbox storage.Outbox) (Status, error) {
	pending, dead, err := outbox.CountEntries()
	if err != nil {
		return Status{}, err
	}
	return Status{
		State:   deriveState(0, dead, false, false),
		Pending: pending,
		Dead:    dead,
	}, nil
}

func deriveState(pending, dead int, draining, lastFailed bool) constants.SyncState {
	switch {
	case dead > 0 || lastFailed:
		return constants.SyncError
	case draining || pending > 0:
		return constants.SyncSyncing
	default:
		return constants.SyncIdle
	}
}
