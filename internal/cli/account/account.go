package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/tempo/internal/app"
	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/constants"
)

type SyncCmd struct {
	Login  SyncLoginCmd  `cmd:"" help:"Sign in and reconcile local data with the remote."`
	Logout SyncLogoutCmd `cmd:"" help:"Sign out. Local data and queued changes are kept."`
	Now    SyncNowCmd    `cmd:"" help:"Push queued changes now."`
	Status SyncStatusCmd `cmd:"" help:"Show the sync state." default:"1"`
	Retry  SyncRetryCmd  `cmd:"" help:"Requeue changes that failed too often."`
	Resync SyncResyncCmd `cmd:"" help:"Repeat the sign-in reconciliation."`
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 4*constants.RemoteRequestTimeout)
}

type SyncLoginCmd struct {
	User string `arg:"" help:"User id to sign in as."`
}

func (c *SyncLoginCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	report, err := store.SignIn(rctx, c.User)
	if err != nil {
		if errors.Is(err, app.ErrNoRemote) {
			return fmt.Errorf("%w: configure one with 'tempo config set-dsn' or --remote", err)
		}
		return fmt.Errorf("sign in failed: %w", err)
	}
	ctx.Printf("✓ Signed in as %s\n", c.User)
	printReport(ctx, report)
	return nil
}

type SyncLogoutCmd struct{}

func (c *SyncLogoutCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	user := store.CurrentUser()
	if user == "" {
		ctx.Println("Not signed in.")
		return nil
	}
	if err := store.SignOut(); err != nil {
		return err
	}
	ctx.Printf("✓ Signed out %s\n", user)
	return nil
}

type SyncNowCmd struct{}

func (c *SyncNowCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	res, err := store.Drain(rctx)
	if err != nil {
		return err
	}
	ctx.Printf("Applied %d, retrying %d, failed %d\n", res.Applied, res.Retried, res.Dead)
	return nil
}

type SyncStatusCmd struct{}

func (c *SyncStatusCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	st, err := store.SyncStatus()
	if err != nil {
		return err
	}

	user := st.User
	if user == "" {
		user = "(signed out)"
	}
	remote := "none"
	if st.Remote {
		remote = "configured"
	}
	ctx.Printf("User:     %s\n", user)
	ctx.Printf("Remote:   %s\n", remote)
	ctx.Printf("State:    %s\n", st.State)
	ctx.Printf("Pending:  %d\n", st.Pending)
	ctx.Printf("Failed:   %d\n", st.Dead)
	if !st.LastSynced.IsZero() {
		ctx.Printf("Last:     %s\n", st.LastSynced.Format("2006-01-02 15:04:05"))
	}
	if st.LastError != "" {
		ctx.Printf("Error:    %s\n", st.LastError)
	}
	return nil
}

type SyncRetryCmd struct{}

func (c *SyncRetryCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	n, err := store.RetryDead()
	if err != nil {
		return err
	}
	ctx.Printf("Requeued %d change(s).\n", n)
	return nil
}

type SyncResyncCmd struct{}

func (c *SyncResyncCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	report, err := store.Resync(rctx)
	if err != nil {
		return err
	}
	printReport(ctx, report)
	return nil
}

func printReport(ctx *cli.Context, report app.MergeReport) {
	for _, r := range report.Collections {
		ctx.Printf("  %-10s %d total, %d from remote, %d pushed\n", r.Collection, r.Total, r.Remote, r.Pushed)
	}
	for _, kind := range report.Adopted {
		ctx.Printf("  %-10s adopted remote copy\n", kind)
	}
	d := report.Drained
	ctx.Printf("  outbox     %d applied, %d retrying, %d failed\n", d.Applied, d.Retried, d.Dead)
}
