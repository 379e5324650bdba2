package system

import (
	"context"
	"os"
	"time"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/notifier"
)

// NotifyCmd sends one notification through the tray helper
type NotifyCmd struct {
	Title  string `default:"tempo" help:"Notification title."`
	Text   string `arg:"" help:"Notification text."`
	DryRun bool   `help:"Print the notification instead of sending it."`
}

func (c *NotifyCmd) Run(ctx *cli.Context) error {
	if c.DryRun {
		ctx.Printf("[DryRun] %s: %s\n", c.Title, c.Text)
		return nil
	}
	nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return notifier.New(os.Stderr).Notify(nctx, c.Title, c.Text)
}
