package system

import (
	"context"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/constants"
	"github.com/julianstephens/tempo/internal/notifier"
	"github.com/julianstephens/tempo/internal/tui"
)

type FocusCmd struct {
	Mode string `default:"pomodoro" enum:"pomodoro,deep_work,flow,ambient,custom" help:"Timer preset to start in (${enum})."`
}

func (c *FocusCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}

	syncCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		store.RunSync(syncCtx, ctx.Config.SyncIntervalDuration())
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	model := tui.NewModel(store, tui.Options{
		Mode:     constants.SessionMode(c.Mode),
		Notifier: notifier.New(os.Stderr),
		Now:      ctx.Now,
	})
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if m, ok := final.(tui.Model); ok {
		m.Close()
	} else {
		model.Close()
	}
	if err != nil {
		return fmt.Errorf("focus timer failed: %w", err)
	}
	return nil
}
