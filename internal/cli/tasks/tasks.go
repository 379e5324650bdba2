package tasks

import (
	"fmt"
	"time"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/utils"
)

type TaskCmd struct {
	Add     TaskAddCmd     `cmd:"" help:"Add a new task."`
	List    TaskListCmd    `cmd:"" help:"List tasks." default:"1"`
	Start   TaskStartCmd   `cmd:"" help:"Start the timer of a task."`
	Stop    TaskStopCmd    `cmd:"" help:"Stop the timer of a task."`
	Done    TaskDoneCmd    `cmd:"" help:"Mark a task completed."`
	Delete  TaskDeleteCmd  `cmd:"" help:"Delete a task."`
	Restore TaskRestoreCmd `cmd:"" help:"Restore a deleted task."`
}

type TaskAddCmd struct {
	Text string `arg:"" help:"Task text."`
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.AddTask(c.Text)
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	ctx.Printf("✓ Added task %q (id: %s)\n", t.Text, cli.ShortID(t.ID))
	return nil
}

type TaskListCmd struct {
	All bool `short:"a" help:"Include deleted tasks."`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	tasks := store.Tasks(c.All)
	if len(tasks) == 0 {
		ctx.Println("No tasks yet. Add one with 'tempo task add <text>'.")
		return nil
	}

	now := time.Now()
	if ctx.Now != nil {
		now = ctx.Now()
	}
	for _, t := range tasks {
		status := "[ ]"
		switch {
		case t.IsDeleted:
			status = "[-]"
		case t.Completed:
			status = "[x]"
		case t.IsActive():
			status = "[▶]"
		}
		spent := utils.FormatClock(int(t.ElapsedAt(now) / time.Second))
		ctx.Printf("%s %s  %s  %s\n", status, cli.ShortID(t.ID), spent, t.Text)
	}
	return nil
}

type TaskStartCmd struct {
	Ref string `arg:"" help:"Task id or id prefix."`
}

func (c *TaskStartCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.StartTask(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("▶ Started %q\n", t.Text)
	return nil
}

type TaskStopCmd struct {
	Ref string `arg:"" help:"Task id or id prefix."`
}

func (c *TaskStopCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.StopTask(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("■ Stopped %q after %s total\n", t.Text, utils.FormatClock(int(t.TimeSpent/1000)))
	return nil
}

type TaskDoneCmd struct {
	Ref  string `arg:"" help:"Task id or id prefix."`
	Undo bool   `help:"Reopen a completed task."`
}

func (c *TaskDoneCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.CompleteTask(c.Ref, !c.Undo)
	if err != nil {
		return err
	}
	if t.Completed {
		ctx.Printf("✓ Completed %q\n", t.Text)
	} else {
		ctx.Printf("○ Reopened %q\n", t.Text)
	}
	return nil
}

type TaskDeleteCmd struct {
	Ref string `arg:"" help:"Task id or id prefix."`
}

func (c *TaskDeleteCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.DeleteTask(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Deleted %q (restore with 'tempo task restore %s')\n", t.Text, cli.ShortID(t.ID))
	return nil
}

type TaskRestoreCmd struct {
	Ref string `arg:"" help:"Id or id prefix of the deleted task."`
}

func (c *TaskRestoreCmd) Run(ctx *cli.Context) error {
	store, err := ctx.Store()
	if err != nil {
		return err
	}
	t, err := store.RestoreTask(c.Ref)
	if err != nil {
		return err
	}
	ctx.Printf("✓ Restored %q\n", t.Text)
	return nil
}
