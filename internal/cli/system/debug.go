package system

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/julianstephens/tempo/internal/cli"
	"github.com/julianstephens/tempo/internal/storage"
)

type DebugCmd struct {
	DBPath DebugDBPathCmd `cmd:"" name:"db-path" help:"Show database path."`
	Dump   DebugDumpCmd   `cmd:"" help:"Dump a stored collection or document as JSON."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *cli.Context) error {
	output := map[string]string{
		"path": ctx.Local().GetConfigPath(),
	}
	jsonBytes, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}

type DebugDumpCmd struct {
	Key string `arg:"" enum:"sessions,habits,tasks,events,preferences,gamification,identity" help:"Stored key to dump (${enum})."`
}

func (cmd *DebugDumpCmd) Run(ctx *cli.Context) error {
	local := ctx.Local()
	if err := local.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}

	raw, err := local.Get(cmd.Key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("nothing stored under %q", cmd.Key)
		}
		return err
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("stored value for %q is not valid JSON: %w", cmd.Key, err)
	}
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	ctx.Println(string(jsonBytes))
	return nil
}
