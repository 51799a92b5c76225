package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type PruneCmd struct {
	flags *Flags
}

// NewPruneCmd creates a new prune command
func NewPruneCmd(flags *Flags) *PruneCmd {
	return &PruneCmd{flags: flags}
}

// Register adds the prune command to the application
func (cmd *PruneCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "prune",
		Usage:     "Delete expired entries under the configured prefix",
		UsageText: "cachectl prune",
		Description: `Expired rows are normally removed only when getMany reads them. Prune
sweeps the rest in one statement. Live entries are not affected.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *PruneCmd) run(ctx context.Context, c *cli.Command) error {
	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}

	removed, err := rt.Store.Prune(ctx)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	if removed == 0 {
		fmt.Fprintln(c.Root().Writer, "no expired entries to prune")
		return nil
	}
	fmt.Fprintf(c.Root().Writer, "pruned %d expired entr(ies)\n", removed)
	return nil
}
