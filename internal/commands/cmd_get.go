package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

type GetCmd struct {
	flags *Flags
}

// NewGetCmd creates a new get command
func NewGetCmd(flags *Flags) *GetCmd {
	return &GetCmd{flags: flags}
}

// Register adds the get command to the application
func (cmd *GetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "get",
		Usage:     "Read one or more keys",
		UsageText: "cachectl get <key> [key...]",
		Description: `Looks up every key in a single query and prints one line per key in the
order given. Missing or expired keys print (nil).`,
		Action: cmd.run,
	})

	return app
}

func (cmd *GetCmd) run(ctx context.Context, c *cli.Command) error {
	keys := c.Args().Slice()
	if len(keys) == 0 {
		return errors.New("get: at least one key is required")
	}

	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}

	results, err := rt.Cache.Batch().GetMany(ctx, keys)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}

	out := c.Root().Writer
	for _, res := range results.All() {
		if !res.Found {
			fmt.Fprintf(out, "%s\t(nil)\n", res.Key)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", res.Key, res.Value)
	}
	return nil
}
