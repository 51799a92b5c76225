package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

type ForgetCmd struct {
	flags *Flags
	force bool
}

// NewForgetCmd creates a new forget command
func NewForgetCmd(flags *Flags) *ForgetCmd {
	return &ForgetCmd{flags: flags}
}

// Register adds the forget and flush commands to the application
func (cmd *ForgetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "forget",
			Usage:     "Delete one or more keys",
			UsageText: "cachectl forget <key> [key...]",
			Action:    cmd.runForget,
		},
		&cli.Command{
			Name:      "flush",
			Usage:     "Delete every entry under the configured prefix",
			UsageText: "cachectl flush --force",
			Description: `Removes all rows whose key starts with cache.prefix, live or expired.
Entries written by caches with other prefixes are left alone.`,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:        "force",
					Usage:       "confirm the flush",
					Destination: &cmd.force,
				},
			},
			Action: cmd.runFlush,
		},
	)

	return app
}

func (cmd *ForgetCmd) runForget(ctx context.Context, c *cli.Command) error {
	keys := c.Args().Slice()
	if len(keys) == 0 {
		return errors.New("forget: at least one key is required")
	}

	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}
	if _, err := rt.Cache.Batch().ForgetMany(ctx, keys); err != nil {
		return fmt.Errorf("forget: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "forgot %d key(s)\n", len(keys))
	return nil
}

func (cmd *ForgetCmd) runFlush(ctx context.Context, c *cli.Command) error {
	if !cmd.force {
		return errors.New("flush: refusing to delete entries without --force")
	}

	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}
	removed, err := rt.Store.Flush(ctx)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "flushed %d entr(ies) under prefix %q\n", removed, rt.Store.Prefix())
	return nil
}
