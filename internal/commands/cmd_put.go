package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
)

type PutCmd struct {
	flags   *Flags
	minutes int
}

// NewPutCmd creates a new put command
func NewPutCmd(flags *Flags) *PutCmd {
	return &PutCmd{flags: flags}
}

// Register adds the put and forever commands to the application
func (cmd *PutCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "put",
			Usage:     "Store key/value pairs for a number of minutes",
			UsageText: "cachectl put --ttl <minutes> <key> <value> [key value...]",
			Description: `Encrypts and stores every pair with the same expiration. Existing
entries for the keys are replaced.`,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:        "ttl",
					Aliases:     []string{"t"},
					Usage:       "lifetime in minutes",
					Value:       60,
					Destination: &cmd.minutes,
				},
			},
			Action: cmd.runPut,
		},
		&cli.Command{
			Name:      "forever",
			Usage:     "Store key/value pairs without a practical expiry",
			UsageText: "cachectl forever <key> <value> [key value...]",
			Action:    cmd.runForever,
		},
	)

	return app
}

func (cmd *PutCmd) runPut(ctx context.Context, c *cli.Command) error {
	if cmd.minutes <= 0 {
		return fmt.Errorf("put: --ttl must be positive (got %d)", cmd.minutes)
	}
	items, err := pairs(c.Args().Slice())
	if err != nil {
		return fmt.Errorf("put: %w", err)
	}

	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}
	if err := rt.Cache.Batch().PutMany(ctx, items, cmd.minutes); err != nil {
		return fmt.Errorf("put: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "stored %d key(s) for %d minute(s)\n", len(items), cmd.minutes)
	return nil
}

func (cmd *PutCmd) runForever(ctx context.Context, c *cli.Command) error {
	items, err := pairs(c.Args().Slice())
	if err != nil {
		return fmt.Errorf("forever: %w", err)
	}

	rt, err := cmd.flags.Runtime(ctx)
	if err != nil {
		return err
	}
	if err := rt.Cache.Batch().ForeverMany(ctx, items); err != nil {
		return fmt.Errorf("forever: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "stored %d key(s) forever\n", len(items))
	return nil
}

// pairs turns "k1 v1 k2 v2" into a map. A repeated key keeps its last value.
func pairs(args []string) (map[string]string, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, errors.New("expected key/value pairs")
	}
	items := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		items[args[i]] = args[i+1]
	}
	return items, nil
}
