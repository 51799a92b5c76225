package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/charlesng35/dbcache/pkg/crypto"
)

type KeygenCmd struct {
	length int
}

// NewKeygenCmd creates a new keygen command
func NewKeygenCmd() *KeygenCmd {
	return &KeygenCmd{}
}

// Register adds the keygen command to the application
func (cmd *KeygenCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "keygen",
		Usage:     "Generate a random master key for encryption.key",
		UsageText: "cachectl keygen [--bytes 32]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "bytes",
				Usage:       "key length in bytes",
				Value:       32,
				Destination: &cmd.length,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *KeygenCmd) run(_ context.Context, c *cli.Command) error {
	if cmd.length < 16 {
		return fmt.Errorf("keygen: --bytes must be at least 16 (got %d)", cmd.length)
	}
	key, err := crypto.GenerateKey(cmd.length)
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}
	fmt.Fprintln(c.Root().Writer, key)
	return nil
}
