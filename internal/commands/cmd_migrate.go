package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
)

type MigrateCmd struct {
	flags *Flags
}

// NewMigrateCmd creates a new migrate command
func NewMigrateCmd(flags *Flags) *MigrateCmd {
	return &MigrateCmd{flags: flags}
}

// Register adds the migrate command to the application
func (cmd *MigrateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "migrate",
		Usage:     "Create or update the cache table",
		UsageText: "cachectl migrate",
		Description: `Creates the cache table (key primary key, value, indexed expiration) on the
configured database. No encryption key is required. The redis store has no schema.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *MigrateCmd) run(ctx context.Context, c *cli.Command) (err error) {
	rt, err := OpenStorage(ctx, cmd.flags.Config)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	if rt.DB == nil {
		fmt.Fprintln(c.Root().Writer, "redis store: nothing to migrate")
		return nil
	}
	if err := rt.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	fmt.Fprintf(c.Root().Writer, "migrated table %q\n", cmd.flags.Config.Cache.TableName())
	return nil
}
