package main

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/trezcool/mergington/storage/database"
)

func (cl *commandLine) migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply every pending migration",
				Action: cl.migrateUp,
			},
			{
				Name:      "down",
				Usage:     "Revert the last migrations",
				UsageText: "admin migrate down [--steps N | --all]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Usage: "number of migrations to revert", Value: 1},
					&cli.BoolFlag{Name: "all", Usage: "revert every migration"},
				},
				Action: cl.migrateDown,
			},
			{
				Name:   "version",
				Usage:  "Print the current schema version",
				Action: cl.migrateVersion,
			},
		},
	}
}

func (cl *commandLine) migrator() (*migrate.Migrate, error) {
	if cl.db == nil {
		return nil, errNoDatabase
	}
	return database.NewMigrator(cl.db, cl.engine)
}

func (cl *commandLine) migrateUp(context.Context, *cli.Command) error {
	m, err := cl.migrator()
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migrating up")
	}
	return cl.printVersion(m)
}

func (cl *commandLine) migrateDown(_ context.Context, cmd *cli.Command) error {
	m, err := cl.migrator()
	if err != nil {
		return err
	}
	if cmd.Bool("all") {
		err = m.Down()
	} else {
		steps := cmd.Int("steps")
		if steps < 1 {
			return errors.Errorf("steps must be positive (got %d)", steps)
		}
		err = m.Steps(-steps)
	}
	if err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migrating down")
	}
	return cl.printVersion(m)
}

func (cl *commandLine) migrateVersion(context.Context, *cli.Command) error {
	m, err := cl.migrator()
	if err != nil {
		return err
	}
	return cl.printVersion(m)
}

func (cl *commandLine) printVersion(m *migrate.Migrate) error {
	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		_, _ = fmt.Fprintln(cl.out, "version: none")
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "reading schema version")
	}
	if dirty {
		_, _ = fmt.Fprintf(cl.out, "version: %d (dirty)\n", version)
		return nil
	}
	_, _ = fmt.Fprintf(cl.out, "version: %d\n", version)
	return nil
}
