package main

import (
	"github.com/urfave/cli/v2"

	"storefront/pkg/storefront/infrastructure/mysql"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					cfg, err := parseEnv()
					if err != nil {
						return err
					}
					db, err := mysql.Open(c.Context, cfg.dsn())
					if err != nil {
						return err
					}
					defer db.Close()
					return mysql.MigrateUp(db.DB)
				},
			},
			{
				Name:  "down",
				Usage: "roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := parseEnv()
					if err != nil {
						return err
					}
					db, err := mysql.Open(c.Context, cfg.dsn())
					if err != nil {
						return err
					}
					defer db.Close()
					return mysql.MigrateDown(db.DB, c.Int("steps"))
				},
			},
		},
	}
}
