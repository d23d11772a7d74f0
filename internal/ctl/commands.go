package ctl

import "github.com/urfave/cli/v3"

// NewCommand builds the sgicsctl command tree around r.
func NewCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sgicsctl",
		Usage:  "Operate an SGICS deployment",
		Before: r.before,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a JSON configuration file",
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "PostgreSQL DSN (overrides DATABASE_DSN)",
			},
		},
		Commands: []*cli.Command{
			migrateCommand(r),
			createSuperuserCommand(r),
		},
	}
}

func migrateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Inspect and apply schema migrations",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Validate the migration graph without touching the database",
				Action: r.MigrateCheck,
			},
			{
				Name:  "plan",
				Usage: "Print the resolved migration order",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "offline",
						Usage: "Do not read the ledger; omit applied state",
					},
				},
				Action: r.MigratePlan,
			},
			{
				Name:   "apply",
				Usage:  "Apply core and app migrations",
				Action: r.MigrateApply,
			},
		},
	}
}

func createSuperuserCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "createsuperuser",
		Usage: "Create the initial administrator (ADMIN_USERNAME, ADMIN_EMAIL, ADMIN_PASSWORD)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "username",
				Usage: "Overrides ADMIN_USERNAME",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Overrides ADMIN_EMAIL",
			},
			&cli.BoolFlag{
				Name:  "no-input",
				Usage: "Never prompt for a password",
			},
		},
		Action: r.CreateSuperuser,
	}
}
