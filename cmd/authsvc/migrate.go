package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/jesseKyomuhendo/auth-user-api/internal/config"
	"github.com/jesseKyomuhendo/auth-user-api/internal/db/migrate"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations",
		Long:      `Apply (up, the default) or roll back (down) the embedded schema migrations against DATABASE_URL.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(migrate.Up), string(migrate.Down)},
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	arg := string(migrate.Up)
	if len(args) == 1 {
		arg = args[0]
	}
	direction, err := migrate.ParseDirection(arg)
	if err != nil {
		return oops.Code("INVALID_DIRECTION").Wrap(err)
	}

	cfg, err := config.Load()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}

	cmd.Printf("Running migrations %s...\n", direction)
	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}

	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read version").Wrap(err)
	}
	cmd.Printf("Migrations completed (version %d, dirty %t)\n", version, dirty)
	return nil
}
