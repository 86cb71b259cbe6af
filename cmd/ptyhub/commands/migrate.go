package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ptyhub/ptyhub/internal/logger"
	"github.com/ptyhub/ptyhub/pkg/config"
	"github.com/ptyhub/ptyhub/pkg/hub/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run database migrations for the session metadata database.

This command applies pending database migrations to the configured metadata
database (SQLite or PostgreSQL). It is required after upgrading ptyhub when
schema changes have been made. The server also applies migrations on startup,
so this is mostly useful for verifying a database before deployment.

Examples:
  # Run migrations with default config
  ptyhub migrate

  # Run migrations with custom config
  ptyhub migrate --config /etc/ptyhub/config.yaml`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	// Initialize the structured logger
	if err := InitLogger(cfg); err != nil {
		return err
	}

	dbCfg := &cfg.Persistence.Database
	logger.Info("Running database migrations", "type", dbCfg.Type)

	// Opening the store applies pending migrations
	st, err := store.New(dbCfg)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = st.Close() }()

	applied, err := st.AppliedMigrations()
	if err != nil {
		return fmt.Errorf("migration verification failed: %w", err)
	}

	fmt.Printf("Migrations completed successfully (database type: %s, applied: %d)\n", dbCfg.Type, len(applied))
	for _, m := range applied {
		fmt.Printf("  %3d  %s\n", m.ID, m.Name)
	}
	return nil
}
