package handlers

import (
	"context"
	"fmt"

	"interlink/internal/config"
	"interlink/internal/persistence"

	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command for database migrations
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage the PostgreSQL schema.

Subcommands:
  up       Apply all pending migrations
  status   Show migration status

Applied migrations are tracked in the schema_migrations table. The sqlite
driver creates its schema when the store is opened and needs no migrations.

Examples:
  interlink migrate up
  interlink migrate status`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd)
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd)
		},
	}
}

func runMigrateUp(cmd *cobra.Command) error {
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := migrator.Migrate(cmd.Context())
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if applied == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migrations\n", applied)
	return nil
}

func runMigrateStatus(cmd *cobra.Command) error {
	migrator, closeDB, err := openMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := migrator.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(status) == 0 {
		fmt.Fprintln(out, "No migrations found")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-10s %s\n", "Version", "Status", "Description")

	pendingCount := 0
	for _, m := range status {
		statusStr := "pending"
		if m.Applied {
			statusStr = "applied"
		} else {
			pendingCount++
		}
		fmt.Fprintf(out, "%-10d %-10s %s\n", m.Version, statusStr, m.Description)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Applied: %d | Pending: %d | Total: %d\n", len(status)-pendingCount, pendingCount, len(status))
	if pendingCount > 0 {
		fmt.Fprintln(out, "\nRun 'interlink migrate up' to apply pending migrations")
	}
	return nil
}

func openMigrator() (*persistence.MigrationManager, func(), error) {
	cfg := config.GetDatabase()
	if cfg.Driver != "postgres" {
		return nil, nil, fmt.Errorf("migrations only apply to the postgres driver; %s creates its schema on open", cfg.Driver)
	}

	db, err := persistence.NewPostgresDB(cfg.URL, persistence.PoolOptions{
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: cfg.ConnLifetime(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return persistence.NewMigrationManager(db), func() { db.Close() }, nil
}

// pingDatabase is shared by serve to fail fast with a readable hint
func pingDatabase(ctx context.Context, db persistence.Database) error {
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w\n\n"+
			"Make sure the database is reachable and run 'interlink migrate up' to initialize the schema", err)
	}
	return nil
}
