package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"supportdesk/internal/infrastructure/config"
	"supportdesk/internal/infrastructure/database"
	"supportdesk/internal/infrastructure/migration"
	"supportdesk/internal/shared/logger"
)

var (
	env   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "SQL store migration tools",
		Long:  `Apply, roll back and inspect the schema migrations of the SQL store. Only valid when store.driver is sql.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE:  runStatus,
	}
}

// withMigrator loads config, connects to the SQL store and hands fn a migrator.
func withMigrator(fn func(ctx context.Context, m *migration.Migrator, log logger.Interface) error) error {
	cfg, err := config.Load(serverMode(env))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Store.Driver != "sql" {
		return fmt.Errorf("migrations apply to the sql store only, store.driver is %q", cfg.Store.Driver)
	}

	if err := logger.Init(&cfg.Logger, false); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	db, err := database.Open(&cfg.Store.Database, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close(db)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	m, err := migration.NewMigrator(sqlDB, cfg.Store.Database.Dialect, log)
	if err != nil {
		return err
	}

	return fn(context.Background(), m, log)
}

func runUp(cmd *cobra.Command, args []string) error {
	return withMigrator(func(ctx context.Context, m *migration.Migrator, log logger.Interface) error {
		log.Infow("running up migrations", "environment", env)
		if err := m.Up(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Infow("migrations completed successfully")
		return nil
	})
}

func runDown(cmd *cobra.Command, args []string) error {
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}
	return withMigrator(func(ctx context.Context, m *migration.Migrator, log logger.Interface) error {
		log.Infow("running down migrations", "environment", env, "steps", steps)
		for i := 0; i < steps; i++ {
			if err := m.Down(ctx); err != nil {
				return fmt.Errorf("down migration failed after %d step(s): %w", i, err)
			}
		}
		log.Infow("down migration completed successfully")
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withMigrator(func(ctx context.Context, m *migration.Migrator, log logger.Interface) error {
		version, err := m.Version(ctx)
		if err != nil {
			return fmt.Errorf("failed to get migration version: %w", err)
		}
		statuses, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get detailed status: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nMigration Status:\n")
		fmt.Fprintf(out, "  Current Version: %d\n\n", version)
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Fprintf(out, "  %-8s %5d  %s\n", state, s.Version, s.Source)
		}
		return nil
	})
}

// serverMode maps an environment name to the server mode config expects. Empty keeps the file value.
func serverMode(environment string) string {
	switch environment {
	case "":
		return ""
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
