package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumina-dash/lumina/internal/infrastructure/config"
	"github.com/lumina-dash/lumina/internal/infrastructure/database"
	"github.com/lumina-dash/lumina/internal/infrastructure/migration"
	"github.com/lumina-dash/lumina/internal/shared/logger"
)

var (
	env   string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations: apply pending migrations, roll back, and check status.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

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

func runUp(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	return mgr.Migrate(database.Get())
}

func runDown(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	return mgr.MigrateDown(database.Get(), steps)
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := mgr.Version(database.Get())
	if err != nil {
		return err
	}

	fmt.Printf("current migration version: %d\n", version)
	return nil
}

func setup() (*migration.Manager, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return migration.NewManager(env, cfg.Database.Driver), nil
}
