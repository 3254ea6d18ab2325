package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ananth-NQI/orderbot-backend/database"
	"github.com/Ananth-NQI/orderbot-backend/internal/config"
	"github.com/Ananth-NQI/orderbot-backend/internal/storage"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orderbot",
		Short: "OrderBot: WhatsApp ordering assistant for restaurants",
		Long:  "OrderBot takes restaurant orders over WhatsApp and lets the owner manage them from chat or the admin API.",
		// Cloud Run starts the binary without arguments
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook and admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		Long: `Runs the gorm auto-migration against the configured database.

With --seed the menu from the restaurant profile (RESTAURANT_CONFIG) is
loaded when the menu tables are still empty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cmd, cfg, seed)
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "load the menu from the restaurant profile")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "orderbot %s (commit: %s)\n", Version, Commit)
		},
	}
}

func runMigrate(ctx context.Context, cmd *cobra.Command, cfg *config.Config, seed bool) error {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✅ Database migrations completed!")

	if !seed {
		return nil
	}
	n, err := seedIfEmpty(ctx, storage.NewDatabaseStore(db), cfg.Restaurant.Menu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🌱 %d products seeded\n", n)
	return nil
}

// menuStore is a store that can also be seeded
type menuStore interface {
	storage.Store
	storage.MenuSeeder
}

// seedIfEmpty loads menu unless the store already has categories
func seedIfEmpty(ctx context.Context, s menuStore, menu []config.MenuCategory) (int, error) {
	if len(menu) == 0 {
		return 0, nil
	}
	existing, err := s.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: list categories: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("Menu already has %d categories, skipping seed", len(existing))
		return 0, nil
	}
	return storage.SeedMenu(ctx, s, menu)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
