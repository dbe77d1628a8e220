package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/db"
	dbmigrate "github.com/roivaz/notion-chakra-mcp/internal/db/migrate"
)

var rootCmd = &cobra.Command{
	Use:   "dbctl",
	Short: "Schema store database management CLI",
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize migration tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			manager, err := dbmigrate.NewManager(database.Bun())
			if err != nil {
				return err
			}
			return manager.Init(cmd.Context())
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or rollback schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			manager, err := dbmigrate.NewManager(database.Bun())
			if err != nil {
				return err
			}
			if err := manager.Init(cmd.Context()); err != nil {
				return err
			}
			applied, err := manager.MigrateUp(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		steps, _ := cmd.Flags().GetInt("steps")
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			manager, err := dbmigrate.NewManager(database.Bun())
			if err != nil {
				return err
			}
			return manager.MigrateDownSteps(cmd.Context(), steps)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:           "status",
	Short:         "Show applied and pending migrations",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			manager, err := dbmigrate.NewManager(database.Bun())
			if err != nil {
				return err
			}
			status, err := manager.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range status {
				state := "pending"
				if m.IsApplied() {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s_%s\t%s\n", m.Name, m.Comment, state)
			}
			return nil
		})
	},
}

var verifyCmd = &cobra.Command{
	Use:           "verify",
	Short:         "Ensure database is on the latest schema version",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			return dbmigrate.EnsureCurrent(cmd.Context(), database.Bun(), false)
		})
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the database is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			fmt.Fprintln(cmd.OutOrStdout(), "database connection successful")
			return nil
		})
	},
}

var recreateCmd = &cobra.Command{
	Use:   "recreate",
	Short: "Drop and recreate the schema store tables (destructive)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.ToLower(os.Getenv("DB_ALLOW_DESTRUCTIVE")) != "yes" {
			return errors.New("DB_ALLOW_DESTRUCTIVE=yes must be set for recreate")
		}
		return runWithDatabase(cmd.Context(), func(database *db.Database) error {
			if _, err := database.Bun().ExecContext(cmd.Context(),
				`DROP TABLE IF EXISTS database_schemas, database_index, bun_migrations, bun_migration_locks CASCADE`); err != nil {
				return err
			}
			return dbmigrate.EnsureCurrent(cmd.Context(), database.Bun(), true)
		})
	},
}

func main() {
	rootCmd.PersistentFlags().String("postgres-url", "", "PostgreSQL DSN (env POSTGRES_URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every SQL query")
	config.Init(rootCmd)

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(initCmd, migrateCmd, statusCmd, verifyCmd, pingCmd, recreateCmd)
	_ = migrateDownCmd.Flags().Int("steps", 1, "Number of migration groups to roll back (0 = all)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "dbctl: %v\n", err)
		os.Exit(1)
	}
}

func runWithDatabase(ctx context.Context, fn func(*db.Database) error) error {
	dsn := viper.GetString(config.KeyPostgresURL)
	if dsn == "" {
		return errors.New("postgres DSN must be provided via --postgres-url or POSTGRES_URL")
	}
	database, err := db.Open(ctx, db.Config{DSN: dsn, Debug: viper.GetBool("debug")})
	if err != nil {
		return err
	}
	defer database.Close()
	return fn(database)
}
