package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mavencrawler/shared/infrastructure/database"
	"mavencrawler/shared/infrastructure/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MigrateUp")
		if err != nil {
			return err
		}
		defer a.Close()

		db, err := openPostgres(a)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.MigrateUp(db.SQL()); err != nil {
			return err
		}

		st, err := migrations.CurrentStatus(db.SQL())
		if err != nil {
			return err
		}
		a.logger.Info("Schema migrated", "version", st.Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Schema at version %d\n", st.Version)
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the applied and latest schema versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("MigrateStatus")
		if err != nil {
			return err
		}
		defer a.Close()

		db, err := openPostgres(a)
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := migrations.CurrentStatus(db.SQL())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Applied: %d\n", st.Version)
		fmt.Fprintf(out, "Latest:  %d\n", st.Latest)
		fmt.Fprintf(out, "Dirty:   %t\n", st.Dirty)
		if !st.UpToDate() {
			return migrations.CheckDBMigrationStatus(db.SQL())
		}
		return nil
	},
}

func openPostgres(a *cliApp) (*database.DB, error) {
	if adapter := a.cfg.Adapters.Database; adapter != "" && adapter != "postgres" {
		return nil, fmt.Errorf("migrations only apply to postgres, ADAPTER_DATABASE is %q", adapter)
	}
	db, err := database.NewPostgresAdapter(&a.cfg.Database, a.obs)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return db, nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
}
