/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planetevo/apiserver/internal/db"
)

var migrateDownSteps int

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		if err := db.MigrateUp(cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		if err := db.MigrateDown(cfg.Database.URL, migrateDownSteps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		version, dirty, err := db.MigrationVersion(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("read migration version failed: %w", err)
		}
		out := cmd.OutOrStdout()
		if dirty {
			fmt.Fprintf(out, "%d (dirty)\n", version)
			return nil
		}
		fmt.Fprintf(out, "%d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "Number of migrations to roll back")
}
