/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/planetevo/apiserver/internal/db"
	"github.com/planetevo/apiserver/internal/server"
)

const shutdownTimeout = 10 * time.Second

var autoMigrate bool

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the Planet Evolution backend server",
	Long: `Starts the Planet Evolution backend server. Usage:

	planetevo server [--auto-migrate]
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, logger := loadConfig()
		ctx := cmd.Context()

		if autoMigrate {
			if err := db.MigrateUp(cfg.Database.URL); err != nil {
				fmt.Fprintf(os.Stderr, "failed to migrate database: %v\n", err)
				os.Exit(1)
			}
			logger.Info("database migrations applied")
		}

		srv, err := server.New(ctx, cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
			os.Exit(1)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				fmt.Fprintf(os.Stderr, "server error: %v\n", err)
				_ = srv.Shutdown(context.Background())
				os.Exit(1)
			}
			return
		case <-ctx.Done():
		}

		logger.Info("shutting down", slog.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Apply pending database migrations before serving")
}
