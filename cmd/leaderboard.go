/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planetevo/apiserver/config"
	"github.com/planetevo/apiserver/internal/db"
	"github.com/planetevo/apiserver/internal/services"
	"github.com/planetevo/apiserver/internal/storage"
	"github.com/planetevo/apiserver/internal/store"
)

var exportLimit int

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Export and inspect leaderboard snapshots",
}

var leaderboardExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the current leaderboard to object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		ctx := cmd.Context()

		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		board, err := openLeaderboard(ctx, cfg, store.NewGameRunRepository(dbConn))
		if err != nil {
			return err
		}

		key, err := board.Export(ctx, exportLimit)
		if err != nil {
			return fmt.Errorf("export leaderboard: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

var leaderboardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exported snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		board, err := openLeaderboard(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}

		keys, err := board.Snapshots(cmd.Context())
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

var leaderboardFetchCmd = &cobra.Command{
	Use:   "fetch <key>",
	Short: "Print an exported snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		board, err := openLeaderboard(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}

		snapshot, err := board.Fetch(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	},
}

// openLeaderboard connects snapshot storage. runs may be nil for commands
// that only read snapshots.
func openLeaderboard(ctx context.Context, cfg config.Config, runs services.GameRunRepository) (*services.LeaderboardService, error) {
	snapshots, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot storage: %w", err)
	}
	return services.NewLeaderboardService(runs).WithSnapshots(snapshots), nil
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)
	leaderboardCmd.AddCommand(leaderboardExportCmd, leaderboardListCmd, leaderboardFetchCmd)

	leaderboardExportCmd.Flags().IntVar(&exportLimit, "limit", 100, "Number of entries to export")
}
