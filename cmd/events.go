/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/planetevo/apiserver/internal/mq"
	"github.com/planetevo/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with game run events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log game run events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := loadConfig()
		ctx := cmd.Context()

		queue, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("EVENTS_BACKEND is none; nothing to watch")
		}
		defer queue.Close()

		logger.Info("watching game run events",
			slog.String("backend", queue.Name()),
			slog.String("channel", cfg.Events.Channel),
		)

		err = queue.Subscribe(ctx, cfg.Events.Channel, func(ctx context.Context, msg mq.Message) error {
			var event types.GameRunEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// A malformed payload will never decode; ack it instead of requeueing forever.
				logger.Warn("dropping undecodable event", slog.String("id", msg.ID), slog.String("error", err.Error()))
				return nil
			}
			logger.Info("game run submitted",
				slog.String("id", msg.ID),
				slog.String("auth0_id", event.Auth0ID),
				slog.Int64("run_id", event.Run.ID),
				slog.Bool("completed", event.Run.Completed),
				slog.Float64("habitability_score", event.Run.HabitabilityScore),
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("subscribe %s: %w", cfg.Events.Channel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
