package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/observability"
	"github.com/jaeho-dev/marketscout/internal/pipeline"
	"github.com/jaeho-dev/marketscout/internal/relay"
)

// newCollectCmd creates the `collect` command: a one-shot run over the
// relay work list.
func newCollectCmd() *cobra.Command {
	var userID string

	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Runs one collection pass over the assigned store list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			comps := buildComponents(cfg, logger)
			defer comps.Shutdown()

			err := comps.Collector.Run(ctx, userID)
			switch {
			case err == nil:
				fmt.Println("Collection complete.")
				return nil
			case errors.Is(err, pipeline.ErrAuthRequired):
				fmt.Println("Sign in to the marketplace in the opened browser, then run collect again.")
				return err
			case errors.Is(err, relay.ErrTodayStop):
				fmt.Println("Daily quota exceeded; the backend closed out today's run.")
				return err
			case errors.Is(err, pipeline.ErrEmptyWorkList):
				fmt.Println("The work list is empty; nothing to collect.")
				return err
			default:
				logger.Error("Collection run failed", zap.Error(err))
				return err
			}
		},
	}

	collectCmd.Flags().StringVarP(&userID, "user", "u", "", "relay user id the work list belongs to")
	_ = collectCmd.MarkFlagRequired("user")
	return collectCmd
}
