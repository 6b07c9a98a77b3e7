package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/observability"
	"github.com/jaeho-dev/marketscout/internal/pipeline"
)

// newSourceCmd creates the `source` command: keyword sourcing across the
// enabled marketplaces.
func newSourceCmd() *cobra.Command {
	var (
		userID   string
		keywords string
	)

	sourceCmd := &cobra.Command{
		Use:   "source",
		Short: "Searches the given keywords and relays the matching listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if len(pipeline.ParseKeywords(keywords)) == 0 {
				return fmt.Errorf("no usable keywords in %q", keywords)
			}

			comps := buildComponents(cfg, logger)
			defer comps.Shutdown()

			if err := comps.Sourcer.Run(ctx, userID, keywords); err != nil {
				logger.Error("Sourcing run failed", zap.Error(err))
				return err
			}
			fmt.Println("Sourcing complete.")
			return nil
		},
	}

	sourceCmd.Flags().StringVarP(&userID, "user", "u", "", "relay user id to report results under")
	sourceCmd.Flags().StringVarP(&keywords, "keywords", "k", "", "comma separated keyword list")
	_ = sourceCmd.MarkFlagRequired("user")
	_ = sourceCmd.MarkFlagRequired("keywords")
	return sourceCmd
}
