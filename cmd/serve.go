package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaeho-dev/marketscout/internal/control"
	"github.com/jaeho-dev/marketscout/internal/observability"
)

// newServeCmd creates the `serve` command, which keeps the browser
// session alive and drives runs through the local control API.
func newServeCmd() *cobra.Command {
	var listen string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the local control API for starting and observing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			comps := buildComponents(cfg, logger)
			defer comps.Shutdown()

			addr := listen
			if addr == "" {
				addr = cfg.Control.Listen
			}

			srv := control.NewServer(comps.Collector, comps.Sourcer, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down control surface")
				if err := srv.Shutdown(); err != nil {
					logger.Warn("Control surface shutdown failed", zap.Error(err))
				}
				return nil
			case err := <-errCh:
				return err
			}
		},
	}

	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides control.listen)")
	return serveCmd
}
