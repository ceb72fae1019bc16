package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"folio/internal/daemon"
	"folio/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the sync scheduler in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.Info("folio starting",
				logging.String("content_dir", cfg.Paths.ContentDir),
				logging.String("api_bind", cfg.Paths.APIBind),
				logging.Int("pid", os.Getpid()),
			)
			return daemon.Run(cmd.Context(), cfg, logger)
		},
	}
}
