package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/content"
	"folio/internal/notion"
)

func newSetupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create missing Notion databases and add Order fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.cliLogger(cmd)
			client, err := notion.New(
				cfg.Notion.IntegrationSecret,
				cfg.Notion.BaseURL,
				cfg.Notion.Version,
				notion.WithLogger(logger),
				notion.WithTimeout(time.Duration(cfg.Notion.RequestTimeout)*time.Second),
			)
			if err != nil {
				return err
			}
			steps, err := content.Setup(cmd.Context(), client, cfg.Notion.PageID, logger)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(steps))
			failed := 0
			for _, step := range steps {
				detail := ""
				switch {
				case step.Err != nil:
					failed++
					detail = step.Err.Error()
				case step.Numbered > 0:
					detail = strconv.Itoa(step.Numbered) + " rows numbered"
				}
				rows = append(rows, []string{step.Database, step.Action, detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Database", "Action", "Detail"}, rows, nil))
			if failed > 0 {
				return fmt.Errorf("%d database(s) could not be set up", failed)
			}
			return nil
		},
	}
}
