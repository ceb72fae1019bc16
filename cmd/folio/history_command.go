package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No sync passes recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(runs))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of passes to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderHistoryTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		result := "ok"
		switch {
		case !run.Success:
			result = "failed"
		case run.Stats.Failed > 0 || len(run.FailedCollections) > 0:
			result = "degraded"
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Trigger,
			result,
			run.Duration().Round(100 * time.Millisecond).String(),
			strconv.Itoa(run.Items),
			strconv.Itoa(run.Stats.Downloaded),
			strconv.Itoa(run.Stats.Reused),
			strconv.Itoa(run.Stats.Failed),
			strconv.Itoa(run.Stats.Cleaned),
		})
	}
	return renderTable(
		[]string{"Started", "Trigger", "Result", "Duration", "Items", "Downloaded", "Reused", "Failed", "Cleaned"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}
