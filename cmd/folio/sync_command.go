package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/history"
	"folio/internal/notifications"
	"folio/internal/snapshot"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch content, mirror media and rewrite the snapshot once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				pipe, err := snapshot.NewPipeline(cfg, ctx.cliLogger(cmd), nil,
					snapshot.WithRecorder(store),
					snapshot.WithNotifier(notifications.NewService(cfg)),
				)
				if err != nil {
					return err
				}
				result := pipe.Generator.Generate(cmd.Context(), snapshot.TriggerCLI)
				if jsonOutput {
					if err := writeJSON(cmd, result); err != nil {
						return err
					}
				} else {
					fmt.Fprint(cmd.OutOrStdout(), renderSyncResult(result))
				}
				if !result.Success {
					return errors.New("sync failed")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	return cmd
}

func renderSyncResult(result snapshot.Result) string {
	var b strings.Builder
	if !result.Success {
		fmt.Fprintf(&b, "Sync failed: %s\n", result.Error)
		fmt.Fprintln(&b, "The previous snapshot was left in place.")
		return b.String()
	}
	fmt.Fprintf(&b, "Snapshot updated at %s (run %s)\n", result.Timestamp.Local().Format("2006-01-02 15:04:05"), shortID(result.RunID))
	if len(result.FailedCollections) > 0 {
		fmt.Fprintf(&b, "Collections left empty after CMS errors: %s\n", strings.Join(result.FailedCollections, ", "))
	}
	if result.Stats != nil {
		s := result.Stats
		rows := [][]string{
			{"Items", strconv.Itoa(result.Items)},
			{"Images", strconv.Itoa(s.TotalImages)},
			{"Downloaded", strconv.Itoa(s.Downloaded)},
			{"Reused", strconv.Itoa(s.Reused)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Cleaned", strconv.Itoa(s.Cleaned)},
		}
		b.WriteString(renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
		b.WriteString("\n")
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
