package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptdeck/scriptdeck/internal/cli"
	"github.com/scriptdeck/scriptdeck/pkg/history"
)

var historyCmd = &cobra.Command{
	Use:   "history <script>",
	Short: "Show execution history for a script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		store, err := cli.BuildHistoryStore(opts.RedisURL, opts.HistoryPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		mgr, err := history.New(ctx, store)
		if err != nil {
			return err
		}

		script := args[0]
		records := mgr.Records(script)
		if len(records) == 0 {
			fmt.Printf("No history for %q.\n", script)
			return nil
		}

		for _, rec := range records {
			line := fmt.Sprintf("%s  %-8s  exit=%d  %.1fs",
				rec.StartTime.Format("2006-01-02 15:04:05"),
				rec.Status, rec.ExitCode, rec.Duration)
			if rec.ErrorMessage != "" {
				line += "  " + rec.ErrorMessage
			}
			fmt.Println(line)
		}

		stats := mgr.StatsFor(script)
		fmt.Printf("\n%d runs: %d succeeded, %d failed, %d stopped (avg %.1fs)\n",
			stats.Total, stats.Succeeded, stats.Failed, stats.Stopped, stats.AvgDuration)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
