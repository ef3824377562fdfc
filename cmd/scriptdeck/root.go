package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scriptdeck",
	Short: "Scriptdeck runs curated automation scripts with live leveled output",
	Long: `Scriptdeck executes scripts from a predefined catalog, streams their
colorized output, supports pause-for-review points with resume, and keeps
per-script execution history.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("catalog", "scripts.yaml", "Path to the script catalog (YAML or JSON)")
	rootCmd.PersistentFlags().String("history", "", "Path to the history file (default .scriptdeck/history.json)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL for history storage (overrides --history)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging to stderr")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress banner and system messages")
}
