package main

import (
	"github.com/spf13/cobra"

	"github.com/scriptdeck/scriptdeck/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a script from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return cli.RunScript(opts, args[0])
	},
}

func runOptionsFromFlags(cmd *cobra.Command) (cli.RunOptions, error) {
	catalog, err := cmd.Flags().GetString("catalog")
	if err != nil {
		return cli.RunOptions{}, err
	}
	history, _ := cmd.Flags().GetString("history")
	redisURL, _ := cmd.Flags().GetString("redis")
	debug, _ := cmd.Flags().GetBool("debug")
	quiet, _ := cmd.Flags().GetBool("quiet")
	developer, _ := cmd.Flags().GetBool("developer")
	noColor, _ := cmd.Flags().GetBool("no-color")
	statePath, _ := cmd.Flags().GetString("state")

	return cli.RunOptions{
		CatalogPath: catalog,
		HistoryPath: history,
		StatePath:   statePath,
		RedisURL:    redisURL,
		Developer:   developer,
		Debug:       debug,
		NoColor:     noColor,
		Quiet:       quiet,
	}, nil
}

func init() {
	runCmd.Flags().Bool("developer", false, "Show DEBUG-level script output")
	runCmd.Flags().Bool("no-color", false, "Disable colorized output")
	runCmd.Flags().String("state", "", "Persist UI settings to this file")
	rootCmd.AddCommand(runCmd)
}
