package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	scriptdeck "github.com/scriptdeck/scriptdeck"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scriptdeck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scriptdeck version %s\n", strings.TrimSpace(scriptdeck.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
