package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scriptdeck/scriptdeck/internal/presentation/console"
	"github.com/scriptdeck/scriptdeck/pkg/catalog"
)

var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "List the scripts available in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, err := cmd.Flags().GetString("catalog")
		if err != nil {
			return err
		}
		developer, _ := cmd.Flags().GetBool("developer")
		describe, _ := cmd.Flags().GetBool("describe")

		cat, err := catalog.Load(catalogPath)
		if err != nil {
			return err
		}

		names := cat.Names(developer)
		if len(names) == 0 {
			fmt.Println("No scripts in catalog.")
			return nil
		}

		out := console.NewPlain(os.Stdout)
		for _, name := range names {
			script, err := cat.Get(name)
			if err != nil {
				continue
			}
			label := script.Name
			if script.Path == "" {
				label += " (simulation)"
			}
			fmt.Println(label)
			if describe && script.Description != "" {
				if err := out.Describe(script.Description); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	scriptsCmd.Flags().Bool("developer", false, "Include developer-only scripts")
	scriptsCmd.Flags().Bool("describe", false, "Render script descriptions")
	rootCmd.AddCommand(scriptsCmd)
}
