package main

import (
	"github.com/spf13/cobra"

	"github.com/scriptdeck/scriptdeck/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only observation API (status, history, events, metrics)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		addr, err := cmd.Flags().GetString("addr")
		if err != nil {
			return err
		}
		return cli.Serve(cli.ServeOptions{RunOptions: opts, Addr: addr})
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8787", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
