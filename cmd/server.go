package cmd

import (
	"musicstream/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the MusicStream HTTP server",
	Long:  `Run the MusicStream HTTP server, serving the catalog API and health endpoints.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
