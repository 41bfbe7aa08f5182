package cmd

import (
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/aa-keyring/server"
)

var runKeyringCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the keyring node",
	Long: `Open the keyring database and serve the HTTP API.

Use --config=path-to-your-config-file. default is=./config/keyring.yaml `,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.RunWithConfig(config)
	},
}

func init() {
	rootCmd.AddCommand(runKeyringCmd)
}
