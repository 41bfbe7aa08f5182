package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var (
	config  = "./config/keyring.yaml"
	rootCmd = &cobra.Command{
		Use:   "aa-keyring",
		Short: "ERC-4337 smart account keyring",
		Long: `Keyring that creates ERC-4337 smart accounts and builds, patches and
signs UserOperations on their behalf.

Such as "aa-keyring run" to serve the HTTP API or "aa-keyring status" to
inspect a database.
`,
		SilenceUsage: true,
	}
)

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&config, "config", "c", "./config/keyring.yaml", "Path to config file")
}
