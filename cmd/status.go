package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/storage"
)

const statusListLimit = 10

var (
	statusDbPath string

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Display keyring status",
		Long: `Display the accounts and chain configs stored in a keyring database.

The node must be stopped, badger allows a single process per database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printStatus(cmd.OutOrStdout(), statusDbPath)
		},
	}
)

func printStatus(w io.Writer, dbPath string) error {
	fmt.Fprintf(w, "📊 Keyring Status Report\n")
	fmt.Fprintf(w, "=======================\n\n")
	fmt.Fprintf(w, "💾 Using database path: %s\n\n", dbPath)

	db, err := storage.NewWithPath(dbPath)
	if err != nil {
		fmt.Fprintf(w, "❌ Failed to open database: %v\n", err)
		fmt.Fprintf(w, "   💡 Stop the running node first\n")
		return err
	}
	defer db.Close()

	state, err := keyring.NewStorageStateStore(db).Load()
	if err != nil {
		fmt.Fprintf(w, "❌ Failed to load keyring state: %v\n", err)
		return err
	}

	fmt.Fprintf(w, "👛 Accounts: %d\n", len(state.Wallets))
	ids := make([]string, 0, len(state.Wallets))
	for id := range state.Wallets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for i, id := range ids {
		if i >= statusListLimit {
			fmt.Fprintf(w, "   ... and %d more accounts\n", len(ids)-statusListLimit)
			break
		}
		wallet := state.Wallets[id]
		fmt.Fprintf(w, "   %d. %s %s (admin %s)\n", i+1, id, wallet.Account.Address, wallet.Admin)
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "⛓️  Chain configs: %d\n", len(state.Config))
	chains := make([]string, 0, len(state.Config))
	for chain := range state.Config {
		chains = append(chains, chain)
	}
	sort.Strings(chains)
	for _, chain := range chains {
		c := state.Config[chain]
		bundler := c.BundlerURL
		if bundler == "" {
			bundler = "-"
		}
		paymaster := "default"
		if c.CustomVerifyingPaymasterAddress != "" {
			paymaster = c.CustomVerifyingPaymasterAddress
		}
		fmt.Fprintf(w, "   %s bundler=%s paymaster=%s\n", chain, bundler, paymaster)
	}

	return nil
}

func init() {
	statusCmd.Flags().StringVar(&statusDbPath, "db-path", "./data/badger", "Path to the keyring database")
	rootCmd.AddCommand(statusCmd)
}
