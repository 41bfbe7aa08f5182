package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/AvaProtocol/aa-keyring/core/keyring"
	"github.com/AvaProtocol/aa-keyring/server"
)

type submitOption struct {
	Server     string
	APIKey     string
	Account    string
	Scope      string
	Method     string
	ParamsFile string
}

var (
	submitOpt = submitOption{}
	submitCmd = &cobra.Command{
		Use:   "submit",
		Short: "Submit a request to a running keyring node",
		Long: `Submit a keyring request over the HTTP API and print the JSON response.

Params are read from --params, a JSON file, or "-" for stdin. Example:

  aa-keyring submit --account 01HX... --scope eip155:11155111 \
    --method eth_prepareUserOperation --params txs.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := readParams(submitOpt.ParamsFile)
			if err != nil {
				return err
			}

			client := server.NewClient(submitOpt.Server, submitOpt.APIKey)
			resp, err := client.Submit(cmd.Context(), &keyring.Request{
				ID:      ulid.Make().String(),
				Account: submitOpt.Account,
				Scope:   submitOpt.Scope,
				Request: keyring.RequestMethod{Method: submitOpt.Method, Params: params},
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
)

func readParams(path string) (interface{}, error) {
	if path == "" {
		return nil, nil
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read params: %w", err)
	}

	var params interface{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("params are not valid JSON: %w", err)
	}
	return params, nil
}

func init() {
	submitCmd.Flags().StringVar(&submitOpt.Server, "server", "http://localhost:8090", "Base URL of the keyring node")
	submitCmd.Flags().StringVar(&submitOpt.APIKey, "api-key", os.Getenv("KEYRING_API_KEY"), "API key, defaults to $KEYRING_API_KEY")
	submitCmd.Flags().StringVar(&submitOpt.Account, "account", "", "Account id")
	submitCmd.Flags().StringVar(&submitOpt.Scope, "scope", "", "CAIP-2 chain id, such as eip155:11155111")
	submitCmd.Flags().StringVarP(&submitOpt.Method, "method", "m", "", "Request method (required)")
	submitCmd.Flags().StringVarP(&submitOpt.ParamsFile, "params", "p", "", "JSON params file, - for stdin")
	submitCmd.MarkFlagRequired("method")
	rootCmd.AddCommand(submitCmd)
}
