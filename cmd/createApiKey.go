package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AvaProtocol/aa-keyring/core/auth"
	coreconfig "github.com/AvaProtocol/aa-keyring/core/config"
)

type createApiKeyOption struct {
	Roles   []string
	Subject string
	TTL     time.Duration
}

var (
	apiKeyOption = createApiKeyOption{}
	createApiKey = &cobra.Command{
		Use:   "create-api-key",
		Short: "Create a JWT key to call the keyring HTTP API",
		Long: `Create a JWT key signed with the jwt_secret of the config file.

An "admin" key may create, update and delete accounts and submit requests.
A "readonly" key may only list and read accounts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := coreconfig.ReadConfigRaw(config)
			if err != nil {
				return err
			}
			if raw.JwtSecret == "" {
				return fmt.Errorf("jwt_secret is not set in %s", config)
			}

			roles := make([]auth.ApiRole, len(apiKeyOption.Roles))
			for i, v := range apiKeyOption.Roles {
				roles[i] = auth.ApiRole(v)
			}

			key, err := auth.CreateAPIKey([]byte(raw.JwtSecret), apiKeyOption.Subject, roles, apiKeyOption.TTL)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
)

func init() {
	createApiKey.Flags().StringArrayVar(&(apiKeyOption.Roles), "role", []string{string(auth.AdminRole)}, "Role for API Key (admin or readonly)")
	createApiKey.Flags().StringVarP(&(apiKeyOption.Subject), "subject", "s", "admin", "subject name to be use for jwt api key")
	createApiKey.Flags().DurationVar(&(apiKeyOption.TTL), "ttl", 0, "Lifetime of the key, 0 never expires")
	rootCmd.AddCommand(createApiKey)
}
