package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/solatis/browscap/internal/core/auth"
	"github.com/solatis/browscap/internal/core/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys for the lookup API",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create <client-name>",
	Short: "Issue a new API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (required when several are configured)")
}

func openAuthenticator(cmd *cobra.Command) (*auth.Authenticator, map[string][]byte, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, nil, nil, fmt.Errorf("no HMAC secrets configured (set %s_HMAC_SECRET environment variable)", config.EnvPrefix)
	}
	database, queries, err := openDatabase(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return auth.NewAuthenticator(secrets, queries), secrets, func() { database.Close() }, nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	authenticator, secrets, release, err := openAuthenticator(cmd)
	if err != nil {
		return err
	}
	defer release()

	secretID, _ := cmd.Flags().GetString("secret-id")
	if secretID == "" {
		if len(secrets) > 1 {
			ids := slices.Sorted(maps.Keys(secrets))
			return fmt.Errorf("--secret-id required, configured: %v", ids)
		}
		for id := range secrets {
			secretID = id
		}
	}

	keyID, apiKey, err := authenticator.Issue(cmd.Context(), secretID, args[0])
	if err != nil {
		return fmt.Errorf("failed to issue key: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "key id:  %s\napi key: %s\n", keyID, apiKey)
	fmt.Fprintln(cmd.ErrOrStderr(), "store the api key now, it cannot be shown again")
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	authenticator, _, release, err := openAuthenticator(cmd)
	if err != nil {
		return err
	}
	defer release()

	if err := authenticator.Revoke(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}
