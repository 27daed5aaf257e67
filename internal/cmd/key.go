package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/config"
	"github.com/xdg/cmdgate/internal/term"
	"github.com/xdg/cmdgate/internal/token"
)

var (
	keyName   string
	keySecret bool
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Generate API keys and secrets",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random API key",
	Long: `Generate a random API key and print a config snippet for it.
Add the snippet under auth.api_keys in the config file.

With --secret, print a random token signing secret for auth.jwt_secret
instead.`,
	Args: cobra.NoArgs,
	RunE: runKeyGenerate,
}

func init() {
	keyGenerateCmd.Flags().StringVar(&keyName, "name", "default", "name recorded in audit logs for this key")
	keyGenerateCmd.Flags().BoolVar(&keySecret, "secret", false, "generate a token signing secret instead")
	keyCmd.AddCommand(keyGenerateCmd)
	rootCmd.AddCommand(keyCmd)
}

func runKeyGenerate(cmd *cobra.Command, args []string) error {
	if keySecret {
		term.Println(token.Generate())
		return nil
	}

	entry := config.APIKeyEntry{Name: keyName, Key: token.GenerateAPIKey()}
	check := config.DefaultConfig()
	check.Auth.APIKeys = []config.APIKeyEntry{entry}
	if err := config.Validate(check); err != nil {
		return err
	}
	snippet := &config.Config{Auth: config.AuthConfig{APIKeys: check.Auth.APIKeys}}
	data, err := config.Marshal(snippet)
	if err != nil {
		return err
	}
	term.Print(string(data))
	return nil
}
