package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xdg/cmdgate/internal/term"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue USERNAME",
	Short: "Issue a bearer token for an account",
	Long: `Issue a bearer token for an existing, active account without a password
login. Requires auth.jwt_secret. The token is printed to stdout and expires
after auth.token_ttl.`,
	Args: cobra.ExactArgs(1),
	RunE: runTokenIssue,
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	username := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	issuer, err := tokenIssuer(cfg)
	if err != nil {
		return err
	}
	if issuer == nil {
		return errors.New("bearer tokens are disabled: set auth.jwt_secret or CMDGATE_JWT_SECRET")
	}

	store, closeStore, err := openUserStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	u, err := store.Get(cmd.Context(), username)
	if err != nil {
		return userStoreError(username, err)
	}
	if !u.Active {
		return fmt.Errorf("user %q is inactive", username)
	}

	tok, err := issuer.Issue(u.Username, u.Scopes)
	if err != nil {
		return err
	}
	term.Println(tok.AccessToken)
	return nil
}

